// Copyright 2025 The Kube Resource Orchestrator Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package retry

import (
	"context"
	"errors"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// DefaultBackoff is used by Do when the backoff has no steps.
var DefaultBackoff = wait.Backoff{
	Steps:    4,
	Duration: 200 * time.Millisecond,
	Factor:   2.0,
	Jitter:   0.1,
	Cap:      5 * time.Second,
}

// Needed returns a new Retryable, marking err as transient.
func Needed(err error) *Retryable {
	return &Retryable{
		err: err,
	}
}

// NeededAfter returns a new RetryableAfter, marking err as transient and
// asking to wait at least duration before the next attempt.
func NeededAfter(
	err error,
	duration time.Duration,
) *RetryableAfter {
	return &RetryableAfter{
		Retryable{
			err: err,
		},
		duration,
	}
}

// Retryable is an error that may go away when the operation is attempted
// again, e.g. a conflict or a throttled request.
type Retryable struct {
	err error
}

func (e *Retryable) Error() string {
	if e == nil || e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *Retryable) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

var _ error = &Retryable{}

// RetryableAfter is a Retryable error carrying the minimum delay before the
// next attempt, usually suggested by the server.
type RetryableAfter struct {
	Retryable
	duration time.Duration
}

func (e *RetryableAfter) Error() string {
	if e == nil || e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *RetryableAfter) Duration() time.Duration {
	if e == nil {
		return 0
	}
	return e.duration
}

func (e *RetryableAfter) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

var _ error = &RetryableAfter{}

// IsRetryable reports whether err is transient, and the minimum delay it
// asks for.
func IsRetryable(err error) (bool, time.Duration) {
	var after *RetryableAfter
	if errors.As(err, &after) {
		return true, after.Duration()
	}
	var retryable *Retryable
	if errors.As(err, &retryable) {
		return true, 0
	}
	return false, 0
}

// Do calls fn until it succeeds, returns an error that is not retryable, the
// backoff is exhausted or ctx is done. The returned error is the last error
// of fn, unwrapped from its Retryable marker.
func Do(ctx context.Context, backoff wait.Backoff, fn func(attempt int) error) error {
	if backoff.Steps <= 0 {
		backoff = DefaultBackoff
	}

	for attempt := 0; ; attempt++ {
		err := fn(attempt)
		retryable, after := IsRetryable(err)
		if !retryable {
			return err
		}
		if backoff.Steps <= 1 {
			return unwrap(err)
		}

		delay := backoff.Step()
		if after > delay {
			delay = after
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(unwrap(err), ctx.Err())
		case <-timer.C:
		}
	}
}

func unwrap(err error) error {
	switch e := err.(type) {
	case *RetryableAfter:
		return e.err
	case *Retryable:
		return e.err
	}
	return err
}
