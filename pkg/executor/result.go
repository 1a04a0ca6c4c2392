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

package executor

import (
	"errors"
	"fmt"

	"github.com/kro-run/reconciler/pkg/change"
)

var (
	// ErrMissingResponse is reported for changes a handler returned no
	// response for.
	ErrMissingResponse = errors.New("handler returned no response for change")
)

// PanicError is reported for every change of a batch whose handler
// panicked.
type PanicError struct {
	Handler string
	Value   interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler %s panicked: %v", e.Handler, e.Value)
}

// Status is the outcome of a change.
type Status string

const (
	StatusOK      Status = "OK"
	StatusChanged Status = "CHANGED"
	StatusFailed  Status = "FAILED"
)

// Result is the outcome of executing one change.
type Result struct {
	Change      change.ResourceChange
	Handler     string
	Description string
	Status      Status
	Errors      []error
}

// Err joins the errors of the result.
func (r Result) Err() error {
	return errors.Join(r.Errors...)
}

func statusFor(op change.Operation, errs []error, skipped bool) Status {
	switch {
	case len(errs) > 0:
		return StatusFailed
	case skipped || op == change.OperationNone:
		return StatusOK
	default:
		return StatusChanged
	}
}

// Summary counts results per status.
type Summary struct {
	OK      int
	Changed int
	Failed  int
	// Operations counts the results per change operation.
	Operations map[change.Operation]int
}

// Summarize counts the results.
func Summarize(results []Result) Summary {
	s := Summary{Operations: map[change.Operation]int{}}
	for _, r := range results {
		switch r.Status {
		case StatusOK:
			s.OK++
		case StatusChanged:
			s.Changed++
		case StatusFailed:
			s.Failed++
		}
		s.Operations[r.Change.Operation]++
	}
	return s
}

// Total returns the number of results.
func (s Summary) Total() int {
	return s.OK + s.Changed + s.Failed
}

// HasFailures returns true if a change failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

func (s Summary) String() string {
	return fmt.Sprintf("ok=%d, changed=%d, failed=%d", s.OK, s.Changed, s.Failed)
}
