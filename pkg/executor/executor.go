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
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kro-run/reconciler/pkg/change"
)

// Options configures an Executor.
type Options struct {
	// Concurrency is the maximum number of handler batches applied at the
	// same time. Zero or less means no limit.
	Concurrency int
}

// Executor dispatches changes to handlers.
type Executor struct {
	log  logr.Logger
	opts Options
}

// New returns an executor.
func New(log logr.Logger, opts Options) *Executor {
	return &Executor{
		log:  log.WithName("executor"),
		opts: opts,
	}
}

type batch struct {
	handler Handler
	name    string
	indexes []int
}

// Execute dispatches every change to the first handler, in registration
// order, supporting its operation. Changes without handler are dropped and
// produce no result.
//
// With dryRun set, no handler is applied: each change gets a CHANGED
// result, or OK for NONE, described by its handler.
//
// Otherwise each handler applies its batch; batches run concurrently and a
// failing or panicking batch does not affect the others. Results are
// returned in the order of changes.
func (e *Executor) Execute(ctx context.Context, changes []change.ResourceChange, handlers []Handler, dryRun bool) []Result {
	runID, ok := RunIDFrom(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = WithRunID(ctx, runID)
	}
	log := e.log.WithValues("runID", runID, "dryRun", dryRun)

	batches, unhandled := partition(changes, handlers)
	for _, i := range unhandled {
		c := changes[i]
		log.V(1).Info("No handler supports change, skipping", "operation", c.Operation, "kind", c.Kind, "name", c.Name)
	}
	results := make([]*Result, len(changes))

	if dryRun {
		for _, b := range batches {
			for _, i := range b.indexes {
				c := changes[i]
				results[i] = &Result{
					Change:      c,
					Handler:     b.name,
					Description: b.handler.Describe(c),
					Status:      statusFor(c.Operation, nil, false),
				}
			}
		}
		return collect(results)
	}

	g := &errgroup.Group{}
	if e.opts.Concurrency > 0 {
		g.SetLimit(e.opts.Concurrency)
	}
	for _, b := range batches {
		b := b
		g.Go(func() error {
			e.apply(ctx, log.WithValues("handler", b.name), b, changes, results)
			return nil
		})
	}
	// batches never return an error, failures are carried by results.
	_ = g.Wait()

	out := collect(results)
	for _, r := range out {
		changesTotal.WithLabelValues(string(r.Change.Operation), string(r.Status)).Inc()
	}
	return out
}

func (e *Executor) apply(ctx context.Context, log logr.Logger, b *batch, changes []change.ResourceChange, results []*Result) {
	batchChanges := make([]change.ResourceChange, len(b.indexes))
	for j, i := range b.indexes {
		batchChanges[j] = changes[i]
	}

	start := time.Now()
	defer func() {
		handlerBatchDuration.WithLabelValues(b.name).Observe(time.Since(start).Seconds())
	}()
	defer func() {
		if r := recover(); r != nil {
			handlerPanicsTotal.WithLabelValues(b.name).Inc()
			err := &PanicError{Handler: b.name, Value: r}
			log.Error(err, "Handler panicked, failing its batch", "changes", len(batchChanges))
			for j, i := range b.indexes {
				results[i] = &Result{
					Change:      batchChanges[j],
					Handler:     b.name,
					Description: describe(b.handler, batchChanges[j]),
					Status:      StatusFailed,
					Errors:      []error{err},
				}
			}
		}
	}()

	log.V(1).Info("Applying changes", "changes", len(batchChanges))
	responses := b.handler.Apply(ctx, batchChanges)

	for j, i := range b.indexes {
		c := batchChanges[j]
		res := &Result{
			Change:      c,
			Handler:     b.name,
			Description: b.handler.Describe(c),
		}
		if j >= len(responses) {
			res.Status = StatusFailed
			res.Errors = []error{ErrMissingResponse}
			log.Info("Handler returned no response for change", "kind", c.Kind, "name", c.Name)
		} else {
			resp := responses[j]
			res.Errors = resp.Errors
			res.Status = statusFor(c.Operation, resp.Errors, resp.Skipped)
		}
		if res.Status == StatusFailed {
			log.Info("Change failed", "operation", c.Operation, "kind", c.Kind, "name", c.Name, "error", res.Err())
		}
		results[i] = res
	}
}

// describe calls Describe, which may be the method that panicked.
func describe(h Handler, c change.ResourceChange) (desc string) {
	defer func() {
		if recover() != nil {
			desc = Describe(c)
		}
	}()
	return h.Describe(c)
}

// partition groups the changes by handler. It returns the indexes of the
// changes no handler supports.
func partition(changes []change.ResourceChange, handlers []Handler) ([]*batch, []int) {
	var batches []*batch
	var unhandled []int
	byHandler := make(map[int]*batch, len(handlers))
	for i, c := range changes {
		handled := false
		for h, handler := range handlers {
			if !Supports(handler, c.Operation) {
				continue
			}
			b, ok := byHandler[h]
			if !ok {
				b = &batch{handler: handler, name: HandlerName(handler)}
				byHandler[h] = b
				batches = append(batches, b)
			}
			b.indexes = append(b.indexes, i)
			handled = true
			break
		}
		if !handled {
			unhandled = append(unhandled, i)
		}
	}
	return batches, unhandled
}

func collect(results []*Result) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

type runIDKey struct{}

// WithRunID returns a context carrying the ID of a reconciliation run.
// Handlers can read it with RunIDFrom, e.g. to label the objects they
// write.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFrom returns the run ID of ctx.
func RunIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok && id != ""
}
