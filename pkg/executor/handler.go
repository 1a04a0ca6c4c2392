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

// Package executor dispatches computed changes to the handlers performing
// them.
package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/kro-run/reconciler/pkg/change"
)

// Handler performs the changes of some operations.
type Handler interface {
	// SupportedOperations returns the operations the handler accepts.
	SupportedOperations() []change.Operation
	// Apply performs the changes. It must return one response per change,
	// in order, and report per change failures in the responses rather
	// than failing the whole batch.
	Apply(ctx context.Context, changes []change.ResourceChange) []Response
	// Describe returns a human readable description of what applying the
	// change does. It must not have side effects.
	Describe(c change.ResourceChange) string
}

// Named is implemented by handlers with a name used in logs and metrics.
type Named interface {
	Name() string
}

// Response is the outcome of applying one change.
type Response struct {
	Change change.ResourceChange
	Errors []error
	// Skipped is set by handlers that deliberately left the resource
	// untouched.
	Skipped bool
}

// Failed returns a response carrying errs.
func Failed(c change.ResourceChange, errs ...error) Response {
	return Response{Change: c, Errors: errs}
}

// Succeeded returns a response without error.
func Succeeded(c change.ResourceChange) Response {
	return Response{Change: c}
}

// Supports returns true if h accepts op.
func Supports(h Handler, op change.Operation) bool {
	for _, supported := range h.SupportedOperations() {
		if supported == op {
			return true
		}
	}
	return false
}

// HandlerName returns the name of a handler, or its Go type.
func HandlerName(h Handler) string {
	if n, ok := h.(Named); ok {
		return n.Name()
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", h), "*")
}

// Describe is the default description of a change, e.g.
// "Update KafkaTopic 'orders' (2 changed attributes)".
func Describe(c change.ResourceChange) string {
	var verb string
	switch c.Operation {
	case change.OperationCreate:
		verb = "Create"
	case change.OperationUpdate:
		verb = "Update"
	case change.OperationDelete:
		verb = "Delete"
	default:
		verb = "Unchanged"
	}

	desc := fmt.Sprintf("%s %s '%s'", verb, c.Kind, c.Name)
	if c.Operation == change.OperationUpdate {
		n := len(c.Changed())
		if n == 1 {
			desc += " (1 changed attribute)"
		} else {
			desc += fmt.Sprintf(" (%d changed attributes)", n)
		}
	}
	return desc
}

// Funcs is a Handler applying changes one by one with ApplyFunc.
type Funcs struct {
	HandlerName  string
	Operations   []change.Operation
	ApplyFunc    func(ctx context.Context, c change.ResourceChange) error
	DescribeFunc func(c change.ResourceChange) string
}

var _ Handler = &Funcs{}

func (f *Funcs) Name() string {
	return f.HandlerName
}

func (f *Funcs) SupportedOperations() []change.Operation {
	return f.Operations
}

func (f *Funcs) Apply(ctx context.Context, changes []change.ResourceChange) []Response {
	responses := make([]Response, 0, len(changes))
	for _, c := range changes {
		if err := ctx.Err(); err != nil {
			responses = append(responses, Failed(c, err))
			continue
		}
		if err := f.ApplyFunc(ctx, c); err != nil {
			responses = append(responses, Failed(c, err))
			continue
		}
		responses = append(responses, Succeeded(c))
	}
	return responses
}

func (f *Funcs) Describe(c change.ResourceChange) string {
	if f.DescribeFunc != nil {
		return f.DescribeFunc(c)
	}
	return Describe(c)
}
