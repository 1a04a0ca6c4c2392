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
	"fmt"

	"github.com/kro-run/reconciler/pkg/change"
)

// NoneHandler accepts the changes with nothing to do. Register it last so
// that every change yields a result.
type NoneHandler struct{}

var _ Handler = NoneHandler{}

func (NoneHandler) Name() string { return "none" }

func (NoneHandler) SupportedOperations() []change.Operation {
	return []change.Operation{change.OperationNone}
}

func (NoneHandler) Apply(_ context.Context, changes []change.ResourceChange) []Response {
	responses := make([]Response, len(changes))
	for i, c := range changes {
		responses[i] = Succeeded(c)
	}
	return responses
}

func (NoneHandler) Describe(c change.ResourceChange) string {
	return Describe(c)
}

// DeleteSkippedHandler accepts deletions and leaves the resources in
// place. Providers register it instead of their delete handler when
// deletion is disabled.
type DeleteSkippedHandler struct{}

var _ Handler = DeleteSkippedHandler{}

func (DeleteSkippedHandler) Name() string { return "delete-skipped" }

func (DeleteSkippedHandler) SupportedOperations() []change.Operation {
	return []change.Operation{change.OperationDelete}
}

func (DeleteSkippedHandler) Apply(_ context.Context, changes []change.ResourceChange) []Response {
	responses := make([]Response, len(changes))
	for i, c := range changes {
		responses[i] = Response{Change: c, Skipped: true}
	}
	return responses
}

func (DeleteSkippedHandler) Describe(c change.ResourceChange) string {
	return fmt.Sprintf("Skip deletion of %s '%s' (deletion is disabled)", c.Kind, c.Name)
}
