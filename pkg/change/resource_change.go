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

package change

import (
	"github.com/kro-run/reconciler/pkg/resource"
)

// ResourceChange is the change computed for one resource key.
type ResourceChange struct {
	Key        string
	APIVersion string
	Kind       string
	Name       string
	Operation  Operation
	// StateChanges holds one entry per compared attribute, NONE entries
	// included.
	StateChanges []StateChange

	// Desired is nil for deletions, Actual is nil for creations.
	Desired resource.Resource
	Actual  resource.Resource
}

// Resource returns the desired resource, or the actual one for deletions.
func (c ResourceChange) Resource() resource.Resource {
	if c.Desired != nil {
		return c.Desired
	}
	return c.Actual
}

// HasChanges returns true if the operation is not NONE.
func (c ResourceChange) HasChanges() bool {
	return c.Operation != OperationNone
}

// Changed returns the state changes that are not NONE.
func (c ResourceChange) Changed() []StateChange {
	var out []StateChange
	for _, sc := range c.StateChanges {
		if sc.Operation != OperationNone {
			out = append(out, sc)
		}
	}
	return out
}

// StateChange returns the state change of the named attribute.
func (c ResourceChange) StateChange(name string) (StateChange, bool) {
	for _, sc := range c.StateChanges {
		if sc.Name == name {
			return sc, true
		}
	}
	return StateChange{}, false
}

func newResourceChange(key string, op Operation, r resource.Resource) ResourceChange {
	return ResourceChange{
		Key:        key,
		APIVersion: r.GetAPIVersion(),
		Kind:       r.GetKind(),
		Name:       r.GetName(),
		Operation:  op,
	}
}

// FilterByOperation returns the changes with one of the given operations,
// in order.
func FilterByOperation(changes []ResourceChange, ops ...Operation) []ResourceChange {
	out := make([]ResourceChange, 0, len(changes))
	for _, c := range changes {
		for _, op := range ops {
			if c.Operation == op {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
