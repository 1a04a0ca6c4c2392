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

package resource

// List is a typed collection of resources, as returned by collectors.
type List[R Resource] struct {
	APIVersion string
	Kind       string
	Items      []R
}

// NewList returns a list. The arguments are always apiVersion first, then
// kind.
func NewList[R Resource](apiVersion, kind string, items []R) List[R] {
	return List[R]{
		APIVersion: apiVersion,
		Kind:       kind,
		Items:      items,
	}
}

// Len returns the number of items in the list.
func (l List[R]) Len() int {
	return len(l.Items)
}

// Filter returns a new list holding the items for which keep returns true.
// The order of items is preserved.
func (l List[R]) Filter(keep func(Resource) bool) List[R] {
	items := make([]R, 0, len(l.Items))
	for _, item := range l.Items {
		if keep(item) {
			items = append(items, item)
		}
	}
	return NewList(l.APIVersion, l.Kind, items)
}

// Filter returns the resources for which keep returns true, in order.
func Filter[R Resource](resources []R, keep func(Resource) bool) []R {
	out := make([]R, 0, len(resources))
	for _, r := range resources {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
