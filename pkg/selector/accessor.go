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

package selector

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/kro-run/reconciler/pkg/fieldpath"
	"github.com/kro-run/reconciler/pkg/resource"
)

// Accessor reads a single named property of an object.
type Accessor interface {
	// Name identifies the accessor in logs and errors.
	Name() string
	// Applies reports whether the accessor knows how to read properties of
	// obj.
	Applies(obj interface{}) bool
	// Get returns the property value and whether it was found. A nil value
	// with found set to true is a property that is present but null.
	Get(obj interface{}, name string) (interface{}, bool)
}

// ConfigsProvider is implemented by resources exposing a flat map of
// configuration entries, e.g. topic configs whose keys contain dots.
type ConfigsProvider interface {
	GetConfigs() map[string]interface{}
}

// AccessorRegistry resolves dotted property paths against arbitrary
// objects. Registered accessors are consulted before the built-in ones, in
// registration order.
type AccessorRegistry struct {
	specific []Accessor
	generic  []Accessor
}

// NewAccessorRegistry returns a registry holding the built-in accessors and
// the given type specific ones.
func NewAccessorRegistry(accessors ...Accessor) *AccessorRegistry {
	return &AccessorRegistry{
		specific: append([]Accessor(nil), accessors...),
		generic: []Accessor{
			configsAccessor{},
			unstructuredAccessor{},
			resourceAccessor{},
			mapAccessor{},
			objectTreeAccessor{},
		},
	}
}

// DefaultAccessors is the registry used by selectors that were not given
// one explicitly.
var DefaultAccessors = NewAccessorRegistry()

// Register adds type specific accessors. They take precedence over the
// built-in accessors and the ones registered before.
func (r *AccessorRegistry) Register(accessors ...Accessor) {
	r.specific = append(r.specific, accessors...)
}

// Accessors returns the accessors in the order they are consulted.
func (r *AccessorRegistry) Accessors() []Accessor {
	out := make([]Accessor, 0, len(r.specific)+len(r.generic))
	out = append(out, r.specific...)
	return append(out, r.generic...)
}

// Resolve returns the value found at path and whether it was found.
// Named segments are resolved by the first accessor that applies to the
// current value and finds the property. When no accessor finds a segment,
// the segment is joined with the following ones so keys containing dots
// (`spec.configs.retention.ms`) resolve without quoting.
func (r *AccessorRegistry) Resolve(obj interface{}, path string) (interface{}, bool, error) {
	segments, err := fieldpath.Parse(path)
	if err != nil {
		return nil, false, fmt.Errorf("invalid property path %q: %w", path, err)
	}
	v, found := r.resolve(obj, segments)
	return v, found, nil
}

func (r *AccessorRegistry) resolve(current interface{}, segments []fieldpath.Segment) (interface{}, bool) {
	for len(segments) > 0 {
		if current == nil {
			return nil, false
		}
		seg := segments[0]
		if seg.IsIndex() {
			v, ok := index(current, seg.Index)
			if !ok {
				return nil, false
			}
			current, segments = v, segments[1:]
			continue
		}

		run := len(fieldpath.Names(segments))
		resolved := false
		for n := 1; n <= run; n++ {
			name := joinNames(segments[:n])
			if v, ok := r.get(current, name); ok {
				current, segments = v, segments[n:]
				resolved = true
				break
			}
		}
		if !resolved {
			return nil, false
		}
	}
	return current, true
}

func (r *AccessorRegistry) get(obj interface{}, name string) (interface{}, bool) {
	for _, accessors := range [][]Accessor{r.specific, r.generic} {
		for _, a := range accessors {
			if !a.Applies(obj) {
				continue
			}
			if v, ok := a.Get(obj, name); ok {
				return v, true
			}
		}
	}
	return nil, false
}

func joinNames(segments []fieldpath.Segment) string {
	names := make([]string, len(segments))
	for i, s := range segments {
		names[i] = s.Name
	}
	return strings.Join(names, ".")
}

func index(obj interface{}, i int) (interface{}, bool) {
	switch l := obj.(type) {
	case []interface{}:
		if i < len(l) {
			return l[i], true
		}
	case []string:
		if i < len(l) {
			return l[i], true
		}
	case []map[string]interface{}:
		if i < len(l) {
			return l[i], true
		}
	}
	return nil, false
}

// FieldTable is an accessor for one Go type, backed by an explicit table of
// field readers.
type FieldTable[T any] struct {
	name   string
	fields map[string]func(T) interface{}
}

// NewFieldTable returns an accessor reading the given fields of T.
func NewFieldTable[T any](name string, fields map[string]func(T) interface{}) *FieldTable[T] {
	return &FieldTable[T]{name: name, fields: fields}
}

func (f *FieldTable[T]) Name() string { return f.name }

func (f *FieldTable[T]) Applies(obj interface{}) bool {
	_, ok := obj.(T)
	return ok
}

func (f *FieldTable[T]) Get(obj interface{}, name string) (interface{}, bool) {
	t, ok := obj.(T)
	if !ok {
		return nil, false
	}
	read, ok := f.fields[name]
	if !ok {
		return nil, false
	}
	return read(t), true
}

type configsAccessor struct{}

func (configsAccessor) Name() string { return "configs" }

func (configsAccessor) Applies(obj interface{}) bool {
	_, ok := obj.(ConfigsProvider)
	return ok
}

func (configsAccessor) Get(obj interface{}, name string) (interface{}, bool) {
	if name != "configs" {
		return nil, false
	}
	return obj.(ConfigsProvider).GetConfigs(), true
}

type unstructuredAccessor struct{}

func (unstructuredAccessor) Name() string { return "unstructured" }

func (unstructuredAccessor) Applies(obj interface{}) bool {
	u, ok := obj.(*unstructured.Unstructured)
	return ok && u != nil
}

func (unstructuredAccessor) Get(obj interface{}, name string) (interface{}, bool) {
	v, ok := obj.(*unstructured.Unstructured).Object[name]
	return v, ok
}

// resourceAccessor reads the identity of any resource through its getters.
type resourceAccessor struct{}

func (resourceAccessor) Name() string { return "resource" }

func (resourceAccessor) Applies(obj interface{}) bool {
	_, ok := obj.(resource.Resource)
	return ok
}

func (resourceAccessor) Get(obj interface{}, name string) (interface{}, bool) {
	r := obj.(resource.Resource)
	switch name {
	case "apiVersion":
		return r.GetAPIVersion(), true
	case "kind":
		return r.GetKind(), true
	case "metadata":
		return map[string]interface{}{
			"name":        r.GetName(),
			"labels":      r.GetLabels(),
			"annotations": r.GetAnnotations(),
		}, true
	}
	return nil, false
}

type mapAccessor struct{}

func (mapAccessor) Name() string { return "map" }

func (mapAccessor) Applies(obj interface{}) bool {
	switch obj.(type) {
	case map[string]interface{}, map[string]string:
		return true
	}
	return false
}

func (mapAccessor) Get(obj interface{}, name string) (interface{}, bool) {
	switch m := obj.(type) {
	case map[string]interface{}:
		v, ok := m[name]
		return v, ok
	case map[string]string:
		v, ok := m[name]
		return v, ok
	}
	return nil, false
}

// objectTreeAccessor is the last resort for typed resources: the resource
// is rendered as an object tree and the property read from it.
type objectTreeAccessor struct{}

func (objectTreeAccessor) Name() string { return "object" }

func (objectTreeAccessor) Applies(obj interface{}) bool {
	_, ok := obj.(resource.Resource)
	return ok
}

func (objectTreeAccessor) Get(obj interface{}, name string) (interface{}, bool) {
	m, err := resource.ToMap(obj.(resource.Resource))
	if err != nil {
		return nil, false
	}
	v, ok := m[name]
	return v, ok
}
