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
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/kro-run/reconciler/pkg/fieldpath"
	"github.com/kro-run/reconciler/pkg/metadata"
	"github.com/kro-run/reconciler/pkg/resource"
)

// ignoredFields are top level fields never compared. Identity is carried by
// the ResourceChange itself and status is observed, not desired.
var ignoredFields = []string{
	"apiVersion",
	"kind",
	"metadata",
	"status",
}

// GenericFactory compares resources attribute by attribute. Compared
// attributes are metadata.labels, metadata.annotations and every top level
// field other than identity, metadata and status. Nested maps are
// flattened to one attribute per leaf (`spec.configs["retention.ms"]`);
// lists are compared as a whole. Labels and annotations owned by the
// reconciler are not compared.
type GenericFactory[R resource.Resource] struct{}

var _ Factory[resource.Resource] = GenericFactory[resource.Resource]{}

// NewGenericFactory returns a GenericFactory.
func NewGenericFactory[R resource.Resource]() GenericFactory[R] {
	return GenericFactory[R]{}
}

func (f GenericFactory[R]) CreateChangeForCreate(key string, desired R) (ResourceChange, error) {
	attrs, err := Attributes(desired)
	if err != nil {
		return ResourceChange{}, err
	}

	rc := newResourceChange(key, OperationCreate, desired)
	rc.Desired = desired
	for _, name := range sortedNames(attrs) {
		rc.StateChanges = append(rc.StateChanges, Created(name, attrs[name]))
	}
	return rc, nil
}

func (f GenericFactory[R]) CreateChangeForDelete(key string, actual R) (ResourceChange, error) {
	attrs, err := Attributes(actual)
	if err != nil {
		return ResourceChange{}, err
	}

	rc := newResourceChange(key, OperationDelete, actual)
	rc.Actual = actual
	for _, name := range sortedNames(attrs) {
		rc.StateChanges = append(rc.StateChanges, Deleted(name, attrs[name]))
	}
	return rc, nil
}

func (f GenericFactory[R]) CreateChangeForUpdate(key string, actual, desired R) (ResourceChange, error) {
	before, err := Attributes(actual)
	if err != nil {
		return ResourceChange{}, err
	}
	after, err := Attributes(desired)
	if err != nil {
		return ResourceChange{}, err
	}

	rc := newResourceChange(key, OperationNone, desired)
	rc.Desired = desired
	rc.Actual = actual
	for _, name := range sortedNames(before, after) {
		b, hasBefore := before[name]
		a, hasAfter := after[name]
		rc.StateChanges = append(rc.StateChanges, newStateChange(name, b, hasBefore, a, hasAfter))
	}
	rc.Operation = AggregateOperation(rc.StateChanges)
	return rc, nil
}

// Attributes flattens the compared attributes of r, keyed by path.
func Attributes(r resource.Resource) (map[string]interface{}, error) {
	obj, err := resource.ToMap(r)
	if err != nil {
		return nil, err
	}

	attrs := map[string]interface{}{}
	if meta, ok := obj["metadata"].(map[string]interface{}); ok {
		for _, field := range []string{"labels", "annotations"} {
			values, _ := meta[field].(map[string]interface{})
			for k, v := range values {
				if strings.HasPrefix(k, metadata.LabelPrefix) {
					continue
				}
				path := []fieldpath.Segment{
					fieldpath.NewNamedSegment("metadata"),
					fieldpath.NewNamedSegment(field),
					fieldpath.NewNamedSegment(k),
				}
				attrs[fieldpath.Build(path)] = v
			}
		}
	}

	for k, v := range obj {
		if slices.Contains(ignoredFields, k) {
			continue
		}
		walk(v, []fieldpath.Segment{fieldpath.NewNamedSegment(k)}, attrs)
	}
	return attrs, nil
}

// walk records the leaves of v. Empty maps have no leaf.
func walk(v interface{}, path []fieldpath.Segment, attrs map[string]interface{}) {
	m, ok := v.(map[string]interface{})
	if !ok {
		attrs[fieldpath.Build(path)] = v
		return
	}
	for k, child := range m {
		childPath := append(slices.Clone(path), fieldpath.NewNamedSegment(k))
		walk(child, childPath, attrs)
	}
}

func sortedNames(attrs ...map[string]interface{}) []string {
	union := map[string]struct{}{}
	for _, a := range attrs {
		for k := range a {
			union[k] = struct{}{}
		}
	}
	names := maps.Keys(union)
	slices.Sort(names)
	return names
}
