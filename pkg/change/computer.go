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
	"fmt"

	"github.com/kro-run/reconciler/pkg/metadata"
	"github.com/kro-run/reconciler/pkg/resource"
)

// Factory builds the change of a single key. An error means a resource
// could not be compared at all.
type Factory[R resource.Resource] interface {
	CreateChangeForCreate(key string, desired R) (ResourceChange, error)
	CreateChangeForDelete(key string, actual R) (ResourceChange, error)
	CreateChangeForUpdate(key string, actual, desired R) (ResourceChange, error)
}

// Option configures a Computer.
type Option func(*computerOptions)

type computerOptions struct {
	deleteOrphans bool
}

// WithDeleteOrphans sets whether actual resources missing from the desired
// set produce a DELETE change. Defaults to true.
func WithDeleteOrphans(deleteOrphans bool) Option {
	return func(o *computerOptions) {
		o.deleteOrphans = deleteOrphans
	}
}

// Computer is the keyed diff between actual and desired resources.
type Computer[R resource.Resource] struct {
	key           resource.KeyFunc[R]
	factory       Factory[R]
	deleteOrphans bool
}

// NewComputer returns a computer indexing resources with key.
func NewComputer[R resource.Resource](key resource.KeyFunc[R], factory Factory[R], opts ...Option) *Computer[R] {
	o := &computerOptions{deleteOrphans: true}
	for _, opt := range opts {
		opt(o)
	}
	return &Computer[R]{
		key:           key,
		factory:       factory,
		deleteOrphans: o.deleteOrphans,
	}
}

// Key returns the key of r.
func (c *Computer[R]) Key(r R) string {
	return c.key(r)
}

// ComputeChanges returns one change per key of the union of both
// collections: desired keys first, in order, then the keys only found in
// the actual resources.
//
//   - only desired: CREATE
//   - only actual: DELETE, unless orphans are kept
//   - both: the factory update change, UPDATE or NONE
//
// Desired resources annotated with metadata.IgnoreAnnotation produce no
// change. Desired resources annotated with metadata.DeleteAnnotation
// produce a DELETE when they exist, and no change otherwise.
//
// A duplicate or empty key in either collection, or a resource the factory
// cannot compare, is an error and no change is returned.
func (c *Computer[R]) ComputeChanges(actual, desired []R) ([]ResourceChange, error) {
	actualByKey, actualKeys, err := c.index(actual, "actual")
	if err != nil {
		return nil, err
	}
	desiredByKey, desiredKeys, err := c.index(desired, "desired")
	if err != nil {
		return nil, err
	}

	changes := make([]ResourceChange, 0, len(desiredKeys)+len(actualKeys))
	for _, key := range desiredKeys {
		d := desiredByKey[key]
		a, exists := actualByKey[key]

		var (
			rc  ResourceChange
			err error
		)
		switch {
		case metadata.IsIgnored(d):
			continue
		case metadata.IsMarkedForDeletion(d):
			if !exists {
				continue
			}
			rc, err = c.factory.CreateChangeForDelete(key, a)
		case !exists:
			rc, err = c.factory.CreateChangeForCreate(key, d)
		default:
			rc, err = c.factory.CreateChangeForUpdate(key, a, d)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to compute change of %q: %w", key, err)
		}
		changes = append(changes, rc)
	}

	if !c.deleteOrphans {
		return changes, nil
	}
	for _, key := range actualKeys {
		if _, ok := desiredByKey[key]; ok {
			continue
		}
		a := actualByKey[key]
		if metadata.IsIgnored(a) {
			continue
		}
		rc, err := c.factory.CreateChangeForDelete(key, a)
		if err != nil {
			return nil, fmt.Errorf("failed to compute change of %q: %w", key, err)
		}
		changes = append(changes, rc)
	}
	return changes, nil
}

func (c *Computer[R]) index(resources []R, collection string) (map[string]R, []string, error) {
	byKey := make(map[string]R, len(resources))
	keys := make([]string, 0, len(resources))
	for i, r := range resources {
		key := c.key(r)
		if key == "" {
			return nil, nil, fmt.Errorf("%s resource at index %d: %w", collection, i, ErrEmptyKey)
		}
		if _, ok := byKey[key]; ok {
			return nil, nil, &DuplicateKeyError{Key: key, Collection: collection}
		}
		byKey[key] = r
		keys = append(keys, key)
	}
	return byKey, keys, nil
}
