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

package provider

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/exp/slices"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/kro-run/reconciler/pkg/controller"
)

// Wildcard registers a factory for every kind of a group, or for every group
// when used as both group and kind.
const Wildcard = "*"

var (
	ErrProviderNotFound  = errors.New("no provider registered")
	ErrAlreadyRegistered = errors.New("provider already registered")
)

// Config is handed to factories when building a controller.
type Config struct {
	Log logr.Logger
	// Namespace restricts the resources considered. Empty means all
	// namespaces.
	Namespace string
	// Concurrency bounds the number of changes applied in parallel.
	Concurrency   int
	DeleteOrphans bool
	// QPS and Burst rate limit the calls made by handlers. A zero QPS
	// disables rate limiting.
	QPS   float64
	Burst int
	// ReconcilerVersion is written on the resources created by the
	// reconciler.
	ReconcilerVersion string
}

// Factory builds the controller reconciling resources of a kind.
type Factory func(gvk schema.GroupVersionKind, cfg Config) (controller.Controller[*unstructured.Unstructured], error)

// Registry maps resource kinds to the factory of their provider.
type Registry struct {
	mu        sync.RWMutex
	factories map[schema.GroupKind]Factory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[schema.GroupKind]Factory),
	}
}

// Register adds the factory for gk. Group or Kind may be Wildcard.
func (r *Registry) Register(gk schema.GroupKind, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[gk]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, describe(gk))
	}
	r.factories[gk] = f
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(gk schema.GroupKind, f Factory) {
	if err := r.Register(gk, f); err != nil {
		panic(err)
	}
}

// Lookup returns the factory for gk: an exact registration first, then the
// wildcard kind of the group, then the global wildcard.
func (r *Registry) Lookup(gk schema.GroupKind) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, candidate := range []schema.GroupKind{
		gk,
		{Group: gk.Group, Kind: Wildcard},
		{Group: Wildcard, Kind: Wildcard},
	} {
		if f, ok := r.factories[candidate]; ok {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrProviderNotFound, describe(gk))
}

// Controller builds the controller of gvk with the registered factory.
func (r *Registry) Controller(gvk schema.GroupVersionKind, cfg Config) (controller.Controller[*unstructured.Unstructured], error) {
	f, err := r.Lookup(gvk.GroupKind())
	if err != nil {
		return nil, err
	}
	c, err := f(gvk, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build controller for %s: %w", gvk, err)
	}
	return c, nil
}

// Kinds returns the registered group kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for gk := range r.factories {
		kinds = append(kinds, describe(gk))
	}
	slices.Sort(kinds)
	return kinds
}

func describe(gk schema.GroupKind) string {
	if gk.Group == "" {
		return gk.Kind
	}
	return gk.Kind + "." + gk.Group
}
