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

// Package controller ties a collector, the change computer and the
// executor together to reconcile one kind of resource.
package controller

import (
	"context"

	"github.com/kro-run/reconciler/api/v1alpha1"
	"github.com/kro-run/reconciler/pkg/change"
	"github.com/kro-run/reconciler/pkg/executor"
	"github.com/kro-run/reconciler/pkg/resource"
	"github.com/kro-run/reconciler/pkg/selector"
)

// ReconciliationMode selects which changes a reconciliation applies.
type ReconciliationMode = v1alpha1.ReconciliationMode

const (
	ModeCreate   = v1alpha1.ReconciliationModeCreate
	ModeUpdate   = v1alpha1.ReconciliationModeUpdate
	ModeDelete   = v1alpha1.ReconciliationModeDelete
	ModeApplyAll = v1alpha1.ReconciliationModeApplyAll
)

// Collector observes the actual state of resources.
type Collector[R resource.Resource] interface {
	// ListAll returns the actual resources. Collectors may use sel to
	// narrow their query; the result is filtered again by the caller.
	ListAll(ctx context.Context, sel selector.Selector) (resource.List[R], error)
}

// CollectorFunc adapts a function to a Collector.
type CollectorFunc[R resource.Resource] func(ctx context.Context, sel selector.Selector) (resource.List[R], error)

func (f CollectorFunc[R]) ListAll(ctx context.Context, sel selector.Selector) (resource.List[R], error) {
	return f(ctx, sel)
}

// Controller reconciles one kind of resource.
type Controller[R resource.Resource] interface {
	// SupportedModes returns the reconciliation modes the controller
	// accepts.
	SupportedModes() []ReconciliationMode
	// ComputeReconciliationChanges returns the changes turning the actual
	// resources into desired, restricted to the mode.
	ComputeReconciliationChanges(ctx context.Context, desired []R, mode ReconciliationMode, rc Context) ([]change.ResourceChange, error)
	// Execute applies the changes allowed by mode.
	Execute(ctx context.Context, changes []change.ResourceChange, mode ReconciliationMode, dryRun bool) ([]executor.Result, error)
}

// Context holds the parameters of one reconciliation.
type Context struct {
	// Selectors restricts the desired and actual resources considered.
	// nil selects everything.
	Selectors selector.Selector
	DryRun    bool
	// Labels and Annotations are added to every desired resource.
	Labels      map[string]string
	Annotations map[string]string
	// Configuration is free form provider configuration, readable by
	// collectors and handlers through ContextFrom.
	Configuration map[string]interface{}
}

// Selector returns the selector of the context, never nil.
func (rc Context) Selector() selector.Selector {
	if rc.Selectors == nil {
		return selector.Everything()
	}
	return rc.Selectors
}

type contextKey struct{}

// WithContext returns a context carrying rc.
func WithContext(ctx context.Context, rc Context) context.Context {
	return context.WithValue(ctx, contextKey{}, rc)
}

// ContextFrom returns the reconciliation context carried by ctx.
func ContextFrom(ctx context.Context) (Context, bool) {
	rc, ok := ctx.Value(contextKey{}).(Context)
	return rc, ok
}
