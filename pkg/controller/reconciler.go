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

package controller

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/kro-run/reconciler/pkg/change"
	"github.com/kro-run/reconciler/pkg/executor"
	"github.com/kro-run/reconciler/pkg/metadata"
	"github.com/kro-run/reconciler/pkg/policy"
	"github.com/kro-run/reconciler/pkg/resource"
)

// Reconciler is the generic Controller: it filters, diffs and executes
// with the collector, computer and handlers it is built with.
type Reconciler[R resource.Resource] struct {
	log       logr.Logger
	collector Collector[R]
	computer  *change.Computer[R]
	executor  *executor.Executor
	// handlers are consulted in order, the first supporting a change
	// applies it.
	handlers []executor.Handler
	modes    []ReconciliationMode
	// validator is optional, when set desired resources are validated
	// before computing changes.
	validator *policy.Validator
}

var _ Controller[resource.Resource] = &Reconciler[resource.Resource]{}

// NewReconciler returns a reconciler supporting modes, or every mode when
// none is given.
func NewReconciler[R resource.Resource](
	log logr.Logger,
	collector Collector[R],
	computer *change.Computer[R],
	exec *executor.Executor,
	handlers []executor.Handler,
	modes ...ReconciliationMode,
) *Reconciler[R] {
	if len(modes) == 0 {
		modes = []ReconciliationMode{ModeCreate, ModeUpdate, ModeDelete, ModeApplyAll}
	}
	return &Reconciler[R]{
		log:       log.WithName("reconciler"),
		collector: collector,
		computer:  computer,
		executor:  exec,
		handlers:  handlers,
		modes:     modes,
	}
}

// WithValidator sets the policies desired resources must satisfy.
func (r *Reconciler[R]) WithValidator(v *policy.Validator) *Reconciler[R] {
	r.validator = v
	return r
}

func (r *Reconciler[R]) SupportedModes() []ReconciliationMode {
	return r.modes
}

func (r *Reconciler[R]) checkMode(mode ReconciliationMode) error {
	for _, m := range r.modes {
		if m == mode {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
}

// ComputeReconciliationChanges filters desired and actual resources with
// the context selectors, then diffs them. Changes the mode does not apply
// are dropped.
func (r *Reconciler[R]) ComputeReconciliationChanges(ctx context.Context, desired []R, mode ReconciliationMode, rc Context) ([]change.ResourceChange, error) {
	if err := r.checkMode(mode); err != nil {
		return nil, err
	}
	ctx = WithContext(ctx, rc)
	sel := rc.Selector()

	desired = resource.Filter(desired, sel.Matches)
	for i := range desired {
		desired[i] = decorate(desired[i], rc)
	}

	actual, err := r.collector.ListAll(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("failed to list actual resources: %w", err)
	}
	actual = actual.Filter(sel.Matches)

	changes, err := r.computer.ComputeChanges(actual.Items, desired)
	if err != nil {
		return nil, fmt.Errorf("failed to compute changes: %w", err)
	}
	r.log.V(1).Info("Computed changes", "mode", mode, "desired", len(desired), "actual", actual.Len(), "changes", len(changes))

	return FilterByMode(changes, mode), nil
}

// Execute applies the changes allowed by mode.
func (r *Reconciler[R]) Execute(ctx context.Context, changes []change.ResourceChange, mode ReconciliationMode, dryRun bool) ([]executor.Result, error) {
	if err := r.checkMode(mode); err != nil {
		return nil, err
	}
	return r.executor.Execute(ctx, FilterByMode(changes, mode), r.handlers, dryRun), nil
}

// Report is the outcome of Reconcile.
type Report struct {
	Mode          ReconciliationMode
	DryRun        bool
	PolicyResults []policy.Result
	Changes       []change.ResourceChange
	Results       []executor.Result
	Summary       executor.Summary
}

// Reconcile validates the desired resources, computes the changes and
// executes them. A policy violation aborts the reconciliation before any
// change is computed and is returned as a PolicyViolationError along with
// the report holding the policy results.
func (r *Reconciler[R]) Reconcile(ctx context.Context, desired []R, mode ReconciliationMode, rc Context) (Report, error) {
	report := Report{Mode: mode, DryRun: rc.DryRun}
	log := r.log.WithValues("mode", mode, "dryRun", rc.DryRun)

	if r.validator != nil {
		results, err := Validate(r.validator, desired, rc)
		report.PolicyResults = results
		if err != nil {
			log.Info("Desired resources violate policies, aborting")
			return report, err
		}
	}

	changes, err := r.ComputeReconciliationChanges(ctx, desired, mode, rc)
	if err != nil {
		return report, err
	}
	report.Changes = changes

	results, err := r.Execute(WithContext(ctx, rc), changes, mode, rc.DryRun)
	if err != nil {
		return report, err
	}
	report.Results = results
	report.Summary = executor.Summarize(results)

	log.Info("Reconciliation done", "ok", report.Summary.OK, "changed", report.Summary.Changed, "failed", report.Summary.Failed)
	return report, nil
}

// Validate runs v over the desired resources matched by the context
// selectors. The results are returned in any case, along with a
// PolicyViolationError when a FAIL rule failed.
func Validate[R resource.Resource](v *policy.Validator, desired []R, rc Context) ([]policy.Result, error) {
	valid, results := policy.ValidateAll(v, resource.Filter(desired, rc.Selector().Matches))
	if !valid {
		return results, &PolicyViolationError{Results: results}
	}
	return results, nil
}

// HasRuleFailures returns true if one of results has a failed rule, be it
// blocking or not.
func HasRuleFailures(results []policy.Result) bool {
	for _, r := range results {
		if !r.Compliant() {
			return true
		}
	}
	return false
}

// decorate returns a copy of res carrying the context labels and
// annotations. Resources that cannot be copied are returned unchanged.
func decorate[R resource.Resource](res R, rc Context) R {
	if len(rc.Labels) == 0 && len(rc.Annotations) == 0 {
		return res
	}
	obj, ok := any(res).(runtime.Object)
	if !ok {
		return res
	}
	copied := obj.DeepCopyObject()
	accessor, err := meta.Accessor(copied)
	if err != nil {
		return res
	}

	metadata.GenericLabeler(rc.Labels).ApplyLabels(accessor)
	if len(rc.Annotations) > 0 {
		annotations := accessor.GetAnnotations()
		if annotations == nil {
			annotations = map[string]string{}
		}
		for k, v := range rc.Annotations {
			annotations[k] = v
		}
		accessor.SetAnnotations(annotations)
	}

	out, ok := copied.(R)
	if !ok {
		return res
	}
	return out
}
