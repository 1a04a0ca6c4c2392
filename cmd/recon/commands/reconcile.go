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

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/kro-run/reconciler/pkg/change"
	"github.com/kro-run/reconciler/pkg/client"
	"github.com/kro-run/reconciler/pkg/controller"
	"github.com/kro-run/reconciler/pkg/executor"
	"github.com/kro-run/reconciler/pkg/policy"
	"github.com/kro-run/reconciler/pkg/provider/kubernetes"
	"github.com/kro-run/reconciler/pkg/selector"
)

const defaultNamespace = "default"

type reconcileOptions struct {
	Files         []string
	Mode          string
	Selectors     []string
	Strategy      string
	LabelSelector string
	PolicyFiles   []string
	KeepOrphans   bool
	DryRun        bool
}

func (ro *reconcileOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&ro.Files, "filename", "f", nil, "Files holding the desired resources, - reads stdin")
	fs.StringVar(&ro.Mode, "mode", string(controller.ModeApplyAll), "Reconciliation mode: CREATE, UPDATE, DELETE or APPLY_ALL")
	fs.StringArrayVarP(&ro.Selectors, "selector", "s", nil, "Selector expression restricting the reconciled resources, e.g. \"label:env in (prod)\"")
	fs.StringVar(&ro.Strategy, "strategy", string(selector.All), "How selectors combine: ALL, ANY or NONE")
	fs.StringVarP(&ro.LabelSelector, "label-selector", "l", "", "Kubernetes label selector restricting the reconciled resources")
	fs.StringSliceVar(&ro.PolicyFiles, "policy", nil, "Policy files validating the desired resources before reconciling")
	fs.BoolVar(&ro.KeepOrphans, "keep-orphans", false, "Never delete managed resources missing from the desired resources")
}

func (ro *reconcileOptions) mode() (controller.ReconciliationMode, error) {
	mode := controller.ReconciliationMode(strings.ToUpper(ro.Mode))
	if !mode.IsValid() {
		return "", fmt.Errorf("%w: %s", controller.ErrUnsupportedMode, ro.Mode)
	}
	return mode, nil
}

// selector combines the selector expressions and the label selector. It
// returns nil when there is nothing to select on.
func (ro *reconcileOptions) selector() (selector.Selector, error) {
	strategy, err := selector.ParseStrategy(ro.Strategy)
	if err != nil {
		return nil, err
	}

	var selectors []selector.Selector
	for _, s := range ro.Selectors {
		sel, err := selector.Parse(s)
		if err != nil {
			return nil, err
		}
		selectors = append(selectors, sel)
	}
	if ro.LabelSelector != "" {
		sel, err := selector.ParseLabelSelector(ro.LabelSelector)
		if err != nil {
			return nil, err
		}
		selectors = append(selectors, sel)
	}
	if len(selectors) == 0 {
		return nil, nil
	}
	return selector.NewAggregate(strategy, selectors...), nil
}

// kindReport is the outcome of the reconciliation of one kind.
type kindReport struct {
	GVK     schema.GroupVersionKind
	Changes []change.ResourceChange
	Results []executor.Result
}

type reconcileRun struct {
	log     logr.Logger
	opts    *Options
	ro      *reconcileOptions
	execute bool
}

func (r *reconcileRun) run(ctx context.Context, cmd *cobra.Command) ([]kindReport, error) {
	mode, err := r.ro.mode()
	if err != nil {
		return nil, err
	}
	sel, err := r.ro.selector()
	if err != nil {
		return nil, err
	}
	if len(r.ro.Files) == 0 {
		return nil, fmt.Errorf("no resource file given, use --filename")
	}
	desired, err := loadResources(cmd.InOrStdin(), r.ro.Files...)
	if err != nil {
		return nil, err
	}

	rc := controller.Context{
		Selectors: sel,
		DryRun:    r.ro.DryRun,
		Configuration: map[string]interface{}{
			kubernetes.LabelSelectorConfig: r.ro.LabelSelector,
		},
	}
	if err := r.validate(cmd, desired, rc); err != nil {
		return nil, err
	}

	set, err := r.opts.newClients(r.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create clients: %w", err)
	}
	registry, err := r.opts.registry(set)
	if err != nil {
		return nil, err
	}

	var reports []kindReport
	for _, group := range groupByKind(desired) {
		r.defaultNamespace(set, group)

		ctrl, err := registry.Controller(group.GVK, r.opts.providerConfig(r.log, !r.ro.KeepOrphans))
		if err != nil {
			return reports, err
		}
		changes, err := ctrl.ComputeReconciliationChanges(ctx, group.Resources, mode, rc)
		if err != nil {
			return reports, fmt.Errorf("%s: %w", group.GVK.Kind, err)
		}
		report := kindReport{GVK: group.GVK, Changes: changes}

		if r.execute {
			report.Results, err = ctrl.Execute(controller.WithContext(ctx, rc), changes, mode, r.ro.DryRun)
			if err != nil {
				return reports, fmt.Errorf("%s: %w", group.GVK.Kind, err)
			}
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// validate gates the whole run on the policies: no kind is reconciled when
// one resource violates a FAIL rule. Warnings are printed and let through.
func (r *reconcileRun) validate(cmd *cobra.Command, desired []*unstructured.Unstructured, rc controller.Context) error {
	if len(r.ro.PolicyFiles) == 0 {
		return nil
	}
	validator, err := loadValidator(r.log, r.ro.PolicyFiles...)
	if err != nil {
		return err
	}
	results, err := controller.Validate(validator, desired, rc)
	if controller.HasRuleFailures(results) {
		printPolicyResults(cmd.OutOrStdout(), results)
	}
	return err
}

// defaultNamespace sets the namespace of namespaced resources without one.
func (r *reconcileRun) defaultNamespace(set *client.Set, group kindGroup) {
	scope, err := set.ResolveScope(group.GVK)
	if err != nil {
		r.log.V(1).Info("Could not discover resource scope, assuming namespaced", "gvk", group.GVK.String(), "error", err.Error())
	}
	if !scope.Namespaced {
		return
	}
	ns := r.opts.Namespace
	if ns == "" {
		ns = defaultNamespace
	}
	for _, u := range group.Resources {
		if u.GetNamespace() == "" {
			u.SetNamespace(ns)
		}
	}
}

func loadValidator(log logr.Logger, paths ...string) (*policy.Validator, error) {
	var policies []*policy.ResourcePolicy
	for _, path := range paths {
		loaded, err := policy.LoadFile(path)
		if err != nil {
			return nil, err
		}
		policies = append(policies, loaded...)
	}
	return policy.NewValidator(log, policies...), nil
}
