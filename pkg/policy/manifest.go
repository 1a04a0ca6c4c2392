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

package policy

import (
	"fmt"

	"github.com/kro-run/reconciler/api/v1alpha1"
	"github.com/kro-run/reconciler/pkg/selector"
)

// FromManifest compiles a ValidatingResourcePolicy document. Invalid
// selectors and expressions are reported here, before any resource is
// evaluated.
func FromManifest(m *v1alpha1.ValidatingResourcePolicy) (*ResourcePolicy, error) {
	if m.Name == "" {
		return nil, fmt.Errorf("policy name is required")
	}
	if len(m.Spec.Rules) == 0 {
		return nil, fmt.Errorf("policy %s: at least one rule is required", m.Name)
	}

	sel, err := NewResourceSelector(m.Spec.Selector)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", m.Name, err)
	}

	rules := make([]Rule, 0, len(m.Spec.Rules))
	seen := make(map[string]struct{}, len(m.Spec.Rules))
	for _, r := range m.Spec.Rules {
		if _, ok := seen[r.Name]; ok {
			return nil, fmt.Errorf("policy %s: duplicate rule %q", m.Name, r.Name)
		}
		seen[r.Name] = struct{}{}

		rule, err := NewRule(r.Name, r.Expression, r.MessageExpression, r.Message, r.FailurePolicy)
		if err != nil {
			return nil, fmt.Errorf("policy %s: %w", m.Name, err)
		}
		rules = append(rules, rule)
	}

	return New(m.Name, m.Spec.FailurePolicy, sel, rules...), nil
}

// NewResourceSelector builds the aggregate deciding whether a policy
// applies. The apiVersion/kind matchers are combined with ANY, then the
// matchers, the label selector and the match expressions are combined with
// the selector strategy (ALL by default). A nil selector returns nil,
// which accepts every resource.
func NewResourceSelector(rs *v1alpha1.ResourceSelector) (selector.Selector, error) {
	if rs == nil {
		return nil, nil
	}

	strategy, err := selector.ParseStrategy(string(rs.Strategy))
	if err != nil {
		return nil, err
	}

	var selectors []selector.Selector
	if len(rs.MatchResources) > 0 {
		matchers := make([]selector.Selector, 0, len(rs.MatchResources))
		for _, m := range rs.MatchResources {
			matchers = append(matchers, selector.MatchResource(m.APIVersion, m.Kind))
		}
		selectors = append(selectors, selector.AnyOf(matchers...))
	}

	if rs.LabelSelector != nil {
		ls, err := selector.NewLabelSelector(rs.LabelSelector)
		if err != nil {
			return nil, err
		}
		selectors = append(selectors, ls)
	}

	for _, expr := range rs.MatchExpressions {
		s, err := selector.Parse(expr)
		if err != nil {
			return nil, err
		}
		selectors = append(selectors, s)
	}

	return selector.NewAggregate(strategy, selectors...), nil
}
