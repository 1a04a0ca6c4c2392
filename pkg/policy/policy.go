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

// Package policy evaluates CEL validation rules against resources before
// they are reconciled.
package policy

import (
	"fmt"

	"github.com/kro-run/reconciler/api/v1alpha1"
	"github.com/kro-run/reconciler/pkg/cel"
	"github.com/kro-run/reconciler/pkg/resource"
	"github.com/kro-run/reconciler/pkg/selector"
)

var (
	boolCompiler   = cel.Bool()
	stringCompiler = cel.String()
)

// Rule is a compiled validation rule.
type Rule struct {
	ID            string
	FailurePolicy v1alpha1.FailurePolicy

	expression *cel.Program[bool]
	message    *cel.Program[string]
	// staticMessage is used when the rule has no message expression.
	staticMessage string
}

// NewRule compiles a rule. messageExpression may be empty, the rule then
// reports message, or the failed expression when message is empty too.
func NewRule(id, expression, messageExpression, message string, failurePolicy v1alpha1.FailurePolicy) (Rule, error) {
	if id == "" {
		return Rule{}, fmt.Errorf("rule id is required")
	}
	expr, err := boolCompiler.Compile(expression)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: %w", id, err)
	}

	rule := Rule{
		ID:            id,
		FailurePolicy: failurePolicy,
		expression:    expr,
		staticMessage: message,
	}
	if messageExpression != "" {
		rule.message, err = stringCompiler.Compile(messageExpression)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %s: %w", id, err)
		}
	}
	if rule.staticMessage == "" {
		rule.staticMessage = fmt.Sprintf("failed expression: %s", expression)
	}
	return rule, nil
}

// Expression returns the source of the rule predicate.
func (r Rule) Expression() string {
	return r.expression.Expression()
}

// check returns the rendered failure message and true when obj violates
// the rule.
func (r Rule) check(obj map[string]interface{}) (string, bool, error) {
	ok, err := r.expression.EvalMap(obj)
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", false, nil
	}
	if r.message == nil {
		return r.staticMessage, true, nil
	}
	msg, err := r.message.EvalMap(obj)
	if err != nil {
		return "", true, err
	}
	return msg, true, nil
}

// ResourcePolicy is a named set of rules gating the resources its selector
// accepts.
type ResourcePolicy struct {
	Name          string
	FailurePolicy v1alpha1.FailurePolicy
	// Selector decides whether the policy applies. nil applies the policy
	// to every resource.
	Selector selector.Selector
	Rules    []Rule
}

// New returns a policy. An empty failure policy defaults to FAIL.
func New(name string, failurePolicy v1alpha1.FailurePolicy, sel selector.Selector, rules ...Rule) *ResourcePolicy {
	return &ResourcePolicy{
		Name:          name,
		FailurePolicy: failurePolicy.OrDefault(),
		Selector:      sel,
		Rules:         rules,
	}
}

// CanAccept returns true if the policy applies to r.
func (p *ResourcePolicy) CanAccept(r resource.Resource) bool {
	if r == nil {
		return false
	}
	if p.Selector == nil {
		return true
	}
	return p.Selector.Matches(r)
}

// Evaluate checks every rule against r. Rules evaluating to true contribute
// nothing; an empty RuleFailures means r complies. Resources the policy
// does not accept are reported as skipped. Errors are evaluation errors,
// e.g. a rule reading a missing field without has().
func (p *ResourcePolicy) Evaluate(r resource.Resource) (Result, error) {
	result := Result{
		PolicyName:    p.Name,
		FailurePolicy: p.FailurePolicy.OrDefault(),
	}
	if !p.CanAccept(r) {
		result.Skipped = true
		return result, nil
	}
	result.Resource = Ref(r)

	obj, err := resource.ToMap(r)
	if err != nil {
		return result, err
	}

	for _, rule := range p.Rules {
		msg, failed, err := rule.check(obj)
		if err != nil {
			return result, fmt.Errorf("policy %s, rule %s: %w", p.Name, rule.ID, err)
		}
		if failed {
			result.RuleFailures = append(result.RuleFailures, RuleFailure{
				RuleID:        rule.ID,
				Message:       msg,
				FailurePolicy: p.effectiveFailurePolicy(rule),
			})
		}
	}
	return result, nil
}

func (p *ResourcePolicy) effectiveFailurePolicy(rule Rule) v1alpha1.FailurePolicy {
	if rule.FailurePolicy != "" {
		return rule.FailurePolicy
	}
	return p.FailurePolicy.OrDefault()
}
