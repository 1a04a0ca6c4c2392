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
	"github.com/go-logr/logr"

	"github.com/kro-run/reconciler/api/v1alpha1"
	"github.com/kro-run/reconciler/pkg/resource"
)

// Validator evaluates a set of policies against resources.
type Validator struct {
	log      logr.Logger
	policies []*ResourcePolicy
}

// NewValidator returns a validator for the given policies.
func NewValidator(log logr.Logger, policies ...*ResourcePolicy) *Validator {
	return &Validator{
		log:      log.WithName("policy-validator"),
		policies: policies,
	}
}

// Policies returns the number of policies of the validator.
func (v *Validator) Policies() int {
	return len(v.policies)
}

// Validate evaluates every policy accepting r. The resource is valid unless
// a rule with an effective FAIL policy is violated; WARN failures are
// returned but keep the resource valid. An evaluation error is reported as
// a failure of the rule that produced it.
func (v *Validator) Validate(r resource.Resource) (bool, []Result) {
	valid := true
	var results []Result

	for _, p := range v.policies {
		if !p.CanAccept(r) {
			continue
		}
		log := v.log.WithValues("policy", p.Name, "resource", Ref(r))

		result, err := p.Evaluate(r)
		if err != nil {
			log.Error(err, "Failed to evaluate policy")
			result.RuleFailures = append(result.RuleFailures, RuleFailure{
				RuleID:        "evaluation",
				Message:       err.Error(),
				FailurePolicy: p.FailurePolicy.OrDefault(),
			})
		}

		if result.Blocking() {
			valid = false
		}
		for _, f := range result.RuleFailures {
			if f.FailurePolicy.OrDefault() == v1alpha1.FailurePolicyWarn {
				log.Info("Policy rule violated", "rule", f.RuleID, "message", f.Message)
			} else {
				log.V(1).Info("Policy rule failed", "rule", f.RuleID, "message", f.Message)
			}
		}
		results = append(results, result)
	}
	return valid, results
}

// ValidateAll validates every resource. The resources are valid unless one
// of them is invalid.
func ValidateAll[R resource.Resource](v *Validator, resources []R) (bool, []Result) {
	valid := true
	var results []Result
	for _, r := range resources {
		ok, res := v.Validate(r)
		valid = valid && ok
		results = append(results, res...)
	}
	return valid, results
}
