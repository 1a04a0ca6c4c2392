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
	"github.com/kro-run/reconciler/pkg/resource"
)

// RuleFailure is a violated rule and its rendered message.
type RuleFailure struct {
	RuleID        string
	Message       string
	FailurePolicy v1alpha1.FailurePolicy
}

// Result is the outcome of evaluating one policy against one resource.
type Result struct {
	PolicyName    string
	FailurePolicy v1alpha1.FailurePolicy
	// Resource is the `kind/name` of the evaluated resource.
	Resource     string
	RuleFailures []RuleFailure
	// Skipped is true when the policy did not apply to the resource.
	Skipped bool
}

// Compliant returns true if no rule failed.
func (r Result) Compliant() bool {
	return len(r.RuleFailures) == 0
}

// Blocking returns true if a failed rule has an effective FAIL policy.
func (r Result) Blocking() bool {
	for _, f := range r.RuleFailures {
		if f.FailurePolicy.OrDefault() == v1alpha1.FailurePolicyFail {
			return true
		}
	}
	return false
}

// Ref renders the identity of a resource for reports.
func Ref(r resource.Resource) string {
	if r.GetKind() == "" {
		return r.GetName()
	}
	return fmt.Sprintf("%s/%s", r.GetKind(), r.GetName())
}
