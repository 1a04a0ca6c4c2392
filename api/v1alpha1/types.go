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

package v1alpha1

const (
	// ReconcilerDomainName is the domain used for labels, annotations and
	// the API group of the documents handled by the reconciler.
	ReconcilerDomainName = "reconciler.kro.run"
	// GroupVersion is the apiVersion of the documents in this package.
	GroupVersion = ReconcilerDomainName + "/v1alpha1"
)

// ReconciliationMode selects which kind of changes a reconciliation is
// allowed to apply.
type ReconciliationMode string

const (
	// ReconciliationModeCreate only applies changes creating new resources.
	ReconciliationModeCreate ReconciliationMode = "CREATE"
	// ReconciliationModeUpdate only applies changes updating existing resources.
	ReconciliationModeUpdate ReconciliationMode = "UPDATE"
	// ReconciliationModeDelete only applies changes deleting resources.
	ReconciliationModeDelete ReconciliationMode = "DELETE"
	// ReconciliationModeApplyAll applies every change.
	ReconciliationModeApplyAll ReconciliationMode = "APPLY_ALL"
)

// ReconciliationModes lists every known mode, in declaration order.
var ReconciliationModes = []ReconciliationMode{
	ReconciliationModeCreate,
	ReconciliationModeUpdate,
	ReconciliationModeDelete,
	ReconciliationModeApplyAll,
}

// IsValid returns true if m is one of the known reconciliation modes.
func (m ReconciliationMode) IsValid() bool {
	for _, mode := range ReconciliationModes {
		if mode == m {
			return true
		}
	}
	return false
}

// FailurePolicy tells the caller what to do with the failures reported by a
// policy or one of its rules.
type FailurePolicy string

const (
	// FailurePolicyFail means failures must abort the reconciliation.
	FailurePolicyFail FailurePolicy = "FAIL"
	// FailurePolicyWarn means failures are only reported.
	FailurePolicyWarn FailurePolicy = "WARN"
)

// OrDefault returns p, or FailurePolicyFail when p is empty.
func (p FailurePolicy) OrDefault() FailurePolicy {
	if p == "" {
		return FailurePolicyFail
	}
	return p
}

// SelectorStrategy is the way a list of selectors is combined.
type SelectorStrategy string

const (
	SelectorStrategyAll  SelectorStrategy = "ALL"
	SelectorStrategyAny  SelectorStrategy = "ANY"
	SelectorStrategyNone SelectorStrategy = "NONE"
)
