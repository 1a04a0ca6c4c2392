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

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// ValidatingResourcePolicyKind is the kind of policy documents.
	ValidatingResourcePolicyKind = "ValidatingResourcePolicy"
)

// ValidatingResourcePolicy is a named set of CEL rules that resources must
// satisfy before being reconciled.
type ValidatingResourcePolicy struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec ValidatingResourcePolicySpec `json:"spec,omitempty"`
}

// ValidatingResourcePolicySpec defines the rules of a ValidatingResourcePolicy.
type ValidatingResourcePolicySpec struct {
	// FailurePolicy applies to every rule that does not declare its own.
	// Defaults to FAIL.
	//
	// +kubebuilder:validation:Optional
	// +kubebuilder:validation:Enum=FAIL;WARN
	FailurePolicy FailurePolicy `json:"failurePolicy,omitempty"`
	// Selector restricts the resources the policy applies to. A policy
	// without selector applies to every resource.
	//
	// +kubebuilder:validation:Optional
	Selector *ResourceSelector `json:"selector,omitempty"`
	// Rules are evaluated in order.
	//
	// +kubebuilder:validation:Required
	Rules []ValidationRule `json:"rules,omitempty"`
}

// ResourceSelector decides whether a policy applies to a resource.
type ResourceSelector struct {
	// MatchResources matches on apiVersion and kind. A resource matching
	// any entry is selected.
	MatchResources []ResourceMatcher `json:"matchResources,omitempty"`
	// LabelSelector is a Kubernetes style label selector evaluated against
	// metadata.labels.
	LabelSelector *metav1.LabelSelector `json:"labelSelector,omitempty"`
	// MatchExpressions are selector expressions, for example
	// "metadata.labels.env in (production, staging)".
	MatchExpressions []string `json:"matchExpressions,omitempty"`
	// Strategy combines the selectors above. Defaults to ALL.
	//
	// +kubebuilder:validation:Enum=ALL;ANY;NONE
	Strategy SelectorStrategy `json:"strategy,omitempty"`
}

// ResourceMatcher matches resources by apiVersion and kind. Empty fields
// match everything.
type ResourceMatcher struct {
	APIVersion string `json:"apiVersion,omitempty"`
	Kind       string `json:"kind,omitempty"`
}

// ValidationRule is a single CEL rule.
type ValidationRule struct {
	// Name identifies the rule in the failures reported by the policy.
	//
	// +kubebuilder:validation:Required
	Name string `json:"name,omitempty"`
	// Expression must evaluate to a bool. false means the rule is violated.
	//
	// +kubebuilder:validation:Required
	Expression string `json:"expression,omitempty"`
	// MessageExpression must evaluate to a string and is rendered when the
	// rule is violated.
	MessageExpression string `json:"messageExpression,omitempty"`
	// Message is used when no MessageExpression is set.
	Message string `json:"message,omitempty"`
	// FailurePolicy overrides the policy wide failure policy.
	FailurePolicy FailurePolicy `json:"failurePolicy,omitempty"`
}
