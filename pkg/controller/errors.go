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
	"errors"
	"fmt"
	"strings"

	"github.com/kro-run/reconciler/api/v1alpha1"
	"github.com/kro-run/reconciler/pkg/policy"
)

var (
	// ErrUnsupportedMode is returned when a controller is asked to
	// reconcile with a mode it does not support.
	ErrUnsupportedMode = errors.New("unsupported reconciliation mode")
)

// PolicyViolationError is returned when desired resources violate a
// policy with a FAIL failure policy.
type PolicyViolationError struct {
	Results []policy.Result
}

func (e *PolicyViolationError) Error() string {
	var violations []string
	for _, r := range e.Results {
		for _, f := range r.RuleFailures {
			if f.FailurePolicy.OrDefault() != v1alpha1.FailurePolicyFail {
				continue
			}
			violations = append(violations, fmt.Sprintf("%s: %s/%s: %s", r.Resource, r.PolicyName, f.RuleID, f.Message))
		}
	}
	return fmt.Sprintf("resources violate policies: %s", strings.Join(violations, "; "))
}

// IsPolicyViolation returns true if err is, or wraps, a PolicyViolationError.
func IsPolicyViolation(err error) bool {
	var target *PolicyViolationError
	return errors.As(err, &target)
}
