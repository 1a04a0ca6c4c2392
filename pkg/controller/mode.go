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
	"github.com/kro-run/reconciler/pkg/change"
)

// OperationsFor returns the change operations a mode applies. NONE is
// always included so unchanged resources are reported.
func OperationsFor(mode ReconciliationMode) []change.Operation {
	switch mode {
	case ModeCreate:
		return []change.Operation{change.OperationCreate, change.OperationNone}
	case ModeUpdate:
		return []change.Operation{change.OperationUpdate, change.OperationNone}
	case ModeDelete:
		return []change.Operation{change.OperationDelete, change.OperationNone}
	case ModeApplyAll:
		return change.Operations
	}
	return nil
}

// FilterByMode returns the changes a mode applies, in order.
func FilterByMode(changes []change.ResourceChange, mode ReconciliationMode) []change.ResourceChange {
	return change.FilterByOperation(changes, OperationsFor(mode)...)
}

// GroupBy groups resources by key, e.g. by target cluster or namespace, so
// that each group can be reconciled on its own. It returns the keys in
// order of first appearance.
func GroupBy[R any](resources []R, key func(R) string) (map[string][]R, []string) {
	groups := map[string][]R{}
	var keys []string
	for _, r := range resources {
		k := key(r)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], r)
	}
	return groups, keys
}
