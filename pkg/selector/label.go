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

package selector

import (
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"

	"github.com/kro-run/reconciler/pkg/resource"
)

// labelSelector matches metadata.labels with Kubernetes label selector
// semantics.
type labelSelector struct {
	selector labels.Selector
}

// ParseLabelSelector parses a Kubernetes label selector string, e.g.
// `env in (production, staging),!deprecated`.
func ParseLabelSelector(s string) (Selector, error) {
	sel, err := labels.Parse(s)
	if err != nil {
		return nil, &InvalidSelectorError{Input: s, Reason: err.Error()}
	}
	return &labelSelector{selector: sel}, nil
}

// NewLabelSelector converts a metav1.LabelSelector. A nil selector matches
// nothing and an empty one matches everything, as in Kubernetes.
func NewLabelSelector(ls *metav1.LabelSelector) (Selector, error) {
	sel, err := metav1.LabelSelectorAsSelector(ls)
	if err != nil {
		return nil, fmt.Errorf("invalid label selector: %w", err)
	}
	return &labelSelector{selector: sel}, nil
}

func (s *labelSelector) Matches(r resource.Resource) bool {
	if r == nil {
		return false
	}
	return s.selector.Matches(labels.Set(r.GetLabels()))
}

func (s *labelSelector) String() string {
	return s.selector.String()
}

// MatchResource matches resources by apiVersion and kind. Empty fields
// match any value.
func MatchResource(apiVersion, kind string) Selector {
	return Func(func(r resource.Resource) bool {
		if r == nil {
			return false
		}
		if apiVersion != "" && r.GetAPIVersion() != apiVersion {
			return false
		}
		return kind == "" || r.GetKind() == kind
	})
}

// MatchName matches resources by metadata.name.
func MatchName(names ...string) Selector {
	return Func(func(r resource.Resource) bool {
		if r == nil {
			return false
		}
		for _, n := range names {
			if r.GetName() == n {
				return true
			}
		}
		return false
	})
}
