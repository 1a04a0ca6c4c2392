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

package resource

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// KeyFunc extracts the identity of a resource. Two resources with the same
// key describe the same external object.
type KeyFunc[R Resource] func(R) string

// NameKey identifies resources by metadata.name.
func NameKey[R Resource](r R) string {
	return r.GetName()
}

// KindNameKey identifies resources by kind and metadata.name. It is useful
// when a single collection mixes several kinds.
func KindNameKey[R Resource](r R) string {
	if r.GetName() == "" {
		return ""
	}
	return r.GetKind() + "/" + r.GetName()
}

// NamespacedNameKey identifies Kubernetes objects by namespace and name.
func NamespacedNameKey(r *unstructured.Unstructured) string {
	if r.GetName() == "" {
		return ""
	}
	if ns := r.GetNamespace(); ns != "" {
		return ns + "/" + r.GetName()
	}
	return r.GetName()
}
