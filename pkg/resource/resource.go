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

// Package resource defines the minimal shape of the resources handled by the
// reconciler: anything with an apiVersion, a kind and object metadata.
package resource

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
)

// Resource is a named, labeled unit of desired or actual configuration
// state. *unstructured.Unstructured implements it, which makes it the
// generic resource of the reconciler.
type Resource interface {
	GetAPIVersion() string
	GetKind() string
	GetName() string
	GetLabels() map[string]string
	GetAnnotations() map[string]string
}

// Mappable is implemented by typed resources that know how to render
// themselves as an untyped object tree. Values may be any Go type the
// unstructured converter accepts (ints, typed maps and slices, structs);
// they are normalised to JSON types by ToMap.
type Mappable interface {
	ToMap() map[string]interface{}
}

var _ Resource = &unstructured.Unstructured{}

// New returns a generic resource with the given identity and spec.
func New(apiVersion, kind, name string, spec map[string]interface{}) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{Object: map[string]interface{}{}}
	obj.SetAPIVersion(apiVersion)
	obj.SetKind(kind)
	obj.SetName(name)
	if spec != nil {
		obj.Object["spec"] = runtime.DeepCopyJSONValue(spec)
	}
	return obj
}

// ToMap renders a resource as an object tree with the usual top level keys
// (apiVersion, kind, metadata, spec). The returned map is always a copy and
// can be freely modified by the caller.
func ToMap(r Resource) (map[string]interface{}, error) {
	if r == nil {
		return nil, fmt.Errorf("resource is nil")
	}
	switch v := r.(type) {
	case *unstructured.Unstructured:
		return v.DeepCopy().Object, nil
	case Mappable:
		tree := v.ToMap()
		obj, err := runtime.DefaultUnstructuredConverter.ToUnstructured(&tree)
		if err != nil {
			return nil, fmt.Errorf("failed to convert %T to an object tree: %w", r, err)
		}
		if obj == nil {
			obj = map[string]interface{}{}
		}
		return obj, nil
	default:
		obj, err := runtime.DefaultUnstructuredConverter.ToUnstructured(r)
		if err != nil {
			return nil, fmt.Errorf("failed to convert %T to an object tree: %w", r, err)
		}
		return obj, nil
	}
}

// ToUnstructured is like ToMap but wraps the result.
func ToUnstructured(r Resource) (*unstructured.Unstructured, error) {
	obj, err := ToMap(r)
	if err != nil {
		return nil, err
	}
	return &unstructured.Unstructured{Object: obj}, nil
}
