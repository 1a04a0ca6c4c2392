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

package kubernetes

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"

	"github.com/kro-run/reconciler/pkg/controller"
	"github.com/kro-run/reconciler/pkg/metadata"
	"github.com/kro-run/reconciler/pkg/resource"
	"github.com/kro-run/reconciler/pkg/selector"
)

const (
	// LabelSelectorConfig is the reconciliation context configuration key
	// holding an additional label selector applied when listing.
	LabelSelectorConfig = "labelSelector"

	listPageSize = 500
)

// Collector lists the resources of a single kind managed by the reconciler.
type Collector struct {
	client    dynamic.Interface
	gvk       schema.GroupVersionKind
	gvr       schema.GroupVersionResource
	namespace string
}

var _ controller.Collector[*unstructured.Unstructured] = &Collector{}

func NewCollector(client dynamic.Interface, gvk schema.GroupVersionKind, namespace string) *Collector {
	return &Collector{
		client:    client,
		gvk:       gvk,
		gvr:       metadata.GVKtoGVR(gvk),
		namespace: namespace,
	}
}

// ListAll lists the managed resources, page by page, sorted by namespace and
// name. Resources created outside of the reconciler are never returned, so
// they are never deleted.
func (c *Collector) ListAll(ctx context.Context, _ selector.Selector) (resource.List[*unstructured.Unstructured], error) {
	labelSelector, err := c.labelSelector(ctx)
	if err != nil {
		return resource.List[*unstructured.Unstructured]{}, err
	}

	var items []*unstructured.Unstructured
	opts := metav1.ListOptions{LabelSelector: labelSelector, Limit: listPageSize}
	for {
		list, err := c.client.Resource(c.gvr).Namespace(c.namespace).List(ctx, opts)
		if err != nil {
			return resource.List[*unstructured.Unstructured]{}, fmt.Errorf("failed to list %s: %w", c.gvr.String(), err)
		}
		for i := range list.Items {
			items = append(items, &list.Items[i])
		}
		if list.GetContinue() == "" {
			break
		}
		opts.Continue = list.GetContinue()
	}

	slices.SortFunc(items, func(a, b *unstructured.Unstructured) int {
		return strings.Compare(resource.NamespacedNameKey(a), resource.NamespacedNameKey(b))
	})
	return resource.NewList(c.gvk.GroupVersion().String(), c.gvk.Kind+"List", items), nil
}

func (c *Collector) labelSelector(ctx context.Context) (string, error) {
	sel := labels.SelectorFromSet(labels.Set{metadata.ManagedLabel: "true"})
	rc, ok := controller.ContextFrom(ctx)
	if !ok {
		return sel.String(), nil
	}
	extra, ok := rc.Configuration[LabelSelectorConfig].(string)
	if !ok || extra == "" {
		return sel.String(), nil
	}

	parsed, err := labels.Parse(extra)
	if err != nil {
		return "", &selector.InvalidSelectorError{Input: extra, Reason: err.Error()}
	}
	requirements, _ := parsed.Requirements()
	return sel.Add(requirements...).String(), nil
}
