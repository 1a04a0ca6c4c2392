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
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"

	"github.com/kro-run/reconciler/pkg/change"
	"github.com/kro-run/reconciler/pkg/controller"
	"github.com/kro-run/reconciler/pkg/executor"
	"github.com/kro-run/reconciler/pkg/metadata"
	"github.com/kro-run/reconciler/pkg/provider"
	"github.com/kro-run/reconciler/pkg/resource"
)

// NewFactory returns a provider factory reconciling any kind served by the
// cluster behind client.
func NewFactory(client dynamic.Interface) provider.Factory {
	return func(gvk schema.GroupVersionKind, cfg provider.Config) (controller.Controller[*unstructured.Unstructured], error) {
		if gvk.Kind == "" || gvk.Version == "" {
			return nil, fmt.Errorf("invalid group version kind %q", gvk.String())
		}
		log := cfg.Log.WithValues("provider", handlerName, "gvk", gvk.String())

		computer := change.NewComputer[*unstructured.Unstructured](
			resource.NamespacedNameKey,
			change.NewGenericFactory[*unstructured.Unstructured](),
			change.WithDeleteOrphans(cfg.DeleteOrphans),
		)
		handlers := []executor.Handler{
			NewHandler(log, client, metadata.GVKtoGVR(gvk), HandlerOptions{
				Concurrency:       cfg.Concurrency,
				QPS:               cfg.QPS,
				Burst:             cfg.Burst,
				ReconcilerVersion: cfg.ReconcilerVersion,
			}),
			executor.NoneHandler{},
		}
		exec := executor.New(log, executor.Options{Concurrency: cfg.Concurrency})

		return controller.NewReconciler[*unstructured.Unstructured](
			log,
			NewCollector(client, gvk, cfg.Namespace),
			computer,
			exec,
			handlers,
		), nil
	}
}

// Register registers the provider for every kind.
func Register(r *provider.Registry, client dynamic.Interface) error {
	return r.Register(schema.GroupKind{Group: provider.Wildcard, Kind: provider.Wildcard}, NewFactory(client))
}
