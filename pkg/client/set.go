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

package client

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	ctrlrtconfig "sigs.k8s.io/controller-runtime/pkg/client/config"

	"github.com/kro-run/reconciler/pkg/metadata"
)

// Set provides a unified interface for different Kubernetes clients
type Set struct {
	config     *rest.Config
	kubernetes kubernetes.Interface
	dynamic    dynamic.Interface
}

// Config holds configuration for client creation
type Config struct {
	RestConfig      *rest.Config
	ImpersonateUser string
	QPS             float32
	Burst           int
	UserAgent       string
}

// NewSet creates a new client Set with the given config
func NewSet(cfg Config) (*Set, error) {
	var err error
	config := cfg.RestConfig

	if config == nil {
		config, err = ctrlrtconfig.GetConfig()
		if err != nil {
			return nil, err
		}
	}

	if cfg.ImpersonateUser != "" {
		config = rest.CopyConfig(config)
		config.Impersonate = rest.ImpersonationConfig{
			UserName: cfg.ImpersonateUser,
		}
	}

	// Set default QPS and burst
	if config.QPS == 0 {
		config.QPS = cfg.QPS
	}
	if config.Burst == 0 {
		config.Burst = cfg.Burst
	}
	config.UserAgent = cfg.UserAgent
	if config.UserAgent == "" {
		config.UserAgent = rest.DefaultKubernetesUserAgent()
	}

	c := &Set{config: config}
	if err := c.init(); err != nil {
		return nil, err
	}

	return c, nil
}

// NewSetForClients wraps existing clients, mostly for tests.
func NewSetForClients(kube kubernetes.Interface, dyn dynamic.Interface) *Set {
	return &Set{
		config:     &rest.Config{},
		kubernetes: kube,
		dynamic:    dyn,
	}
}

func (c *Set) init() error {
	var err error

	c.kubernetes, err = kubernetes.NewForConfig(c.config)
	if err != nil {
		return err
	}

	c.dynamic, err = dynamic.NewForConfig(c.config)
	if err != nil {
		return err
	}

	return nil
}

// Kubernetes returns the standard Kubernetes clientset
func (c *Set) Kubernetes() kubernetes.Interface {
	return c.kubernetes
}

// Dynamic returns the dynamic client
func (c *Set) Dynamic() dynamic.Interface {
	return c.dynamic
}

// Discovery returns the discovery client
func (c *Set) Discovery() discovery.DiscoveryInterface {
	return c.kubernetes.Discovery()
}

// RESTConfig returns a copy of the underlying REST config
func (c *Set) RESTConfig() *rest.Config {
	return rest.CopyConfig(c.config)
}

// ResourceScope describes how a kind is served by the API server.
type ResourceScope struct {
	Resource   schema.GroupVersionResource
	Namespaced bool
}

// ResolveScope looks gvk up with the discovery client. When discovery has
// no answer the resource name is derived from the kind and the kind is
// assumed to be namespaced.
func (c *Set) ResolveScope(gvk schema.GroupVersionKind) (ResourceScope, error) {
	fallback := ResourceScope{Resource: metadata.GVKtoGVR(gvk), Namespaced: true}

	resources, err := c.Discovery().ServerResourcesForGroupVersion(gvk.GroupVersion().String())
	if err != nil {
		return fallback, fmt.Errorf("failed to discover %s: %w", gvk.GroupVersion(), err)
	}
	for _, r := range resources.APIResources {
		// subresources share the kind of their parent.
		if r.Kind != gvk.Kind || strings.Contains(r.Name, "/") {
			continue
		}
		return ResourceScope{
			Resource:   gvk.GroupVersion().WithResource(r.Name),
			Namespaced: r.Namespaced,
		}, nil
	}
	return fallback, nil
}
