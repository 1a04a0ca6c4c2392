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

package commands

import (
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/release-utils/version"

	"github.com/kro-run/reconciler/pkg/client"
	"github.com/kro-run/reconciler/pkg/provider"
	"github.com/kro-run/reconciler/pkg/provider/kubernetes"
)

// Options are the flags shared by every command.
type Options struct {
	KubeConfig  string
	KubeContext string
	Impersonate string
	Namespace   string
	LogLevel    int
	Concurrency int
	QPS         float32
	Burst       int

	// newClients is replaced in tests.
	newClients func(o *Options) (*client.Set, error)
}

func NewOptions() *Options {
	return &Options{newClients: newClientSet}
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.KubeConfig, "kubeconfig", o.KubeConfig, "Path to kubeconfig file")
	fs.StringVar(&o.KubeContext, "context", "", "Kubernetes context to use")
	fs.StringVar(&o.Impersonate, "as", "", "Username to impersonate for every API call")
	fs.StringVarP(&o.Namespace, "namespace", "n", "", "Namespace of namespaced resources without one, and the only namespace listed when set")
	fs.IntVar(&o.LogLevel, "log-level", 0, "The log level verbosity. 0 is the least verbose, 5 is the most verbose.")
	fs.IntVar(&o.Concurrency, "concurrency", 4, "The number of changes applied in parallel")
	fs.Float32Var(&o.QPS, "qps", 20, "The maximum queries per second to the API server")
	fs.IntVar(&o.Burst, "burst", 40, "The maximum burst of queries to the API server")
}

type customLevelEnabler struct {
	level int
}

func (c customLevelEnabler) Enabled(lvl zapcore.Level) bool {
	return -int(lvl) <= c.level
}

// Logger returns the root logger writing to w.
func (o *Options) Logger(w io.Writer) logr.Logger {
	opts := zap.Options{
		Development: true,
		Level:       customLevelEnabler{level: o.LogLevel},
		TimeEncoder: zapcore.ISO8601TimeEncoder,
		DestWriter:  w,
	}
	return zap.New(zap.UseFlagOptions(&opts))
}

func newClientSet(o *Options) (*client.Set, error) {
	var restConfig *rest.Config
	if o.KubeConfig != "" || o.KubeContext != "" {
		rules := clientcmd.NewDefaultClientConfigLoadingRules()
		rules.ExplicitPath = o.KubeConfig
		overrides := &clientcmd.ConfigOverrides{CurrentContext: o.KubeContext}

		var err error
		restConfig, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
		}
	}
	return client.NewSet(client.Config{
		RestConfig:      restConfig,
		ImpersonateUser: o.Impersonate,
		QPS:             o.QPS,
		Burst:           o.Burst,
		UserAgent:       "recon/" + version.GetVersionInfo().GitVersion,
	})
}

// registry returns the provider registry with every built-in provider.
func (o *Options) registry(set *client.Set) (*provider.Registry, error) {
	r := provider.NewRegistry()
	if err := kubernetes.Register(r, set.Dynamic()); err != nil {
		return nil, err
	}
	return r, nil
}

func (o *Options) providerConfig(log logr.Logger, deleteOrphans bool) provider.Config {
	return provider.Config{
		Log:               log,
		Namespace:         o.Namespace,
		Concurrency:       o.Concurrency,
		DeleteOrphans:     deleteOrphans,
		QPS:               float64(o.QPS),
		Burst:             o.Burst,
		ReconcilerVersion: version.GetVersionInfo().GitVersion,
	}
}
