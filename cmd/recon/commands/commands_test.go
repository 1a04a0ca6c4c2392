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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	fakediscovery "k8s.io/client-go/discovery/fake"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	kubefake "k8s.io/client-go/kubernetes/fake"

	"github.com/kro-run/reconciler/pkg/client"
	"github.com/kro-run/reconciler/pkg/controller"
	"github.com/kro-run/reconciler/pkg/metadata"
	"github.com/kro-run/reconciler/pkg/selector"
)

const topics = `
apiVersion: kafka.kro.run/v1
kind: KafkaTopic
metadata:
  name: orders
  labels:
    env: production
spec:
  partitions: 6
---
# comments only
---
apiVersion: v1
kind: List
items:
- apiVersion: kafka.kro.run/v1
  kind: KafkaTopic
  metadata:
    name: scratch
    namespace: sandbox
  spec:
    partitions: 1
`

const partitionsPolicy = `
apiVersion: reconciler.kro.run/v1alpha1
kind: ValidatingResourcePolicy
metadata:
  name: partitions
spec:
  selector:
    matchResources:
    - kind: KafkaTopic
  rules:
  - name: min-partitions
    expression: resource.spec.partitions >= 3
    messageExpression: "'topic ' + resource.metadata.name + ' has too few partitions'"
`

const partitionsWarning = `
apiVersion: reconciler.kro.run/v1alpha1
kind: ValidatingResourcePolicy
metadata:
  name: partitions
spec:
  failurePolicy: WARN
  rules:
  - name: min-partitions
    expression: resource.spec.partitions >= 3
    messageExpression: "'topic ' + resource.metadata.name + ' has too few partitions'"
`

var topicGVR = schema.GroupVersionResource{Group: "kafka.kro.run", Version: "v1", Resource: "kafkatopics"}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newFakeClientSet() (*client.Set, *dynamicfake.FakeDynamicClient) {
	kube := kubefake.NewSimpleClientset()
	kube.Discovery().(*fakediscovery.FakeDiscovery).Resources = []*metav1.APIResourceList{{
		GroupVersion: "kafka.kro.run/v1",
		APIResources: []metav1.APIResource{{Name: "kafkatopics", Kind: "KafkaTopic", Namespaced: true}},
	}}
	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), map[schema.GroupVersionResource]string{
		topicGVR: "KafkaTopicList",
	})
	return client.NewSetForClients(kube, dyn), dyn
}

func execute(o *Options, args ...string) (string, error) {
	text.DisableColors()
	cmd := NewRootCommand(o)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDecodeResources(t *testing.T) {
	resources, err := decodeResources(strings.NewReader(topics))
	require.NoError(t, err)
	require.Len(t, resources, 2)

	assert.Equal(t, "orders", resources[0].GetName())
	assert.Equal(t, "production", resources[0].GetLabels()["env"])
	partitions, found, err := unstructured.NestedInt64(resources[0].Object, "spec", "partitions")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(6), partitions)

	assert.Equal(t, "scratch", resources[1].GetName())
	assert.Equal(t, "sandbox", resources[1].GetNamespace())

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"missing kind", "apiVersion: v1\nmetadata:\n  name: a\n", "Kind"},
		{"missing apiVersion", "kind: ConfigMap\nmetadata:\n  name: a\n", "apiVersion not found"},
		{"missing name", "apiVersion: v1\nkind: ConfigMap\n", "ConfigMap has no name"},
		{"invalid yaml", "apiVersion: [v1\n", "document 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeResources(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadResources(t *testing.T) {
	path := writeFile(t, "topics.yaml", topics)
	resources, err := loadResources(strings.NewReader(topics), path, "-")
	require.NoError(t, err)
	assert.Len(t, resources, 4)

	_, err = loadResources(nil, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGroupByKind(t *testing.T) {
	resources, err := decodeResources(strings.NewReader(topics + `
---
apiVersion: v1
kind: ConfigMap
metadata:
  name: settings
`))
	require.NoError(t, err)

	groups := groupByKind(resources)
	require.Len(t, groups, 2)
	assert.Equal(t, "KafkaTopic", groups[0].GVK.Kind)
	assert.Len(t, groups[0].Resources, 2)
	assert.Equal(t, schema.GroupVersionKind{Version: "v1", Kind: "ConfigMap"}, groups[1].GVK)
}

func TestOptionsFlags(t *testing.T) {
	o := NewOptions()
	fs := pflag.NewFlagSet("recon", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{"--as", "system:serviceaccount:kafka:recon", "-n", "kafka", "--qps", "5", "--concurrency", "2"}))
	assert.Equal(t, "system:serviceaccount:kafka:recon", o.Impersonate)
	assert.Equal(t, "kafka", o.Namespace)
	assert.Equal(t, 2, o.Concurrency)
	assert.Equal(t, 40, o.Burst)

	cfg := o.providerConfig(o.Logger(&bytes.Buffer{}), true)
	assert.Equal(t, "kafka", cfg.Namespace)
	assert.Equal(t, float64(5), cfg.QPS)
	assert.True(t, cfg.DeleteOrphans)
}

func TestReconcileOptions(t *testing.T) {
	ro := &reconcileOptions{Mode: "apply_all"}
	mode, err := ro.mode()
	require.NoError(t, err)
	assert.Equal(t, controller.ModeApplyAll, mode)

	ro.Mode = "sync"
	_, err = ro.mode()
	assert.ErrorIs(t, err, controller.ErrUnsupportedMode)

	sel, err := ro.selector()
	require.NoError(t, err)
	assert.Nil(t, sel)

	ro.Selectors = []string{"label:env in (production)"}
	ro.LabelSelector = "team=data"
	ro.Strategy = "any"
	sel, err = ro.selector()
	require.NoError(t, err)
	agg, ok := sel.(*selector.Aggregate)
	require.True(t, ok)
	assert.Equal(t, selector.Any, agg.Strategy())
	assert.Equal(t, 2, agg.Len())

	ro.Selectors = []string{"env in production)"}
	_, err = ro.selector()
	assert.True(t, selector.IsInvalidSelector(err))
}

func TestValidateCommand(t *testing.T) {
	policyFile := writeFile(t, "policy.yaml", partitionsPolicy)

	out, err := execute(NewOptions(), "validate", "-f", writeFile(t, "topics.yaml", `
apiVersion: kafka.kro.run/v1
kind: KafkaTopic
metadata:
  name: orders
spec:
  partitions: 6
`), "--policy", policyFile)
	require.NoError(t, err)
	assert.Contains(t, out, "compliant")
	assert.Contains(t, out, "1 resource(s) valid against 1 policies")

	out, err = execute(NewOptions(), "validate", "-f", writeFile(t, "topics.yaml", topics), "--policy", policyFile)
	require.Error(t, err)
	assert.True(t, controller.IsPolicyViolation(err))
	assert.Contains(t, out, "topic scratch has too few partitions")

	_, err = execute(NewOptions(), "validate", "--policy", policyFile)
	assert.Error(t, err)
}

func TestApplyAndDiffCommands(t *testing.T) {
	set, dyn := newFakeClientSet()
	o := NewOptions()
	o.newClients = func(*Options) (*client.Set, error) { return set, nil }

	file := writeFile(t, "topics.yaml", `
apiVersion: kafka.kro.run/v1
kind: KafkaTopic
metadata:
  name: orders
spec:
  partitions: 6
---
apiVersion: kafka.kro.run/v1
kind: KafkaTopic
metadata:
  name: payments
spec:
  partitions: 3
`)

	out, err := execute(o, "diff", "-f", file)
	require.NoError(t, err)
	assert.Contains(t, out, "2 to create, 0 to update, 0 to delete, 0 unchanged")

	out, err = execute(o, "apply", "-f", file, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "ok=0, changed=2, failed=0")
	list, err := dyn.Resource(topicGVR).Namespace("default").List(context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	out, err = execute(o, "apply", "-f", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Create KafkaTopic 'orders' in namespace 'default'")

	created, err := dyn.Resource(topicGVR).Namespace("default").Get(context.Background(), "orders", metav1.GetOptions{})
	require.NoError(t, err)
	assert.True(t, metadata.IsManaged(created))

	out, err = execute(o, "diff", "-f", file)
	require.NoError(t, err)
	assert.Contains(t, out, "0 to create, 0 to update, 0 to delete, 2 unchanged")

	out, err = execute(o, "diff", "-f", file, "--mode", "DELETE", "--selector", "metadata.name == orders")
	require.NoError(t, err)
	assert.Contains(t, out, "0 to create, 0 to update, 0 to delete, 1 unchanged")
}

func TestApplyPolicyGate(t *testing.T) {
	set, dyn := newFakeClientSet()
	o := NewOptions()
	o.newClients = func(*Options) (*client.Set, error) { return set, nil }

	_, err := execute(o, "apply", "-f", writeFile(t, "topics.yaml", topics), "--policy", writeFile(t, "policy.yaml", partitionsPolicy))
	require.Error(t, err)
	assert.True(t, controller.IsPolicyViolation(err))

	list, err := dyn.Resource(topicGVR).List(context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestApplyPolicyWarnings(t *testing.T) {
	set, dyn := newFakeClientSet()
	o := NewOptions()
	o.newClients = func(*Options) (*client.Set, error) { return set, nil }

	out, err := execute(o, "apply", "-f", writeFile(t, "topics.yaml", topics), "--policy", writeFile(t, "policy.yaml", partitionsWarning))
	require.NoError(t, err)
	assert.Contains(t, out, "topic scratch has too few partitions")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "ok=0, changed=2, failed=0")

	_, err = dyn.Resource(topicGVR).Namespace("sandbox").Get(context.Background(), "scratch", metav1.GetOptions{})
	require.NoError(t, err)

	// compliant resources print no policy table
	out, err = execute(o, "diff", "-f", writeFile(t, "orders.yaml", topics[:strings.Index(topics, "---")]), "--policy", writeFile(t, "policy.yaml", partitionsWarning))
	require.NoError(t, err)
	assert.NotContains(t, out, "min-partitions")
}
