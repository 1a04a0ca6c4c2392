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

package policy

import (
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/kro-run/reconciler/api/v1alpha1"
	"github.com/kro-run/reconciler/pkg/cel"
	"github.com/kro-run/reconciler/pkg/resource"
	"github.com/kro-run/reconciler/pkg/selector"
)

func newTopic(name string, partitions int64, env string) *unstructured.Unstructured {
	u := resource.New("kafka.kro.run/v1", "KafkaTopic", name, map[string]interface{}{
		"partitions": partitions,
		"replicas":   int64(3),
	})
	if env != "" {
		u.SetLabels(map[string]string{"env": env})
	}
	return u
}

func partitionsRule(t *testing.T, failurePolicy v1alpha1.FailurePolicy) Rule {
	t.Helper()
	rule, err := NewRule(
		"min-partitions",
		"resource.spec.partitions >= 6",
		"'topic ' + resource.metadata.name + ' has ' + string(resource.spec.partitions) + ' partitions, expected at least 6'",
		"",
		failurePolicy,
	)
	require.NoError(t, err)
	return rule
}

func TestEvaluate(t *testing.T) {
	p := New("topics", "", selector.MatchResource("", "KafkaTopic"), partitionsRule(t, ""))
	assert.Equal(t, v1alpha1.FailurePolicyFail, p.FailurePolicy)

	result, err := p.Evaluate(newTopic("orders", 3, ""))
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.False(t, result.Compliant())
	assert.True(t, result.Blocking())
	assert.Equal(t, "topics", result.PolicyName)
	assert.Equal(t, "KafkaTopic/orders", result.Resource)
	assert.Equal(t, []RuleFailure{{
		RuleID:        "min-partitions",
		Message:       "topic orders has 3 partitions, expected at least 6",
		FailurePolicy: v1alpha1.FailurePolicyFail,
	}}, result.RuleFailures)

	result, err = p.Evaluate(newTopic("payments", 12, ""))
	require.NoError(t, err)
	assert.True(t, result.Compliant())
	assert.Empty(t, result.RuleFailures)
}

func TestEvaluateNotAccepted(t *testing.T) {
	p := New("users", v1alpha1.FailurePolicyWarn, selector.MatchResource("", "KafkaUser"), partitionsRule(t, ""))

	topic := newTopic("orders", 3, "")
	assert.False(t, p.CanAccept(topic))

	result, err := p.Evaluate(topic)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.True(t, result.Compliant())
	assert.Equal(t, v1alpha1.FailurePolicyWarn, result.FailurePolicy)
}

func TestEvaluateWithoutSelector(t *testing.T) {
	p := New("all", "", nil, partitionsRule(t, ""))
	assert.True(t, p.CanAccept(newTopic("orders", 3, "")))
	assert.False(t, p.CanAccept(nil))
}

func TestEvaluateMessages(t *testing.T) {
	static, err := NewRule("replicas", "resource.spec.replicas > 3", "", "not enough replicas", "")
	require.NoError(t, err)
	fallback, err := NewRule("named", "resource.metadata.name.startsWith('shop-')", "", "", v1alpha1.FailurePolicyWarn)
	require.NoError(t, err)

	p := New("topics", "", nil, static, fallback)
	result, err := p.Evaluate(newTopic("orders", 12, ""))
	require.NoError(t, err)
	require.Len(t, result.RuleFailures, 2)
	assert.Equal(t, "not enough replicas", result.RuleFailures[0].Message)
	assert.Equal(t, v1alpha1.FailurePolicyFail, result.RuleFailures[0].FailurePolicy)
	assert.Equal(t, "failed expression: resource.metadata.name.startsWith('shop-')", result.RuleFailures[1].Message)
	assert.Equal(t, v1alpha1.FailurePolicyWarn, result.RuleFailures[1].FailurePolicy)
	assert.Equal(t, "resource.spec.replicas > 3", static.Expression())
}

func TestEvaluateError(t *testing.T) {
	rule, err := NewRule("retention", "resource.spec.configs['retention.ms'] != '-1'", "", "", "")
	require.NoError(t, err)

	_, err = New("topics", "", nil, rule).Evaluate(newTopic("orders", 3, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "policy topics, rule retention")
}

// typedTopic renders itself with plain Go values.
type typedTopic struct {
	name       string
	tier       string
	partitions int
	configs    map[string]string
}

func (t *typedTopic) GetAPIVersion() string { return "kafka.kro.run/v1" }
func (t *typedTopic) GetKind() string { return "KafkaTopic" }
func (t *typedTopic) GetName() string { return t.name }
func (t *typedTopic) GetLabels() map[string]string { return nil }
func (t *typedTopic) GetAnnotations() map[string]string { return nil }

func (t *typedTopic) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"apiVersion": t.GetAPIVersion(),
		"kind":       t.GetKind(),
		"metadata":   map[string]interface{}{"name": t.name},
		"spec": map[string]interface{}{
			"partitions": t.partitions,
			"configs":    t.configs,
		},
	}
}

func TestEvaluateTypedResources(t *testing.T) {
	accessors := selector.NewAccessorRegistry(selector.NewFieldTable("topic", map[string]func(*typedTopic) interface{}{
		"tier": func(t *typedTopic) interface{} { return t.tier },
	}))
	gold, err := selector.Parse("tier in (gold)", selector.WithAccessors(accessors))
	require.NoError(t, err)

	retention, err := NewRule(
		"retention",
		"resource.spec.configs['retention.ms'] != '-1'",
		"'topic ' + resource.metadata.name + ' keeps data forever'",
		"",
		"",
	)
	require.NoError(t, err)
	p := New("gold-topics", "", gold, partitionsRule(t, ""), retention)

	orders := &typedTopic{name: "orders", tier: "gold", partitions: 3, configs: map[string]string{"retention.ms": "-1"}}
	require.True(t, p.CanAccept(orders))

	var result Result
	require.NotPanics(t, func() { result, err = p.Evaluate(orders) })
	require.NoError(t, err)
	assert.Equal(t, []RuleFailure{
		{RuleID: "min-partitions", Message: "topic orders has 3 partitions, expected at least 6", FailurePolicy: v1alpha1.FailurePolicyFail},
		{RuleID: "retention", Message: "topic orders keeps data forever", FailurePolicy: v1alpha1.FailurePolicyFail},
	}, result.RuleFailures)

	bronze := &typedTopic{name: "scratch", tier: "bronze", partitions: 1}
	assert.False(t, p.CanAccept(bronze))

	valid, results := NewValidator(logr.Discard(), p).Validate(orders)
	assert.False(t, valid)
	require.Len(t, results, 1)
	assert.Equal(t, "KafkaTopic/orders", results[0].Resource)
}

func TestNewRuleErrors(t *testing.T) {
	_, err := NewRule("", "true", "", "", "")
	assert.Error(t, err)

	_, err = NewRule("text", "'text'", "", "", "")
	require.Error(t, err)
	assert.True(t, cel.IsCompileError(err))
	assert.Contains(t, err.Error(), "expected type 'bool' but found 'string'")

	_, err = NewRule("message", "true", "resource.spec.partitions > 1", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected type 'string' but found 'bool'")
}

func TestValidator(t *testing.T) {
	warn := New("naming", v1alpha1.FailurePolicyWarn, nil, mustRule(t, "prefix", "resource.metadata.name.startsWith('shop-')"))
	fail := New("partitions", "", selector.MatchResource("", "KafkaTopic"), partitionsRule(t, ""))
	override := New("production", "", nil, partitionsRule(t, v1alpha1.FailurePolicyWarn))

	tests := []struct {
		name        string
		policies    []*ResourcePolicy
		resource    resource.Resource
		wantValid   bool
		wantResults int
	}{
		{"warn only", []*ResourcePolicy{warn}, newTopic("orders", 3, ""), true, 1},
		{"fail violated", []*ResourcePolicy{warn, fail}, newTopic("orders", 3, ""), false, 2},
		{"fail satisfied", []*ResourcePolicy{warn, fail}, newTopic("shop-orders", 12, ""), true, 2},
		{"rule override to warn", []*ResourcePolicy{override}, newTopic("orders", 3, ""), true, 1},
		{"policy not accepting", []*ResourcePolicy{fail}, resource.New("kafka.kro.run/v1", "KafkaUser", "bob", nil), true, 0},
		{"no policies", nil, newTopic("orders", 3, ""), true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, results := NewValidator(logr.Discard(), tt.policies...).Validate(tt.resource)
			assert.Equal(t, tt.wantValid, valid)
			assert.Len(t, results, tt.wantResults)
		})
	}
}

func TestValidatorEvaluationError(t *testing.T) {
	p := New("retention", v1alpha1.FailurePolicyWarn, nil, mustRule(t, "retention", "resource.spec.configs['retention.ms'] != '-1'"))

	valid, results := NewValidator(logr.Discard(), p).Validate(newTopic("orders", 3, ""))
	assert.True(t, valid)
	require.Len(t, results, 1)
	require.Len(t, results[0].RuleFailures, 1)
	assert.Equal(t, "evaluation", results[0].RuleFailures[0].RuleID)

	p.FailurePolicy = v1alpha1.FailurePolicyFail
	valid, _ = NewValidator(logr.Discard(), p).Validate(newTopic("orders", 3, ""))
	assert.False(t, valid)
}

func TestValidateAll(t *testing.T) {
	v := NewValidator(logr.Discard(), New("partitions", "", nil, partitionsRule(t, "")))

	valid, results := ValidateAll(v, []*unstructured.Unstructured{newTopic("a", 12, ""), newTopic("b", 12, "")})
	assert.True(t, valid)
	assert.Len(t, results, 2)

	valid, results = ValidateAll(v, []*unstructured.Unstructured{newTopic("a", 12, ""), newTopic("b", 1, "")})
	assert.False(t, valid)
	assert.Len(t, results, 2)
	assert.Equal(t, 1, v.Policies())
}

func mustRule(t *testing.T, id, expr string) Rule {
	t.Helper()
	rule, err := NewRule(id, expr, "", "", "")
	require.NoError(t, err)
	return rule
}

func TestRef(t *testing.T) {
	assert.Equal(t, "KafkaTopic/orders", Ref(newTopic("orders", 1, "")))
	u := &unstructured.Unstructured{Object: map[string]interface{}{}}
	u.SetName("plain")
	assert.Equal(t, "plain", Ref(u))
	assert.True(t, strings.HasPrefix(Ref(newTopic("x", 1, "")), "KafkaTopic/"))
}
