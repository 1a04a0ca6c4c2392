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
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/wait"
	clienttesting "k8s.io/client-go/testing"

	"github.com/kro-run/reconciler/pkg/change"
	"github.com/kro-run/reconciler/pkg/executor"
	"github.com/kro-run/reconciler/pkg/metadata"
	"github.com/kro-run/reconciler/pkg/resource"
	"github.com/kro-run/reconciler/pkg/retry"
)

var factory = change.NewGenericFactory[*unstructured.Unstructured]()

func mustChange(c change.ResourceChange, err error) change.ResourceChange {
	if err != nil {
		panic(err)
	}
	return c
}

func TestHandlerApply(t *testing.T) {
	client := newFakeClient(
		managed(newTopic("streaming", "orders", 3)),
		managed(newTopic("billing", "legacy", 1)),
	)
	h := NewHandler(logr.Discard(), client, topicGVR, HandlerOptions{Concurrency: 2, ReconcilerVersion: "v0.1.0"})

	orders, _ := getTopic(client, "streaming", "orders")
	legacy, _ := getTopic(client, "billing", "legacy")
	changes := []change.ResourceChange{
		mustChange(factory.CreateChangeForCreate("billing/payments", newTopic("billing", "payments", 6))),
		mustChange(factory.CreateChangeForUpdate("streaming/orders", orders, newTopic("streaming", "orders", 12))),
		mustChange(factory.CreateChangeForDelete("billing/legacy", legacy)),
		mustChange(factory.CreateChangeForUpdate("streaming/missing", newTopic("streaming", "missing", 1), newTopic("streaming", "missing", 2))),
	}

	ctx := executor.WithRunID(context.Background(), "run-1")
	responses := h.Apply(ctx, changes)
	require.Len(t, responses, len(changes))
	for i, resp := range responses {
		assert.Equal(t, changes[i].Key, resp.Change.Key)
	}
	assert.Empty(t, responses[0].Errors)
	assert.Empty(t, responses[1].Errors)
	assert.Empty(t, responses[2].Errors)
	require.Len(t, responses[3].Errors, 1)
	assert.True(t, apierrors.IsNotFound(responses[3].Errors[0]))
	assert.Contains(t, responses[3].Errors[0].Error(), "failed to update KafkaTopic missing")

	created, err := getTopic(client, "billing", "payments")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		metadata.ManagedLabel:           "true",
		metadata.ReconcilerVersionLabel: "v0.1.0",
		metadata.RunIDLabel:             "run-1",
	}, created.GetLabels())

	updated, err := getTopic(client, "streaming", "orders")
	require.NoError(t, err)
	partitions, _, _ := unstructured.NestedInt64(updated.Object, "spec", "partitions")
	assert.Equal(t, int64(12), partitions)
	assert.True(t, metadata.IsManaged(updated))

	_, err = getTopic(client, "billing", "legacy")
	assert.True(t, apierrors.IsNotFound(err))
}

func TestHandlerDeleteMissing(t *testing.T) {
	client := newFakeClient()
	h := NewHandler(logr.Discard(), client, topicGVR, HandlerOptions{})

	responses := h.Apply(context.Background(), []change.ResourceChange{
		mustChange(factory.CreateChangeForDelete("default/gone", newTopic("default", "gone", 1))),
	})
	require.Len(t, responses, 1)
	assert.Empty(t, responses[0].Errors)
}

func TestHandlerCanceledContext(t *testing.T) {
	client := newFakeClient()
	h := NewHandler(logr.Discard(), client, topicGVR, HandlerOptions{QPS: 1, Burst: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	responses := h.Apply(ctx, []change.ResourceChange{
		mustChange(factory.CreateChangeForCreate("default/a", newTopic("default", "a", 1))),
		mustChange(factory.CreateChangeForCreate("default/b", newTopic("default", "b", 1))),
	})
	require.Len(t, responses, 2)
	for _, resp := range responses {
		require.Len(t, resp.Errors, 1)
		assert.ErrorIs(t, resp.Errors[0], context.Canceled)
	}
	_, err := getTopic(client, "default", "a")
	assert.True(t, apierrors.IsNotFound(err))
}

func TestHandlerRetriesTransientErrors(t *testing.T) {
	client := newFakeClient(managed(newTopic("default", "orders", 3)))
	h := NewHandler(logr.Discard(), client, topicGVR, HandlerOptions{
		Backoff: wait.Backoff{Steps: 3, Duration: time.Millisecond, Factor: 1},
	})

	conflicts := 0
	client.PrependReactor("update", "kafkatopics", func(clienttesting.Action) (bool, runtime.Object, error) {
		if conflicts == 0 {
			conflicts++
			return true, nil, apierrors.NewConflict(topicGVR.GroupResource(), "orders", errors.New("object has been modified"))
		}
		return false, nil, nil
	})
	throttled := 0
	client.PrependReactor("create", "kafkatopics", func(clienttesting.Action) (bool, runtime.Object, error) {
		throttled++
		return true, nil, apierrors.NewTooManyRequests("slow down", 0)
	})

	orders, err := getTopic(client, "default", "orders")
	require.NoError(t, err)
	responses := h.Apply(context.Background(), []change.ResourceChange{
		mustChange(factory.CreateChangeForUpdate("default/orders", orders, newTopic("default", "orders", 6))),
		mustChange(factory.CreateChangeForCreate("default/payments", newTopic("default", "payments", 3))),
	})
	require.Len(t, responses, 2)

	assert.Empty(t, responses[0].Errors)
	assert.Equal(t, 1, conflicts)
	updated, err := getTopic(client, "default", "orders")
	require.NoError(t, err)
	partitions, _, _ := unstructured.NestedInt64(updated.Object, "spec", "partitions")
	assert.Equal(t, int64(6), partitions)

	require.Len(t, responses[1].Errors, 1)
	assert.True(t, apierrors.IsTooManyRequests(responses[1].Errors[0]))
	assert.Equal(t, 3, throttled)
}

func TestTransient(t *testing.T) {
	gr := topicGVR.GroupResource()

	tests := []struct {
		name      string
		err       error
		retryable bool
		after     time.Duration
	}{
		{"nil", nil, false, 0},
		{"not found", apierrors.NewNotFound(gr, "a"), false, 0},
		{"invalid", apierrors.NewBadRequest("invalid spec"), false, 0},
		{"conflict", apierrors.NewConflict(gr, "a", errors.New("modified")), true, 0},
		{"throttled", apierrors.NewTooManyRequests("slow down", 2), true, 2 * time.Second},
		{"server timeout", apierrors.NewServerTimeout(gr, "update", 0), true, 0},
		{"unavailable", apierrors.NewServiceUnavailable("starting"), true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, after := retry.IsRetryable(transient(tt.err))
			assert.Equal(t, tt.retryable, retryable)
			assert.Equal(t, tt.after, after)
		})
	}
}

func TestHandlerDescribe(t *testing.T) {
	h := NewHandler(logr.Discard(), newFakeClient(), topicGVR, HandlerOptions{})

	assert.Equal(t, "kubernetes", executor.HandlerName(h))
	assert.True(t, executor.Supports(h, change.OperationDelete))
	assert.False(t, executor.Supports(h, change.OperationNone))

	namespaced := mustChange(factory.CreateChangeForCreate("billing/payments", newTopic("billing", "payments", 1)))
	assert.Equal(t, "Create KafkaTopic 'payments' in namespace 'billing'", h.Describe(namespaced))

	clusterScoped := mustChange(factory.CreateChangeForDelete("payments", resource.New("kafka.kro.run/v1", "KafkaTopic", "payments", nil)))
	assert.Equal(t, "Delete KafkaTopic 'payments'", h.Describe(clusterScoped))
}
