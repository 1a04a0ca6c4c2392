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

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic/fake"

	"github.com/kro-run/reconciler/pkg/change"
	"github.com/kro-run/reconciler/pkg/controller"
	"github.com/kro-run/reconciler/pkg/executor"
	"github.com/kro-run/reconciler/pkg/metadata"
	"github.com/kro-run/reconciler/pkg/provider"
)

func operationsByKey(changes []change.ResourceChange) map[string]change.Operation {
	out := map[string]change.Operation{}
	for _, c := range changes {
		out[c.Key] = c.Operation
	}
	return out
}

var _ = Describe("Reconciling KafkaTopics", func() {
	var (
		ctx      context.Context
		client   *fake.FakeDynamicClient
		registry *provider.Registry
		desired  []*unstructured.Unstructured
	)

	newController := func(deleteOrphans bool) controller.Controller[*unstructured.Unstructured] {
		c, err := registry.Controller(topicGVK, provider.Config{
			Log:               logr.Discard(),
			Concurrency:       4,
			DeleteOrphans:     deleteOrphans,
			ReconcilerVersion: "v0.1.0",
		})
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	reconcile := func(c controller.Controller[*unstructured.Unstructured], mode controller.ReconciliationMode, dryRun bool) ([]change.ResourceChange, []executor.Result) {
		changes, err := c.ComputeReconciliationChanges(ctx, desired, mode, controller.Context{DryRun: dryRun})
		Expect(err).NotTo(HaveOccurred())
		results, err := c.Execute(ctx, changes, mode, dryRun)
		Expect(err).NotTo(HaveOccurred())
		return changes, results
	}

	BeforeEach(func() {
		ctx = context.Background()
		client = newFakeClient(
			managed(newTopic("default", "legacy", 1)),
			newTopic("default", "external", 1),
		)
		registry = provider.NewRegistry()
		Expect(Register(registry, client)).To(Succeed())
		desired = []*unstructured.Unstructured{
			newTopic("default", "orders", 6),
			newTopic("default", "payments", 3),
		}
	})

	It("should converge the cluster to the desired resources", func() {
		c := newController(true)

		changes, results := reconcile(c, controller.ModeApplyAll, false)
		Expect(operationsByKey(changes)).To(Equal(map[string]change.Operation{
			"default/orders":   change.OperationCreate,
			"default/payments": change.OperationCreate,
			"default/legacy":   change.OperationDelete,
		}))
		Expect(results).To(HaveLen(3))
		for _, r := range results {
			Expect(r.Status).To(Equal(executor.StatusChanged), r.Description)
		}

		created, err := getTopic(client, "default", "orders")
		Expect(err).NotTo(HaveOccurred())
		Expect(metadata.IsManaged(created)).To(BeTrue())
		Expect(created.GetLabels()).To(HaveKey(metadata.RunIDLabel))

		_, err = getTopic(client, "default", "legacy")
		Expect(apierrors.IsNotFound(err)).To(BeTrue())

		By("leaving unmanaged resources alone")
		_, err = getTopic(client, "default", "external")
		Expect(err).NotTo(HaveOccurred())

		By("computing no change once converged")
		changes, results = reconcile(c, controller.ModeApplyAll, false)
		Expect(change.FilterByOperation(changes, change.OperationNone)).To(HaveLen(2))
		Expect(executor.Summarize(results).OK).To(Equal(2))
	})

	It("should update drifted resources", func() {
		c := newController(true)
		reconcile(c, controller.ModeApplyAll, false)

		desired[0] = newTopic("default", "orders", 12)
		changes, results := reconcile(c, controller.ModeUpdate, false)
		Expect(changes).To(HaveLen(2))
		Expect(changes[0].Operation).To(Equal(change.OperationUpdate))
		sc, ok := changes[0].StateChange("spec.partitions")
		Expect(ok).To(BeTrue())
		Expect(sc.Before).To(Equal(int64(6)))
		Expect(sc.After).To(Equal(int64(12)))
		Expect(results[0].Description).To(Equal("Update KafkaTopic 'orders' (1 changed attribute) in namespace 'default'"))

		updated, err := getTopic(client, "default", "orders")
		Expect(err).NotTo(HaveOccurred())
		Expect(updated.Object["spec"]).To(HaveKeyWithValue("partitions", int64(12)))
	})

	It("should not touch the cluster in dry run", func() {
		c := newController(true)

		_, results := reconcile(c, controller.ModeApplyAll, true)
		Expect(executor.Summarize(results).Changed).To(Equal(3))

		list, err := client.Resource(topicGVR).Namespace("default").List(ctx, metav1.ListOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(list.Items).To(HaveLen(2))
	})

	It("should restrict changes to the reconciliation mode", func() {
		c := newController(true)

		changes, _ := reconcile(c, controller.ModeCreate, false)
		Expect(operationsByKey(changes)).NotTo(HaveKey("default/legacy"))

		_, err := getTopic(client, "default", "legacy")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should keep orphans when deletion is disabled", func() {
		c := newController(false)

		changes, _ := reconcile(c, controller.ModeApplyAll, false)
		Expect(change.FilterByOperation(changes, change.OperationDelete)).To(BeEmpty())

		_, err := getTopic(client, "default", "legacy")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject invalid kinds", func() {
		_, err := registry.Controller(schema.GroupVersionKind{Group: "kafka.kro.run", Kind: "KafkaTopic"}, provider.Config{Log: logr.Discard()})
		Expect(err).To(HaveOccurred())
	})
})
