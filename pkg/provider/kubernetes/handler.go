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
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/dynamic"

	"github.com/kro-run/reconciler/pkg/change"
	"github.com/kro-run/reconciler/pkg/controller"
	"github.com/kro-run/reconciler/pkg/executor"
	"github.com/kro-run/reconciler/pkg/metadata"
	"github.com/kro-run/reconciler/pkg/resource"
	"github.com/kro-run/reconciler/pkg/retry"
)

const handlerName = "kubernetes"

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	// Concurrency bounds the requests in flight per namespace. Zero means
	// no bound.
	Concurrency int
	// QPS and Burst configure the client side rate limiter shared by all
	// requests. A zero QPS disables it.
	QPS   float64
	Burst int
	// Backoff configures the retries of transient API errors. A zero
	// value uses retry.DefaultBackoff.
	Backoff wait.Backoff
	// ReconcilerVersion is written on every created or updated resource.
	ReconcilerVersion string
}

// Handler applies create, update and delete changes of a single kind with the
// dynamic client.
type Handler struct {
	log     logr.Logger
	client  dynamic.Interface
	gvr     schema.GroupVersionResource
	labeler metadata.GenericLabeler
	limiter *rate.Limiter
	opts    HandlerOptions
}

var _ executor.Handler = &Handler{}

func NewHandler(log logr.Logger, client dynamic.Interface, gvr schema.GroupVersionResource, opts HandlerOptions) *Handler {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.QPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.QPS), burst)
	}
	return &Handler{
		log:     log.WithName("kubernetes-handler").WithValues("resource", gvr.String()),
		client:  client,
		gvr:     gvr,
		labeler: metadata.NewManagedLabeler(opts.ReconcilerVersion),
		limiter: limiter,
		opts:    opts,
	}
}

func (h *Handler) Name() string { return handlerName }

func (h *Handler) SupportedOperations() []change.Operation {
	return []change.Operation{change.OperationCreate, change.OperationUpdate, change.OperationDelete}
}

// Apply applies the changes namespace by namespace. Within a namespace the
// requests run concurrently.
func (h *Handler) Apply(ctx context.Context, changes []change.ResourceChange) []executor.Response {
	labeler := h.labeler
	if runID, ok := executor.RunIDFrom(ctx); ok {
		merged, err := h.labeler.Merge(metadata.NewRunLabeler(runID))
		if err == nil {
			labeler = merged.(metadata.GenericLabeler)
		}
	}

	indexes := make([]int, len(changes))
	for i := range changes {
		indexes[i] = i
	}
	groups, namespaces := controller.GroupBy(indexes, func(i int) string {
		return namespaceOf(changes[i])
	})

	responses := make([]executor.Response, len(changes))
	for _, ns := range namespaces {
		h.log.V(1).Info("Applying changes", "namespace", ns, "changes", len(groups[ns]))

		g := &errgroup.Group{}
		if h.opts.Concurrency > 0 {
			g.SetLimit(h.opts.Concurrency)
		}
		for _, i := range groups[ns] {
			i := i
			g.Go(func() error {
				responses[i] = h.apply(ctx, labeler, changes[i])
				return nil
			})
		}
		_ = g.Wait()
	}
	return responses
}

func (h *Handler) apply(ctx context.Context, labeler metadata.GenericLabeler, c change.ResourceChange) executor.Response {
	if err := h.limiter.Wait(ctx); err != nil {
		return executor.Failed(c, err)
	}

	var err error
	switch c.Operation {
	case change.OperationCreate:
		err = h.create(ctx, labeler, c)
	case change.OperationUpdate:
		err = h.update(ctx, labeler, c)
	case change.OperationDelete:
		err = h.delete(ctx, c)
	default:
		err = fmt.Errorf("unsupported operation %s", c.Operation)
	}
	if err != nil {
		return executor.Failed(c, err)
	}
	return executor.Succeeded(c)
}

func (h *Handler) create(ctx context.Context, labeler metadata.GenericLabeler, c change.ResourceChange) error {
	obj, err := resource.ToUnstructured(c.Desired)
	if err != nil {
		return err
	}
	labeler.ApplyLabels(obj)

	client := h.client.Resource(h.gvr).Namespace(obj.GetNamespace())
	err = retry.Do(ctx, h.opts.Backoff, func(int) error {
		_, err := client.Create(ctx, obj, metav1.CreateOptions{})
		return transient(err)
	})
	if err != nil {
		return fmt.Errorf("failed to create %s %s: %w", c.Kind, c.Name, err)
	}
	h.log.V(1).Info("Created resource", "namespace", obj.GetNamespace(), "name", obj.GetName())
	return nil
}

func (h *Handler) update(ctx context.Context, labeler metadata.GenericLabeler, c change.ResourceChange) error {
	obj, err := resource.ToUnstructured(c.Desired)
	if err != nil {
		return err
	}
	actual, err := resource.ToUnstructured(c.Actual)
	if err != nil {
		return err
	}
	labeler.ApplyLabels(obj)
	obj.SetResourceVersion(actual.GetResourceVersion())
	obj.SetNamespace(actual.GetNamespace())

	client := h.client.Resource(h.gvr).Namespace(obj.GetNamespace())
	err = retry.Do(ctx, h.opts.Backoff, func(attempt int) error {
		if attempt > 0 {
			// the resource may have changed since it was listed.
			current, err := client.Get(ctx, obj.GetName(), metav1.GetOptions{})
			if err != nil {
				return transient(err)
			}
			obj.SetResourceVersion(current.GetResourceVersion())
		}
		_, err := client.Update(ctx, obj, metav1.UpdateOptions{})
		return transient(err)
	})
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", c.Kind, c.Name, err)
	}
	h.log.V(1).Info("Updated resource", "namespace", obj.GetNamespace(), "name", obj.GetName(), "attributes", len(c.Changed()))
	return nil
}

func (h *Handler) delete(ctx context.Context, c change.ResourceChange) error {
	ns := namespaceOf(c)
	client := h.client.Resource(h.gvr).Namespace(ns)
	err := retry.Do(ctx, h.opts.Backoff, func(int) error {
		return transient(client.Delete(ctx, c.Name, metav1.DeleteOptions{}))
	})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete %s %s: %w", c.Kind, c.Name, err)
	}
	h.log.V(1).Info("Deleted resource", "namespace", ns, "name", c.Name)
	return nil
}

func (h *Handler) Describe(c change.ResourceChange) string {
	desc := executor.Describe(c)
	if ns := namespaceOf(c); ns != "" {
		desc += fmt.Sprintf(" in namespace '%s'", ns)
	}
	return desc
}

func namespaceOf(c change.ResourceChange) string {
	type namespaced interface {
		GetNamespace() string
	}
	if r, ok := c.Resource().(namespaced); ok {
		return r.GetNamespace()
	}
	return ""
}

// transient marks the API errors worth retrying.
func transient(err error) error {
	if err == nil {
		return nil
	}
	if seconds, ok := apierrors.SuggestsClientDelay(err); ok && seconds > 0 {
		return retry.NeededAfter(err, time.Duration(seconds)*time.Second)
	}
	switch {
	case apierrors.IsConflict(err),
		apierrors.IsTooManyRequests(err),
		apierrors.IsServerTimeout(err),
		apierrors.IsTimeout(err),
		apierrors.IsServiceUnavailable(err),
		apierrors.IsInternalError(err):
		return retry.Needed(err)
	}
	return err
}
