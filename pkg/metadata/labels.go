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

package metadata

import (
	"errors"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kro-run/reconciler/api/v1alpha1"
	"github.com/kro-run/reconciler/pkg/resource"
)

const (
	// LabelPrefix is the prefix of every label and annotation owned by the
	// reconciler.
	LabelPrefix = v1alpha1.ReconcilerDomainName + "/"
)

const (
	ManagedLabel           = LabelPrefix + "managed"
	ReconcilerVersionLabel = LabelPrefix + "reconciler-version"
	RunIDLabel             = LabelPrefix + "run-id"

	// DeleteAnnotation marks a desired resource as to be deleted.
	DeleteAnnotation = LabelPrefix + "delete"
	// IgnoreAnnotation excludes a desired resource from reconciliation.
	IgnoreAnnotation = LabelPrefix + "ignore"
)

// IsManaged returns true if the resource carries the managed label.
func IsManaged(r resource.Resource) bool {
	v, ok := r.GetLabels()[ManagedLabel]
	return ok && booleanFromString(v)
}

// IsMarkedForDeletion returns true if the desired resource asks to be
// deleted.
func IsMarkedForDeletion(r resource.Resource) bool {
	return booleanFromString(r.GetAnnotations()[DeleteAnnotation])
}

// IsIgnored returns true if the resource must be left alone.
func IsIgnored(r resource.Resource) bool {
	return booleanFromString(r.GetAnnotations()[IgnoreAnnotation])
}

var (
	ErrDuplicatedLabels = errors.New("duplicate labels")
)

var _ Labeler = GenericLabeler{}

// Labeler applies a consistent set of labels to objects.
type Labeler interface {
	Labels() map[string]string
	ApplyLabels(metav1.Object)
	Merge(Labeler) (Labeler, error)
}

// GenericLabeler is a Labeler backed by a plain map.
type GenericLabeler map[string]string

func (gl GenericLabeler) Labels() map[string]string {
	return gl
}

func (gl GenericLabeler) ApplyLabels(meta metav1.Object) {
	for k, v := range gl {
		setLabel(meta, k, v)
	}
}

func (gl GenericLabeler) Merge(other Labeler) (Labeler, error) {
	newLabels := gl.Copy()
	for k, v := range other.Labels() {
		if _, ok := newLabels[k]; ok {
			return nil, fmt.Errorf("%v: found key '%s' in both maps", ErrDuplicatedLabels, k)
		}
		newLabels[k] = v
	}
	return GenericLabeler(newLabels), nil
}

func (gl GenericLabeler) Copy() map[string]string {
	newGenericLabeler := map[string]string{}
	for k, v := range gl {
		newGenericLabeler[k] = v
	}
	return newGenericLabeler
}

// NewManagedLabeler returns the labels put on every object written by the
// reconciler.
func NewManagedLabeler(reconcilerVersion string) GenericLabeler {
	return map[string]string{
		ManagedLabel:           "true",
		ReconcilerVersionLabel: reconcilerVersion,
	}
}

// NewRunLabeler returns the labels identifying a single reconciliation run.
func NewRunLabeler(runID string) GenericLabeler {
	return map[string]string{
		RunIDLabel: runID,
	}
}

func booleanFromString(s string) bool {
	// these values are written by hand in manifests, be a bit lenient.
	return s == "true" || s == "True" || s == "TRUE"
}

func setLabel(meta metav1.Object, key, value string) {
	labels := meta.GetLabels()
	if labels == nil {
		labels = make(map[string]string)
	}
	labels[key] = value
	meta.SetLabels(labels)
}
