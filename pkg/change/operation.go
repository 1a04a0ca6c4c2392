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

// Package change computes the changes needed to turn an actual set of
// resources into a desired one.
package change

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Operation classifies a change.
type Operation string

const (
	OperationCreate Operation = "CREATE"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
	OperationNone   Operation = "NONE"
)

// Operations lists every operation.
var Operations = []Operation{
	OperationCreate,
	OperationUpdate,
	OperationDelete,
	OperationNone,
}

// StateChange is a change of a single attribute. HasBefore and HasAfter
// tell an absent attribute from one that is present with a nil value.
type StateChange struct {
	Name      string
	Operation Operation
	Before    interface{}
	After     interface{}
	HasBefore bool
	HasAfter  bool
}

// NewStateChange returns the change of an attribute present on both sides.
// Values are compared structurally, nil and empty collections are equal.
func NewStateChange(name string, before, after interface{}) StateChange {
	return newStateChange(name, before, true, after, true)
}

// Created returns the change of an attribute only present in the desired
// resource.
func Created(name string, after interface{}) StateChange {
	return newStateChange(name, nil, false, after, true)
}

// Deleted returns the change of an attribute only present in the actual
// resource.
func Deleted(name string, before interface{}) StateChange {
	return newStateChange(name, before, true, nil, false)
}

func newStateChange(name string, before interface{}, hasBefore bool, after interface{}, hasAfter bool) StateChange {
	return StateChange{
		Name:      name,
		Operation: operationFor(hasBefore, hasAfter, before, after),
		Before:    before,
		After:     after,
		HasBefore: hasBefore,
		HasAfter:  hasAfter,
	}
}

func operationFor(hasBefore, hasAfter bool, before, after interface{}) Operation {
	switch {
	case !hasBefore && !hasAfter:
		return OperationNone
	case !hasBefore:
		return OperationCreate
	case !hasAfter:
		return OperationDelete
	case Equal(before, after):
		return OperationNone
	default:
		return OperationUpdate
	}
}

// Equal is the structural equality used to compare attribute values.
func Equal(a, b interface{}) bool {
	return cmp.Equal(a, b, cmpopts.EquateEmpty())
}

// AggregateOperation joins the operations of the state changes of an
// update: UPDATE if one of them is not NONE, NONE otherwise.
func AggregateOperation(changes []StateChange) Operation {
	for _, c := range changes {
		if c.Operation != OperationNone {
			return OperationUpdate
		}
	}
	return OperationNone
}
