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

// Package selector implements boolean predicates over resources, their
// ALL/ANY/NONE composition and the textual selector expression grammar.
package selector

import (
	"fmt"
	"strings"

	"github.com/kro-run/reconciler/api/v1alpha1"
	"github.com/kro-run/reconciler/pkg/resource"
)

// Selector decides whether a resource is in scope.
type Selector interface {
	Matches(r resource.Resource) bool
}

// Func adapts a plain function to a Selector.
type Func func(r resource.Resource) bool

func (f Func) Matches(r resource.Resource) bool {
	return f(r)
}

// Everything matches every resource.
func Everything() Selector {
	return Func(func(resource.Resource) bool { return true })
}

// Nothing matches no resource.
func Nothing() Selector {
	return Func(func(resource.Resource) bool { return false })
}

// Strategy is the way an Aggregate combines its selectors.
type Strategy = v1alpha1.SelectorStrategy

const (
	All  = v1alpha1.SelectorStrategyAll
	Any  = v1alpha1.SelectorStrategyAny
	None = v1alpha1.SelectorStrategyNone
)

// ParseStrategy parses a strategy name. Names are case insensitive and the
// empty string means ALL.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(All):
		return All, nil
	case string(Any):
		return Any, nil
	case string(None):
		return None, nil
	default:
		return "", fmt.Errorf("unknown selector strategy %q", s)
	}
}

// Aggregate owns an ordered list of selectors and the strategy used to
// combine them. The zero value has strategy ALL and matches everything.
type Aggregate struct {
	selectors []Selector
	strategy  Strategy
}

var _ Selector = &Aggregate{}

// NewAggregate returns an aggregate of the given selectors. Nil selectors
// are skipped.
func NewAggregate(strategy Strategy, selectors ...Selector) *Aggregate {
	if strategy == "" {
		strategy = All
	}
	a := &Aggregate{strategy: strategy}
	for _, s := range selectors {
		if s != nil {
			a.selectors = append(a.selectors, s)
		}
	}
	return a
}

// AllOf is NewAggregate(All, selectors...).
func AllOf(selectors ...Selector) *Aggregate { return NewAggregate(All, selectors...) }

// AnyOf is NewAggregate(Any, selectors...).
func AnyOf(selectors ...Selector) *Aggregate { return NewAggregate(Any, selectors...) }

// NoneOf is NewAggregate(None, selectors...).
func NoneOf(selectors ...Selector) *Aggregate { return NewAggregate(None, selectors...) }

// Matches applies the strategy:
//   - ALL is true iff every selector matches, an empty aggregate is true.
//   - ANY is true iff at least one selector matches, an empty aggregate is false.
//   - NONE is the negation of ANY.
func (a *Aggregate) Matches(r resource.Resource) bool {
	switch a.Strategy() {
	case All:
		for _, s := range a.selectors {
			if !s.Matches(r) {
				return false
			}
		}
		return true
	case Any:
		return a.any(r)
	case None:
		return !a.any(r)
	default:
		return false
	}
}

func (a *Aggregate) any(r resource.Resource) bool {
	for _, s := range a.selectors {
		if s.Matches(r) {
			return true
		}
	}
	return false
}

// Strategy returns the aggregate strategy.
func (a *Aggregate) Strategy() Strategy {
	if a.strategy == "" {
		return All
	}
	return a.strategy
}

// Selectors returns a copy of the aggregated selectors.
func (a *Aggregate) Selectors() []Selector {
	out := make([]Selector, len(a.selectors))
	copy(out, a.selectors)
	return out
}

// Len returns the number of aggregated selectors.
func (a *Aggregate) Len() int {
	return len(a.selectors)
}

// With returns a new aggregate with the same strategy and the given
// selectors appended.
func (a *Aggregate) With(selectors ...Selector) *Aggregate {
	return NewAggregate(a.Strategy(), append(a.Selectors(), selectors...)...)
}
