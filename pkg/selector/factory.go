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

package selector

import (
	"fmt"
	"strconv"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/kro-run/reconciler/pkg/fieldpath"
	"github.com/kro-run/reconciler/pkg/resource"
)

const (
	ScopeField      = "field"
	ScopeSelector   = "selector"
	ScopeLabel      = "label"
	ScopeAnnotation = "annotation"
)

// Option configures the selectors built from expressions.
type Option func(*options)

type options struct {
	accessors *AccessorRegistry
}

// WithAccessors sets the registry used to resolve property paths.
func WithAccessors(r *AccessorRegistry) Option {
	return func(o *options) {
		o.accessors = r
	}
}

// Parse parses a selector string and compiles it into an ALL aggregate.
func Parse(s string, opts ...Option) (*Aggregate, error) {
	exprs, err := ParseExpressionString(s)
	if err != nil {
		return nil, err
	}
	return NewFromExpressions(exprs, All, opts...)
}

// NewFromExpressions compiles parsed expressions into selectors combined
// with strategy.
func NewFromExpressions(exprs []Expression, strategy Strategy, opts ...Option) (*Aggregate, error) {
	o := &options{accessors: DefaultAccessors}
	for _, opt := range opts {
		opt(o)
	}

	selectors := make([]Selector, 0, len(exprs))
	for _, e := range exprs {
		s, err := newExpressionSelector(e, o.accessors)
		if err != nil {
			return nil, err
		}
		selectors = append(selectors, s)
	}
	return NewAggregate(strategy, selectors...), nil
}

type expressionSelector struct {
	expr    Expression
	resolve func(r resource.Resource) (interface{}, bool)
	values  sets.Set[string]
}

func newExpressionSelector(e Expression, accessors *AccessorRegistry) (*expressionSelector, error) {
	s := &expressionSelector{expr: e, values: sets.New(e.Values...)}

	switch e.Scope {
	case "", ScopeField, ScopeSelector:
		if _, err := fieldpath.Parse(e.Key); err != nil {
			return nil, &InvalidSelectorError{Input: e.String(), Reason: err.Error()}
		}
		s.resolve = func(r resource.Resource) (interface{}, bool) {
			v, found, _ := accessors.Resolve(r, e.Key)
			return v, found
		}
	case ScopeLabel:
		s.resolve = func(r resource.Resource) (interface{}, bool) {
			v, ok := r.GetLabels()[e.Key]
			return v, ok
		}
	case ScopeAnnotation:
		s.resolve = func(r resource.Resource) (interface{}, bool) {
			v, ok := r.GetAnnotations()[e.Key]
			return v, ok
		}
	default:
		return nil, &InvalidSelectorError{Input: e.String(), Reason: fmt.Sprintf("unknown scope %q", e.Scope)}
	}

	switch e.Operator {
	case OperatorIn, OperatorNotIn:
		if len(e.Values) == 0 {
			return nil, &InvalidSelectorError{Input: e.String(), Reason: "operator requires at least one value"}
		}
	case OperatorEquals, OperatorNotEquals:
		if len(e.Values) != 1 {
			return nil, &InvalidSelectorError{Input: e.String(), Reason: "operator requires exactly one value"}
		}
	case OperatorExists, OperatorDoesNotExist:
	default:
		return nil, &InvalidSelectorError{Input: e.String(), Reason: fmt.Sprintf("unknown operator %q", e.Operator)}
	}
	return s, nil
}

// Matches follows the label selector semantics: negative operators match
// resources where the property is missing.
func (s *expressionSelector) Matches(r resource.Resource) bool {
	if r == nil {
		return false
	}
	v, found := s.resolve(r)
	present := found && v != nil

	switch s.expr.Operator {
	case OperatorExists:
		return present
	case OperatorDoesNotExist:
		return !present
	case OperatorIn, OperatorEquals:
		return present && s.values.HasAny(stringValues(v)...)
	case OperatorNotIn, OperatorNotEquals:
		return !present || !s.values.HasAny(stringValues(v)...)
	}
	return false
}

func (s *expressionSelector) String() string {
	return s.expr.String()
}

// stringValues returns the textual forms of a scalar, or of each element of
// a list. Maps have no textual form.
func stringValues(v interface{}) []string {
	switch t := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := scalarString(e); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	}
	if s, ok := scalarString(v); ok {
		return []string{s}
	}
	return nil
}

func scalarString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}
