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
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Operator is the comparison of a selector expression.
type Operator string

const (
	OperatorIn           Operator = "IN"
	OperatorNotIn        Operator = "NOTIN"
	OperatorExists       Operator = "EXISTS"
	OperatorDoesNotExist Operator = "NOTEXISTS"
	OperatorEquals       Operator = "EQUALS"
	OperatorNotEquals    Operator = "NOTEQUALS"
)

// Expression is one parsed clause of a selector string.
type Expression struct {
	// Scope is the optional leading `<scope>:` label, empty when absent.
	Scope    string
	Key      string
	Operator Operator
	Values   []string
}

// String renders the expression back in the textual grammar.
func (e Expression) String() string {
	var b strings.Builder
	if e.Scope != "" {
		b.WriteString(e.Scope + ": ")
	}
	b.WriteString(e.Key)
	switch e.Operator {
	case OperatorIn, OperatorNotIn:
		b.WriteString(" " + strings.ToLower(string(e.Operator)) + " (" + strings.Join(e.Values, ", ") + ")")
	case OperatorExists, OperatorDoesNotExist:
		b.WriteString(" " + strings.ToLower(string(e.Operator)))
	case OperatorEquals:
		b.WriteString(" == " + first(e.Values))
	case OperatorNotEquals:
		b.WriteString(" != " + first(e.Values))
	}
	return b.String()
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// InvalidSelectorError is returned for selector strings that do not match
// the grammar.
type InvalidSelectorError struct {
	Input  string
	Reason string
}

func (e *InvalidSelectorError) Error() string {
	return fmt.Sprintf("invalid selector expression %q: %s", e.Input, e.Reason)
}

// IsInvalidSelector returns true if err is, or wraps, an InvalidSelectorError.
func IsInvalidSelector(err error) bool {
	var target *InvalidSelectorError
	return errors.As(err, &target)
}

var (
	scopeRegexp = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_-]*)\s*:\s*(.*)$`)

	setClauseRegexp    = regexp.MustCompile(`^([^\s=!(),]+)\s+(in|notin)\s*(\(.*\)|[^\s(),]+)$`)
	existsClauseRegexp = regexp.MustCompile(`^([^\s=!(),]+)\s+(exists|notexists)$`)
	equalClauseRegexp  = regexp.MustCompile(`^([^\s=!(),]+)\s*(==|=|!=)\s*([^\s=!(),]+)$`)
)

// ParseExpressionString parses a selector string of the form
//
//	[<scope>:] key in (v1, v2) | key in v | key notin (v1, v2) |
//	key exists | key notexists | key == v | key = v | key != v
//
// Several clauses can be separated by commas; commas inside parentheses
// belong to the value list. Clause order is preserved.
func ParseExpressionString(s string) ([]Expression, error) {
	input := strings.TrimSpace(s)
	if input == "" {
		return nil, &InvalidSelectorError{Input: s, Reason: "selector is blank"}
	}

	var scope string
	if m := scopeRegexp.FindStringSubmatch(input); m != nil {
		scope, input = m[1], strings.TrimSpace(m[2])
	}

	clauses, err := splitClauses(input)
	if err != nil {
		return nil, &InvalidSelectorError{Input: s, Reason: err.Error()}
	}

	expressions := make([]Expression, 0, len(clauses))
	for _, clause := range clauses {
		expr, err := parseClause(clause)
		if err != nil {
			return nil, &InvalidSelectorError{Input: s, Reason: err.Error()}
		}
		expr.Scope = scope
		expressions = append(expressions, expr)
	}
	return expressions, nil
}

// splitClauses splits on commas outside parentheses.
func splitClauses(s string) ([]string, error) {
	var clauses []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '(':
			depth++
			if depth > 1 {
				return nil, fmt.Errorf("nested parenthesis at position %d", i)
			}
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parenthesis at position %d", i)
			}
		case ',':
			if depth == 0 {
				clauses = append(clauses, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("missing closing parenthesis")
	}
	clauses = append(clauses, strings.TrimSpace(s[start:]))

	for _, c := range clauses {
		if c == "" {
			return nil, fmt.Errorf("empty clause")
		}
	}
	return clauses, nil
}

func parseClause(clause string) (Expression, error) {
	if m := existsClauseRegexp.FindStringSubmatch(clause); m != nil {
		op := OperatorExists
		if m[2] == "notexists" {
			op = OperatorDoesNotExist
		}
		return Expression{Key: m[1], Operator: op, Values: []string{}}, nil
	}

	if m := setClauseRegexp.FindStringSubmatch(clause); m != nil {
		values, err := parseValues(m[3])
		if err != nil {
			return Expression{}, err
		}
		op := OperatorIn
		if m[2] == "notin" {
			op = OperatorNotIn
		}
		return Expression{Key: m[1], Operator: op, Values: values}, nil
	}

	if m := equalClauseRegexp.FindStringSubmatch(clause); m != nil {
		op := OperatorEquals
		if m[2] == "!=" {
			op = OperatorNotEquals
		}
		return Expression{Key: m[1], Operator: op, Values: []string{m[3]}}, nil
	}

	return Expression{}, fmt.Errorf("clause %q does not match `key OPERATOR value`", clause)
}

func parseValues(spec string) ([]string, error) {
	if !strings.HasPrefix(spec, "(") {
		return []string{spec}, nil
	}
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(spec, "("), ")"))
	if inner == "" {
		return nil, fmt.Errorf("empty value list")
	}
	parts := strings.Split(inner, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		v := strings.TrimSpace(p)
		if v == "" {
			return nil, fmt.Errorf("empty value in list %q", spec)
		}
		values = append(values, v)
	}
	return values, nil
}
