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

package cel

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	lru "github.com/hashicorp/golang-lru"

	"github.com/kro-run/reconciler/pkg/resource"
)

// programCacheSize bounds the number of compiled programs kept per compiler.
const programCacheSize = 512

// Output is the set of Go types a compiled expression can produce.
type Output interface {
	bool | string
}

// Compiler compiles expressions that must produce a T. Compiled programs
// are cached by expression text and safe for concurrent use.
type Compiler[T Output] struct {
	outputType *cel.Type
	options    []EnvOption

	once     sync.Once
	env      *cel.Env
	envErr   error
	programs *lru.Cache // string -> *Program[T]
}

// Bool returns a compiler for predicates.
func Bool(options ...EnvOption) *Compiler[bool] {
	return &Compiler[bool]{outputType: celType[bool](), options: options}
}

// String returns a compiler for expressions producing text, e.g. message
// templates.
func String(options ...EnvOption) *Compiler[string] {
	return &Compiler[string]{outputType: celType[string](), options: options}
}

func (c *Compiler[T]) environment() (*cel.Env, error) {
	c.once.Do(func() {
		c.programs, c.envErr = lru.New(programCacheSize)
		if c.envErr != nil {
			return
		}
		c.env, c.envErr = DefaultEnvironment(c.options...)
	})
	return c.env, c.envErr
}

// Compile parses and type checks expr. Expressions whose type is only known
// at runtime (dyn) are accepted and checked on evaluation.
func (c *Compiler[T]) Compile(expr string) (*Program[T], error) {
	env, err := c.environment()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	if p, ok := c.programs.Get(expr); ok {
		return p.(*Program[T]), nil
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, &CompileError{Expression: expr, Reason: issues.Err().Error()}
	}

	outputType := ast.OutputType()
	if !outputType.IsExactType(c.outputType) && !outputType.IsExactType(cel.DynType) {
		return nil, &TypeMismatchError{
			Expression: expr,
			Expected:   c.outputType.String(),
			Found:      outputType.String(),
		}
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, &CompileError{Expression: expr, Reason: err.Error()}
	}

	p := &Program[T]{expression: expr, program: program}
	c.programs.Add(expr, p)
	return p, nil
}

// MustCompile is like Compile but panics on error.
func (c *Compiler[T]) MustCompile(expr string) *Program[T] {
	p, err := c.Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Program is a compiled expression.
type Program[T Output] struct {
	expression string
	program    cel.Program
}

// Expression returns the source text of the program.
func (p *Program[T]) Expression() string {
	return p.expression
}

// Eval evaluates the program with r bound to the resource variable.
func (p *Program[T]) Eval(r resource.Resource) (T, error) {
	var zero T
	obj, err := resource.ToMap(r)
	if err != nil {
		return zero, &EvalError{Expression: p.expression, Err: err}
	}
	return p.EvalMap(obj)
}

// EvalMap is like Eval for a resource already rendered as an object tree.
func (p *Program[T]) EvalMap(obj map[string]interface{}) (T, error) {
	var zero T
	out, _, err := p.program.Eval(map[string]interface{}{
		ResourceVariable: obj,
	})
	if err != nil {
		return zero, &EvalError{Expression: p.expression, Err: err}
	}

	v, err := toOutput[T](out)
	if err != nil {
		return zero, &EvalError{Expression: p.expression, Err: err}
	}
	return v, nil
}
