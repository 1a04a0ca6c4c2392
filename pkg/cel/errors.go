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
	"errors"
	"fmt"
)

// CompileError is returned when an expression fails to parse or type check.
type CompileError struct {
	Expression string
	Reason     string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile expression '%s': %s", e.Expression, e.Reason)
}

// TypeMismatchError is returned when an expression type checks to a type
// other than the one expected by the compiler.
type TypeMismatchError struct {
	Expression string
	Expected   string
	Found      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("failed to compile expression '%s': expected type '%s' but found '%s'",
		e.Expression, e.Expected, e.Found)
}

// EvalError is returned when a compiled expression fails at evaluation
// time, e.g. on a missing map key.
type EvalError struct {
	Expression string
	Err        error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("failed to evaluate expression '%s': %v", e.Expression, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// IsCompileError returns true if err is a CompileError or a TypeMismatchError.
func IsCompileError(err error) bool {
	var compileErr *CompileError
	var mismatchErr *TypeMismatchError
	return errors.As(err, &compileErr) || errors.As(err, &mismatchErr)
}
