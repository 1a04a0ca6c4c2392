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

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types/ref"
)

// ErrUnexpectedResult is returned when an expression only typed at runtime
// (dyn) evaluates to a value other than the compiler output.
var ErrUnexpectedResult = errors.New("unexpected result type")

// celType returns the CEL type expressions producing T must check to.
func celType[T Output]() *cel.Type {
	var zero T
	if _, ok := any(zero).(bool); ok {
		return cel.BoolType
	}
	return cel.StringType
}

// toOutput converts the result of a program to T.
func toOutput[T Output](v ref.Val) (T, error) {
	out, ok := v.Value().(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: expected type '%s' but found '%s'",
			ErrUnexpectedResult, celType[T]().String(), v.Type().TypeName())
	}
	return out, nil
}
