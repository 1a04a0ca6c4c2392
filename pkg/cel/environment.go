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
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

// ResourceVariable is the name under which the evaluated resource is
// exposed to expressions.
const ResourceVariable = "resource"

// EnvOption is a function that modifies the environment options.
type EnvOption func(*envOptions)

// envOptions holds all the configuration for the CEL environment.
type envOptions struct {
	// variables will be converted to CEL variable declarations of type
	// 'dyn', next to the resource variable.
	variables []string
	// customDeclarations will be added to the CEL environment.
	customDeclarations []cel.EnvOption
}

// WithVariables declares additional top level variables.
func WithVariables(names ...string) EnvOption {
	return func(opts *envOptions) {
		opts.variables = append(opts.variables, names...)
	}
}

// WithCustomDeclarations adds custom declarations to the CEL environment.
func WithCustomDeclarations(declarations []cel.EnvOption) EnvOption {
	return func(opts *envOptions) {
		opts.customDeclarations = append(opts.customDeclarations, declarations...)
	}
}

// DefaultEnvironment returns the environment used to compile resource
// expressions. It exposes a single `resource` variable holding the object
// tree of the resource (apiVersion, kind, metadata, spec).
func DefaultEnvironment(options ...EnvOption) (*cel.Env, error) {
	declarations := []cel.EnvOption{
		ext.Lists(),
		ext.Strings(),
		cel.Variable(ResourceVariable, cel.MapType(cel.StringType, cel.DynType)),
	}

	opts := &envOptions{}
	for _, opt := range options {
		opt(opts)
	}

	declarations = append(declarations, opts.customDeclarations...)

	for _, name := range opts.variables {
		declarations = append(declarations, cel.Variable(name, cel.DynType))
	}

	return cel.NewEnv(declarations...)
}
