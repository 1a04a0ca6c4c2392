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

package policy

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/yaml"

	"github.com/kro-run/reconciler/api/v1alpha1"
)

// Decode reads a stream of YAML documents holding ValidatingResourcePolicy
// manifests. Empty documents are skipped.
func Decode(r io.Reader) ([]*v1alpha1.ValidatingResourcePolicy, error) {
	reader := utilyaml.NewYAMLReader(bufio.NewReader(r))

	var manifests []*v1alpha1.ValidatingResourcePolicy
	for i := 0; ; i++ {
		doc, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read document %d: %w", i, err)
		}
		if len(bytes.TrimSpace(doc)) == 0 {
			continue
		}

		m := &v1alpha1.ValidatingResourcePolicy{}
		if err := yaml.UnmarshalStrict(doc, m); err != nil {
			return nil, fmt.Errorf("failed to decode document %d: %w", i, err)
		}
		if m.Kind != v1alpha1.ValidatingResourcePolicyKind {
			return nil, fmt.Errorf("document %d: unexpected kind %q, expected %q",
				i, m.Kind, v1alpha1.ValidatingResourcePolicyKind)
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

// Load decodes and compiles the policies read from r.
func Load(r io.Reader) ([]*ResourcePolicy, error) {
	manifests, err := Decode(r)
	if err != nil {
		return nil, err
	}
	policies := make([]*ResourcePolicy, 0, len(manifests))
	for _, m := range manifests {
		p, err := FromManifest(m)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, nil
}

// LoadFile is Load for a file on disk.
func LoadFile(path string) ([]*ResourcePolicy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	policies, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return policies, nil
}
