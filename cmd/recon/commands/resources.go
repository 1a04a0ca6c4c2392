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

package commands

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/yaml"

	"github.com/kro-run/reconciler/pkg/controller"
	"github.com/kro-run/reconciler/pkg/metadata"
)

// kindGroup holds the desired resources of one kind, in file order.
type kindGroup struct {
	GVK       schema.GroupVersionKind
	Resources []*unstructured.Unstructured
}

// loadResources reads the resources of every file. "-" reads stdin.
func loadResources(stdin io.Reader, paths ...string) ([]*unstructured.Unstructured, error) {
	var out []*unstructured.Unstructured
	for _, path := range paths {
		var (
			resources []*unstructured.Unstructured
			err       error
		)
		if path == "-" {
			resources, err = decodeResources(stdin)
		} else {
			resources, err = decodeFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, resources...)
	}
	return out, nil
}

func decodeFile(path string) ([]*unstructured.Unstructured, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeResources(f)
}

// decodeResources decodes a multi document YAML stream. List kinds are
// expanded into their items.
func decodeResources(r io.Reader) ([]*unstructured.Unstructured, error) {
	reader := utilyaml.NewYAMLReader(bufio.NewReader(r))

	var out []*unstructured.Unstructured
	for i := 0; ; i++ {
		doc, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read document %d: %w", i, err)
		}

		data, err := yaml.YAMLToJSON(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to decode document %d: %w", i, err)
		}
		if data = bytes.TrimSpace(data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
			continue
		}
		// integers are decoded as int64, as the dynamic client does.
		u := &unstructured.Unstructured{}
		if err := u.UnmarshalJSON(data); err != nil {
			return nil, fmt.Errorf("failed to decode document %d: %w", i, err)
		}

		if u.IsList() {
			list, err := u.ToList()
			if err != nil {
				return nil, fmt.Errorf("failed to decode list in document %d: %w", i, err)
			}
			for j := range list.Items {
				item := &list.Items[j]
				if err := checkResource(item); err != nil {
					return nil, fmt.Errorf("document %d, item %d: %w", i, j, err)
				}
				out = append(out, item)
			}
			continue
		}
		if err := checkResource(u); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		out = append(out, u)
	}
}

func checkResource(u *unstructured.Unstructured) error {
	if _, err := metadata.ExtractGVK(u); err != nil {
		return err
	}
	if u.GetName() == "" {
		return fmt.Errorf("%s has no name", u.GetKind())
	}
	return nil
}

// groupByKind groups resources per group version kind, in order of first
// appearance.
func groupByKind(resources []*unstructured.Unstructured) []kindGroup {
	groups, keys := controller.GroupBy(resources, func(u *unstructured.Unstructured) string {
		return u.GroupVersionKind().String()
	})
	out := make([]kindGroup, 0, len(keys))
	for _, k := range keys {
		out = append(out, kindGroup{
			GVK:       groups[k][0].GroupVersionKind(),
			Resources: groups[k],
		})
	}
	return out
}
