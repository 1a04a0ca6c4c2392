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

package fieldpath

import (
	"fmt"
	"strings"
)

// Build renders segments back into a path accepted by Parse.
func Build(segments []Segment) string {
	var b strings.Builder

	for i, segment := range segments {
		if segment.IsIndex() {
			b.WriteString(fmt.Sprintf("[%d]", segment.Index))
			continue
		}

		if strings.Contains(segment.Name, ".") || segment.Name == "" {
			b.WriteString(fmt.Sprintf(`[%q]`, segment.Name))
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(segment.Name)
	}

	return b.String()
}

// Names returns the names of the leading named segments. It stops at the
// first index segment.
func Names(segments []Segment) []string {
	names := make([]string, 0, len(segments))
	for _, s := range segments {
		if s.IsIndex() {
			break
		}
		names = append(names, s.Name)
	}
	return names
}
