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

package change

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyKey is returned when the key function returns an empty key.
	ErrEmptyKey = errors.New("resource key is empty")
)

// DuplicateKeyError is returned when two resources of the same collection
// share a key.
type DuplicateKeyError struct {
	Key string
	// Collection is either "actual" or "desired".
	Collection string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %q in %s resources", e.Key, e.Collection)
}

// IsDuplicateKey returns true if err is, or wraps, a DuplicateKeyError.
func IsDuplicateKey(err error) bool {
	var target *DuplicateKeyError
	return errors.As(err, &target)
}
