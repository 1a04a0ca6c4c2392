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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kro-run/reconciler/pkg/resource"
)

func named(name string) resource.Resource {
	return resource.New("kafka.kro.run/v1", "KafkaTopic", name, nil)
}

func TestAggregate(t *testing.T) {
	startsWithA := Func(func(r resource.Resource) bool { return strings.HasPrefix(r.GetName(), "A") })
	endsWithC := Func(func(r resource.Resource) bool { return strings.HasSuffix(r.GetName(), "C") })
	startsWithC := Func(func(r resource.Resource) bool { return strings.HasPrefix(r.GetName(), "C") })
	endsWithD := Func(func(r resource.Resource) bool { return strings.HasSuffix(r.GetName(), "D") })
	isABC := Func(func(r resource.Resource) bool { return r.GetName() == "ABC" })

	tests := []struct {
		name      string
		aggregate *Aggregate
		resource  string
		want      bool
	}{
		{"all both match", AllOf(startsWithA, endsWithC), "ABC", true},
		{"all first fails", AllOf(startsWithA, endsWithC), "CBA", false},
		{"any second matches", AnyOf(startsWithC, endsWithD), "BCD", true},
		{"any first matches", AnyOf(startsWithC, endsWithD), "CAA", true},
		{"any none match", AnyOf(startsWithC, endsWithD), "AAA", false},
		{"none with match", NoneOf(isABC), "ABC", false},
		{"none without match", NoneOf(isABC), "DEF", true},
		{"empty all", AllOf(), "ABC", true},
		{"empty any", AnyOf(), "ABC", false},
		{"empty none", NoneOf(), "ABC", true},
		{"zero value", &Aggregate{}, "ABC", true},
		{"unknown strategy", NewAggregate("SOME", startsWithA), "ABC", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.aggregate.Matches(named(tt.resource)))
		})
	}
}

func TestAggregateWith(t *testing.T) {
	agg := AnyOf(MatchName("a"))
	extended := agg.With(MatchName("b"), nil)

	assert.Equal(t, 1, agg.Len())
	assert.Equal(t, 2, extended.Len())
	assert.Equal(t, Any, extended.Strategy())
	assert.True(t, extended.Matches(named("b")))
	assert.False(t, agg.Matches(named("b")))
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{"": All, "all": All, "ANY": Any, " none ": None} {
		got, err := ParseStrategy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseStrategy("most")
	assert.Error(t, err)
}

func TestEverythingNothing(t *testing.T) {
	assert.True(t, Everything().Matches(named("a")))
	assert.False(t, Nothing().Matches(named("a")))
}
