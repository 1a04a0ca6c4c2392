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
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/kro-run/reconciler/api/v1alpha1"
	"github.com/kro-run/reconciler/pkg/change"
	"github.com/kro-run/reconciler/pkg/executor"
	"github.com/kro-run/reconciler/pkg/policy"
)

const maxCellWidth = 80

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func header(columns ...string) table.Row {
	row := make(table.Row, len(columns))
	for i, c := range columns {
		row[i] = text.FgHiCyan.Sprint(c)
	}
	return row
}

func operationColor(op change.Operation) text.Colors {
	switch op {
	case change.OperationCreate:
		return text.Colors{text.FgGreen}
	case change.OperationUpdate:
		return text.Colors{text.FgYellow}
	case change.OperationDelete:
		return text.Colors{text.FgRed}
	}
	return text.Colors{text.Faint}
}

func statusColor(s executor.Status) text.Colors {
	switch s {
	case executor.StatusChanged:
		return text.Colors{text.FgGreen}
	case executor.StatusFailed:
		return text.Colors{text.FgRed, text.Bold}
	}
	return text.Colors{text.Faint}
}

func truncate(s string) string {
	if len(s) > maxCellWidth {
		return s[:maxCellWidth-3] + "..."
	}
	return s
}

func changedAttributes(c change.ResourceChange) string {
	changed := c.Changed()
	if c.Operation != change.OperationUpdate || len(changed) == 0 {
		return ""
	}
	names := make([]string, 0, len(changed))
	for _, sc := range changed {
		names = append(names, sc.Name)
	}
	return truncate(strings.Join(names, ", "))
}

func namespaceOf(c change.ResourceChange) string {
	type namespaced interface {
		GetNamespace() string
	}
	if r, ok := c.Resource().(namespaced); ok {
		return r.GetNamespace()
	}
	return ""
}

func printChanges(w io.Writer, reports []kindReport) {
	t := newTable(w)
	t.AppendHeader(header("KIND", "NAMESPACE", "NAME", "OPERATION", "CHANGED ATTRIBUTES"))

	counts := map[change.Operation]int{}
	for _, report := range reports {
		for _, c := range report.Changes {
			counts[c.Operation]++
			t.AppendRow(table.Row{
				c.Kind,
				namespaceOf(c),
				c.Name,
				operationColor(c.Operation).Sprint(string(c.Operation)),
				changedAttributes(c),
			})
		}
	}
	t.AppendFooter(table.Row{"", "", "", "TOTAL", fmt.Sprintf("%d to create, %d to update, %d to delete, %d unchanged",
		counts[change.OperationCreate], counts[change.OperationUpdate], counts[change.OperationDelete], counts[change.OperationNone])})
	t.Render()
}

func printResults(w io.Writer, reports []kindReport) executor.Summary {
	t := newTable(w)
	t.AppendHeader(header("KIND", "NAMESPACE", "NAME", "STATUS", "DESCRIPTION", "ERROR"))

	var all []executor.Result
	for _, report := range reports {
		for _, r := range report.Results {
			all = append(all, r)
			errMsg := ""
			if err := r.Err(); err != nil {
				errMsg = truncate(err.Error())
			}
			t.AppendRow(table.Row{
				r.Change.Kind,
				namespaceOf(r.Change),
				r.Change.Name,
				statusColor(r.Status).Sprint(string(r.Status)),
				r.Description,
				errMsg,
			})
		}
	}
	summary := executor.Summarize(all)
	t.AppendFooter(table.Row{"", "", "", "TOTAL", summary.String(), ""})
	t.Render()
	return summary
}

func printPolicyResults(w io.Writer, results []policy.Result) {
	t := newTable(w)
	t.AppendHeader(header("RESOURCE", "POLICY", "RULE", "FAILURE POLICY", "MESSAGE"))

	for _, r := range results {
		if r.Skipped {
			continue
		}
		if r.Compliant() {
			t.AppendRow(table.Row{r.Resource, r.PolicyName, "", "", text.FgGreen.Sprint("compliant")})
			continue
		}
		for _, f := range r.RuleFailures {
			color := text.Colors{text.FgYellow}
			if f.FailurePolicy.OrDefault() == v1alpha1.FailurePolicyFail {
				color = text.Colors{text.FgRed}
			}
			t.AppendRow(table.Row{r.Resource, r.PolicyName, f.RuleID, color.Sprint(string(f.FailurePolicy.OrDefault())), truncate(f.Message)})
		}
	}
	t.Render()
}
