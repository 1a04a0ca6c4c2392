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

	"github.com/spf13/cobra"
	"sigs.k8s.io/release-utils/version"

	"github.com/kro-run/reconciler/pkg/controller"
	"github.com/kro-run/reconciler/pkg/policy"
)

// NewRootCommand returns the recon command with every subcommand.
func NewRootCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recon",
		Short: "recon reconciles resources with their desired state",
		Long: `recon computes the changes turning the resources of a cluster into the
desired resources read from YAML files, and applies them.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	o.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newDiffCommand(o),
		newApplyCommand(o),
		newValidateCommand(o),
		version.Version(),
	)
	return cmd
}

func newDiffCommand(o *Options) *cobra.Command {
	ro := &reconcileOptions{}
	cmd := &cobra.Command{
		Use:   "diff -f FILE...",
		Short: "Show the changes needed to reach the desired resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run := &reconcileRun{log: o.Logger(cmd.ErrOrStderr()), opts: o, ro: ro}
			reports, err := run.run(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			printChanges(cmd.OutOrStdout(), reports)
			return nil
		},
	}
	ro.addFlags(cmd.Flags())
	return cmd
}

func newApplyCommand(o *Options) *cobra.Command {
	ro := &reconcileOptions{}
	cmd := &cobra.Command{
		Use:   "apply -f FILE...",
		Short: "Apply the changes needed to reach the desired resources",
		Long: `Apply the changes needed to reach the desired resources.

Managed resources of the reconciled kinds that are not desired anymore are
deleted, unless --keep-orphans is set. Resources not created by recon are
never modified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run := &reconcileRun{log: o.Logger(cmd.ErrOrStderr()), opts: o, ro: ro, execute: true}
			reports, err := run.run(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			summary := printResults(cmd.OutOrStdout(), reports)
			if summary.HasFailures() {
				return fmt.Errorf("%d change(s) failed", summary.Failed)
			}
			return nil
		},
	}
	ro.addFlags(cmd.Flags())
	cmd.Flags().BoolVar(&ro.DryRun, "dry-run", false, "Only print the changes that would be applied")
	return cmd
}

func newValidateCommand(o *Options) *cobra.Command {
	var files, policyFiles []string
	cmd := &cobra.Command{
		Use:   "validate -f FILE... --policy FILE...",
		Short: "Validate resources against policies",
		Long:  `Validate resources against ValidatingResourcePolicy manifests. No cluster is needed.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(files) == 0 || len(policyFiles) == 0 {
				return fmt.Errorf("both --filename and --policy are required")
			}
			log := o.Logger(cmd.ErrOrStderr())
			resources, err := loadResources(cmd.InOrStdin(), files...)
			if err != nil {
				return err
			}
			validator, err := loadValidator(log, policyFiles...)
			if err != nil {
				return err
			}

			valid, results := policy.ValidateAll(validator, resources)
			printPolicyResults(cmd.OutOrStdout(), results)
			if !valid {
				return &controller.PolicyViolationError{Results: results}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d resource(s) valid against %d policies\n", len(resources), validator.Policies())
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&files, "filename", "f", nil, "Files holding the resources, - reads stdin")
	cmd.Flags().StringSliceVar(&policyFiles, "policy", nil, "Policy files")
	return cmd
}
