// File: cmd/validate.go
package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/handoff/internal/script"
)

func newValidateCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate <script.yaml>",
		Short: "Check a script without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			document, err := afero.ReadFile(appFs, args[0])
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}

			var opts []script.ParseOption
			if strict {
				opts = append(opts, script.WithStrictTypes())
			}
			sc, err := script.Parse(document, opts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✅ %s: %d step(s)\n", args[0], sc.Len())
			for i, step := range sc.Steps {
				marker := ""
				if !step.Type.Known() {
					marker = " (unknown type, will be skipped)"
				}
				fmt.Fprintf(out, "  %d. %s [%s]%s\n", i+1, step.Name, step.Type, marker)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "reject steps with an unknown type")
	return cmd
}
