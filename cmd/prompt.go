// File: cmd/prompt.go
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/handoff/internal/prompts"
)

// appFs is the filesystem commands read and write through.
var appFs = afero.NewOsFs()

func newPromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Manage saved prompts",
	}
	cmd.AddCommand(newPromptSaveCmd(), newPromptLoadCmd(), newPromptListCmd())
	return cmd
}

func promptStore(cmd *cobra.Command) (*prompts.Store, error) {
	cfg, err := configFrom(cmd)
	if err != nil {
		return nil, err
	}
	return prompts.NewStore(appFs, cfg.Paths.PromptsDir), nil
}

func newPromptSaveCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "save <name> [text...]",
		Short: "Save a prompt from arguments, --file, or stdin",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := promptStore(cmd)
			if err != nil {
				return err
			}

			var content string
			switch {
			case len(args) > 1:
				content = strings.Join(args[1:], " ")
			case file != "":
				data, err := afero.ReadFile(appFs, file)
				if err != nil {
					return fmt.Errorf("read prompt file: %w", err)
				}
				content = string(data)
			default:
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read prompt from stdin: %w", err)
				}
				content = string(data)
			}

			name, err := st.Save(args[0], content)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved prompt %q\n", name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the prompt text from a file")
	return cmd
}

func newPromptLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <name>",
		Short: "Print a saved prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := promptStore(cmd)
			if err != nil {
				return err
			}
			content, err := st.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), content)
			return nil
		},
	}
}

func newPromptListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved prompts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := promptStore(cmd)
			if err != nil {
				return err
			}
			names, err := st.List()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
