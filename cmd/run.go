// File: cmd/run.go
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/handoff/internal/browser"
	"github.com/xkilldash9x/handoff/internal/config"
	"github.com/xkilldash9x/handoff/internal/observability"
	"github.com/xkilldash9x/handoff/internal/prompts"
	"github.com/xkilldash9x/handoff/internal/runner"
	"github.com/xkilldash9x/handoff/internal/script"
	"github.com/xkilldash9x/handoff/internal/service"
)

// newResourceFactory is swapped out in tests.
var newResourceFactory = func(cfg *config.Config, logger *zap.Logger) runner.ResourceFactory {
	return service.NewFactory(cfg, logger)
}

type runOptions struct {
	example    bool
	strict     bool
	prompt     string
	promptName string
	sessionID  string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [script.yaml]",
		Short: "Run a script interactively, pausing whenever it needs you",
		Long: `Runs every step of a script in order. When a step needs a human the run
stops and waits: press Enter to resume, r to reset or q to quit.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.example {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			document := []byte(script.DefaultScript)
			if !opts.example {
				if document, err = afero.ReadFile(appFs, args[0]); err != nil {
					return fmt.Errorf("read script: %w", err)
				}
			}

			prompt := opts.prompt
			if opts.promptName != "" {
				if prompt, err = prompts.NewStore(appFs, cfg.Paths.PromptsDir).Load(opts.promptName); err != nil {
					return err
				}
			}

			controllerOpts := []runner.Option{
				runner.WithVision(cfg.Agent.UseVision),
				runner.WithLogSink(runner.NewFileLogSink(appFs, cfg.Paths.LogsDir)),
			}
			if opts.strict {
				controllerOpts = append(controllerOpts, runner.WithParseOptions(script.WithStrictTypes()))
			}
			controller := runner.NewController(
				newResourceFactory(cfg, logger),
				browser.OptionsFromConfig(cfg.Browser),
				logger,
				controllerOpts...,
			)

			s := &supervisor{
				controller: controller,
				state:      runner.NewRunState(opts.sessionID),
				document:   document,
				prompt:     prompt,
				in:         bufio.NewReader(cmd.InOrStdin()),
				out:        cmd.OutOrStdout(),
				logger:     logger,
			}
			return s.run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&opts.example, "example", false, "run the bundled example script")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "reject steps with an unknown type")
	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "text substituted for {prompt}")
	cmd.Flags().StringVar(&opts.promptName, "prompt-name", "", "load {prompt} from a saved prompt")
	cmd.Flags().StringVar(&opts.sessionID, "session-id", "", "name of the run log (defaults to a timestamp)")
	cmd.MarkFlagsMutuallyExclusive("prompt", "prompt-name")
	return cmd
}

// supervisor drives one run from the terminal.
type supervisor struct {
	controller *runner.Controller
	state      *runner.RunState
	document   []byte
	prompt     string
	in         *bufio.Reader
	out        io.Writer
	logger     *zap.Logger
	printed    int
}

type choice int

const (
	choiceContinue choice = iota
	choiceReset
	choiceQuit
)

func (s *supervisor) run(ctx context.Context) error {
	defer func() {
		if err := s.state.Resources.Release(); err != nil {
			s.logger.Warn("Failed to release run resources.", zap.Error(err))
		}
	}()

	err := s.controller.Start(ctx, s.state, s.document, s.prompt)
	for {
		s.flush()
		if err != nil {
			return err
		}

		switch {
		case s.state.Waiting:
			fmt.Fprintf(s.out, "\n⏸  %s\n[Enter] resume · [r] reset · [q] quit > ", s.state.WaitMessage)
		case s.state.Status == runner.StatusIdle:
			fmt.Fprint(s.out, "\n[Enter] start · [q] quit > ")
		default:
			return nil
		}

		c, readErr := s.ask()
		if readErr != nil {
			return readErr
		}
		switch c {
		case choiceQuit:
			fmt.Fprintln(s.out, "Quitting; the run was left unfinished.")
			return nil
		case choiceReset:
			if resetErr := s.controller.Reset(s.state); resetErr != nil {
				s.logger.Warn("Reset released resources with errors.", zap.Error(resetErr))
			}
			s.printed = 0
		case choiceContinue:
			if s.state.Waiting {
				err = s.controller.Resume(ctx, s.state, s.document, s.prompt)
			} else {
				err = s.controller.Start(ctx, s.state, s.document, s.prompt)
			}
		}
	}
}

// ask reads one answer. End of input counts as quit.
func (s *supervisor) ask() (choice, error) {
	line, err := s.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return choiceQuit, fmt.Errorf("read answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	switch {
	case answer == "q" || answer == "quit" || (errors.Is(err, io.EOF) && answer == ""):
		return choiceQuit, nil
	case answer == "r" || answer == "reset":
		return choiceReset, nil
	default:
		return choiceContinue, nil
	}
}

// flush prints the part of the run log not yet shown.
func (s *supervisor) flush() {
	if s.printed > len(s.state.Log) {
		s.printed = 0
	}
	fmt.Fprint(s.out, s.state.Log[s.printed:])
	s.printed = len(s.state.Log)
}
