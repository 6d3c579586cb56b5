package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sokinpui/mdalign/cli"
	"github.com/sokinpui/mdalign/internal/book"
	"github.com/sokinpui/mdalign/internal/tui"
	"github.com/sokinpui/mdalign/internal/ui"
	"github.com/sokinpui/mdalign/mdalign"
	"github.com/sokinpui/mdalign/model"
)

var version = "dev"

// errUnsupported makes `supports` exit with status 1 without a message.
var errUnsupported = errors.New("renderer not supported")

// errFailed reports that some files could not be processed.
var errFailed = errors.New("some files could not be processed")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			os.Exit(130)
		case errors.Is(err, errUnsupported), errors.Is(err, errFailed):
		case errors.Is(err, mdalign.ErrUnaligned):
			ui.Error("%v", err)
		default:
			var detailed *mdalign.DetailedError
			if errors.As(err, &detailed) {
				fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
			}
			ui.Error("Error: %v", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	var logger *log.Logger

	root := &cobra.Command{
		Use:   "mdalign",
		Short: "Align the indentation of marked code blocks in Markdown",
		Long: `mdalign rebuilds the indentation of fenced code blocks whose info string
carries the "align" marker. Without arguments it runs as an mdBook
preprocessor, reading [context, book] JSON on stdin.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = cli.NewLogger(os.Stderr, verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return book.NewPreprocessor(logger).Handle(cmd.Context(), os.Stdin, os.Stdout)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newSupportsCmd(&logger))
	root.AddCommand(newFmtCmd(&logger, &verbose))
	return root
}

func newSupportsCmd(logger **log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "supports <renderer>",
		Short: "Check whether a renderer is supported by this preprocessor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := book.LoadNearestConfig(".")
			if err != nil {
				return err
			}
			if !cfg.SupportsRenderer(args[0]) {
				(*logger).Debug("renderer not enabled", "renderer", args[0], "config", path)
				return errUnsupported
			}
			return nil
		},
	}
}

func newFmtCmd(logger **log.Logger, verbose *bool) *cobra.Command {
	cfg := &cli.Config{}
	cmd := &cobra.Command{
		Use:   "fmt [paths...]",
		Short: "Align Markdown files in place",
		Long: `Align the marked code blocks of Markdown files in place. Directories are
walked for files with a Markdown extension. Without paths, the content is
read from stdin when piped, else from the clipboard, and the result is
printed.`,
		Example: "  mdalign fmt src/\n  mdalign fmt --diff README.md\n  pbpaste | mdalign fmt -c",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Paths = args
			cfg.Verbose = *verbose
			app, err := mdalign.New(cfg, *logger)
			if err != nil {
				return err
			}
			return runFmt(cmd.Context(), app, cfg)
		},
	}
	cfg.BindFlags(cmd.Flags())
	return cmd
}

func runFmt(ctx context.Context, app *mdalign.App, cfg *cli.Config) error {
	// Modes that print to stdout skip the TUI.
	fileMode := len(cfg.Paths) > 0 || cfg.Revert || cfg.Redo
	interactive := fileMode && !cfg.Diff && !cfg.Check && !cfg.NoAnimation && !cfg.Verbose &&
		term.IsTerminal(int(os.Stderr.Fd()))

	var (
		summary model.Summary
		err     error
	)
	if interactive {
		summary, err = tui.Run(ctx, app)
	} else {
		summary, err = app.Execute(ctx)
		if err == nil || errors.Is(err, mdalign.ErrUnaligned) {
			printSummary(cfg, summary)
		}
	}
	if err != nil {
		return err
	}
	if len(summary.Failed) > 0 {
		return errFailed
	}
	return nil
}

func printSummary(cfg *cli.Config, summary model.Summary) {
	switch {
	case cfg.Check:
		for _, f := range summary.Modified {
			ui.Path("%s", f)
		}
		if summary.Message != "" {
			ui.Info("%s", summary.Message)
		}
	case len(cfg.Paths) == 0 && !cfg.Revert && !cfg.Redo:
		if summary.Message != "" {
			ui.Info("%s", summary.Message)
		}
	case cfg.Diff:
	default:
		ui.PrintSummary("Align Summary", summary)
	}
}
