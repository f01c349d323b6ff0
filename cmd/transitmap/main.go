package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matzehuels/transitmap/internal/cli"
	tmerrors "github.com/matzehuels/transitmap/pkg/errors"
)

// Exit codes. Anything the caller can fix by changing input, options or a
// layer id exits with exitUsage.
const (
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := run(ctx)
	if err == nil {
		return
	}
	code := exitCode(err)
	if code != exitInterrupted {
		cli.PrintError(err)
	}
	os.Exit(code)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case tmerrors.GetCode(err) == "":
		return exitFailure
	case tmerrors.HTTPStatus(err) < 500:
		return exitUsage
	default:
		return exitFailure
	}
}

func run(ctx context.Context) error {
	var verbose bool

	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()
	root.SilenceErrors = true
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every pipeline stage")

	inner := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if verbose {
			c.SetLogLevel(cli.LogDebug)
		}
		if inner != nil {
			return inner(cmd, args)
		}
		return nil
	}
	return root.ExecuteContext(ctx)
}
