package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Mohsinsiddi/donation-forwarder/internal/command"
	"github.com/Mohsinsiddi/donation-forwarder/internal/ui"
	"github.com/Mohsinsiddi/donation-forwarder/internal/wallet"
	"github.com/spf13/cobra"
)

// BinaryName is the dispatcher's own name. Invoked under it, the first
// argument names the command.
const BinaryName = "donation-forwarder"

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/donation-forwarder/cmd.Version=1.2.3" .
var Version = "1.0.0"

// App carries the process environment the commands run against.
type App struct {
	Stdout  io.Writer
	Stderr  io.Writer
	EnvFile string // "" means ./.env

	// OpenKeystore opens the OS keychain used when KEYRING_REF is set.
	OpenKeystore func() (wallet.KeyRetriever, error)
}

// DefaultApp wires the real terminal and keychain.
func DefaultApp() *App {
	return &App{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		OpenKeystore: func() (wallet.KeyRetriever, error) {
			return wallet.OpenKeystore()
		},
	}
}

// NewRegistry registers the transfer commands.
func NewRegistry(app *App) (*command.Registry, error) {
	return command.NewRegistry(
		command.Entry{Identifier: "transferToEthereumBridge", Handler: app.handler(app.newTransferToEthereumBridgeCmd)},
		command.Entry{Identifier: "transferToUkraineDonations", Handler: app.handler(app.newTransferToUkraineDonationsCmd)},
		command.Entry{Identifier: "transferEthToUkraineDonations", Handler: app.handler(app.newTransferEthToUkraineDonationsCmd)},
	)
}

// handler adapts a cobra command constructor to a command.Handler. A fresh
// command is built per call so flag state never leaks between runs.
func (a *App) handler(newCmd func() *cobra.Command) command.Handler {
	return func(ctx context.Context, args []string) error {
		c := newCmd()
		c.SetArgs(args)
		c.SetOut(a.Stdout)
		c.SetErr(a.Stderr)
		c.SilenceErrors = true
		return c.ExecuteContext(ctx)
	}
}

// Main dispatches argv by the base name of argv[0] and returns the exit code.
func Main(ctx context.Context, argv []string, app *App) int {
	reg, err := NewRegistry(app)
	if err != nil {
		return fail(app, err)
	}

	name := filepath.Base(argv[0])
	args := argv[1:]
	if name == BinaryName {
		if len(args) == 0 || args[0] == "--help" || args[0] == "-h" {
			fmt.Fprintln(app.Stdout, usage(reg))
			return 0
		}
		if args[0] == "--version" {
			fmt.Fprintf(app.Stdout, "%s version %s\n", BinaryName, Version)
			return 0
		}
		name, args = args[0], args[1:]
	}

	h, err := reg.Dispatch(name)
	if err != nil {
		return fail(app, err)
	}
	if err := h(ctx, args); err != nil {
		return fail(app, err)
	}
	return 0
}

// Execute runs the dispatcher for the current process.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Main(ctx, os.Args, DefaultApp())
	stop()
	os.Exit(code)
}

func fail(app *App, err error) int {
	fmt.Fprintln(app.Stderr, ui.Err(err.Error()))
	return 1
}

func usage(reg *command.Registry) string {
	var sb strings.Builder
	sb.WriteString("Forward collected donations from the donation forwarder contracts.\n\n")
	sb.WriteString("Invoke through a link named after the command, or as\n")
	sb.WriteString("  " + BinaryName + " <command> [args]\n\n")
	sb.WriteString("Commands:\n")
	for _, n := range reg.Names() {
		sb.WriteString("  " + n + "\n")
	}
	return sb.String()
}
