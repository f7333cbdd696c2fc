// Package cli wires configuration, logging and the sync layer into the todo
// command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/idilsaglam/todo-client/internal/api"
	"github.com/idilsaglam/todo-client/internal/config"
	"github.com/idilsaglam/todo-client/internal/logging"
	"github.com/idilsaglam/todo-client/internal/store"
	"github.com/idilsaglam/todo-client/internal/syncer"
	"github.com/idilsaglam/todo-client/internal/ui"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// usageError marks errors that should exit with ExitUsage.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, a ...any) error {
	return &usageError{msg: fmt.Sprintf(format, a...)}
}

// app is what every subcommand needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	client *api.Client
	store  *store.Store
	sync   *syncer.Syncer
}

// Run executes the command line and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string) int {
	return execute(ctx, NewRootCmd(), args)
}

func execute(ctx context.Context, root *cobra.Command, args []string) int {
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	if msg := err.Error(); msg != "" {
		ui.Fail(msg)
	}
	var ue *usageError
	if errors.As(err, &ue) {
		return ExitUsage
	}
	return ExitError
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "todo",
		Short: "todo - a tiny client for a remote todo list",
		Long: `todo - a tiny client for a remote todo list

Items live on a todo API server ({api_url}/api/todos). "todo ls" opens the
interactive list; the other subcommands do one thing and print the result.`,
		Example: `  todo add "Buy milk"
  todo ls
  todo done 2
  todo rm 3`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd == cmd.Root() {
				return nil
			}
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usagef("unknown subcommand: %s (see todo --help)", args[0])
			}
			_ = cmd.Help()
			return usagef("")
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	config.RegisterFlags(root.PersistentFlags())
	root.PersistentFlags().Bool("no-color", false, "Disable colored output")

	root.AddCommand(
		newLsCmd(a),
		newListCmd(a),
		newAddCmd(a),
		newDoneCmd(a),
		newRmCmd(a),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

// setup loads config and builds the client, store and syncer.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	ui.SetTheme(cfg.Theme)
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		ui.SetColorForcing(false, true)
	}

	logger, err := logging.Stderr(cfg.LogLevel)
	if err != nil {
		return usagef("%v", err)
	}
	return a.connect(logger)
}

// connect (re)builds the API side around logger.
func (a *app) connect(logger *log.Logger) error {
	client, err := api.New(a.cfg.APIURL, api.WithLogger(logger))
	if err != nil {
		return err
	}
	a.logger = logger
	a.client = client
	a.store = store.New()
	a.sync = syncer.New(client, a.store, logger)
	return nil
}

// parseIndexes turns 1-based index args into 0-based positions in n items.
func parseIndexes(cmd string, args []string, n int) ([]int, error) {
	out := make([]int, 0, len(args))
	seen := make(map[int]bool, len(args))
	for _, s := range args {
		i, err := strconv.Atoi(s)
		if err != nil {
			return nil, usagef("%s: not a number: %s", cmd, s)
		}
		if i < 1 || i > n {
			ui.Hint("Hint: run `todo list` to see valid indexes")
			return nil, usagef("index out of range: have %d, got %d", n, i)
		}
		if !seen[i] {
			seen[i] = true
			out = append(out, i-1)
		}
	}
	return out, nil
}

// printList draws the collection in a panel.
func (a *app) printList(w io.Writer) {
	lines := ui.ListLines(a.store.Items(), a.cfg.Group)
	lines = append(lines, "", ui.C(ui.Current().Muted, "Tip: add with `todo add \"Buy milk\"`"))
	ui.Panel(w, lines)
}
