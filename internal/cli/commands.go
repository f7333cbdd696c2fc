package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/idilsaglam/todo-client/internal/config"
	"github.com/idilsaglam/todo-client/internal/logging"
	"github.com/idilsaglam/todo-client/internal/syncer"
	"github.com/idilsaglam/todo-client/internal/tui"
	"github.com/idilsaglam/todo-client/internal/ui"
)

func newLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "Open the interactive list (plain listing when not on a terminal)",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !ui.IsTTY(os.Stdout) || !ui.IsTTY(os.Stdin) {
				return a.list(cmd)
			}
			logger, closer, err := logging.File(a.cfg.LogFile, a.cfg.LogLevel)
			if err != nil {
				return err
			}
			defer closer.Close()
			if err := a.connect(logger); err != nil {
				return err
			}
			if err := tui.Run(cmd.Context(), a.sync, logger); err != nil {
				return fmt.Errorf("tui: %w", err)
			}
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the list once",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.list(cmd)
		},
	}
}

func (a *app) list(cmd *cobra.Command) error {
	syncer.Run(cmd.Context(), a.sync.Refresh())
	a.printList(cmd.OutOrStdout())
	return nil
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a new item (title can be multiple words)",
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			if len(args) == 0 {
				if !ui.IsTTY(os.Stdin) {
					return usagef("usage: todo add <title...>")
				}
				var err error
				if title, err = promptTitle(); err != nil {
					return err
				}
			}
			if strings.TrimSpace(title) == "" {
				return usagef("add: empty title")
			}

			a.store.SetDraft(title)
			syncer.Run(cmd.Context(), a.sync.Submit())
			if a.store.Draft() != "" {
				return errors.New("add: the server did not accept the item (see log above)")
			}
			ui.OK("added")
			items := a.store.Items()
			fmt.Fprintln(cmd.OutOrStdout(), ui.ItemLines(items[len(items)-1:], 1)[0])
			return nil
		},
	}
}

func promptTitle() (string, error) {
	var title string
	err := huh.NewInput().
		Title("New item").
		Placeholder("Buy milk").
		Value(&title).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("title cannot be empty")
			}
			return nil
		}).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", usagef("add: aborted")
		}
		return "", fmt.Errorf("prompt: %w", err)
	}
	return title, nil
}

func newDoneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "done <index...>",
		Short: "Toggle done for items at 1-based indexes",
		Args:  minArgs(1, "usage: todo done <index...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			syncer.Run(cmd.Context(), a.sync.Refresh())
			idx, err := parseIndexes("done", args, a.store.Len())
			if err != nil {
				return err
			}
			d := syncer.NewDispatcher(cmd.Context())
			for _, i := range idx {
				it, _ := a.store.At(i)
				d.Go(a.sync.Toggle(it.ID, it.Completed))
			}
			if err := d.Drain(cmd.Context()); err != nil {
				return err
			}
			ui.OK("toggled")
			a.printList(cmd.OutOrStdout())
			return nil
		},
	}
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <index...>",
		Short: "Remove items at 1-based indexes",
		Args:  minArgs(1, "usage: todo rm <index...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			syncer.Run(cmd.Context(), a.sync.Refresh())
			idx, err := parseIndexes("rm", args, a.store.Len())
			if err != nil {
				return err
			}
			// Resolve ids before the first delete shifts positions.
			ids := make([]string, 0, len(idx))
			for _, i := range idx {
				it, _ := a.store.At(i)
				ids = append(ids, it.ID)
			}
			before := a.store.Len()
			d := syncer.NewDispatcher(cmd.Context())
			for _, id := range ids {
				d.Go(a.sync.Delete(id))
			}
			if err := d.Drain(cmd.Context()); err != nil {
				return err
			}
			switch removed := before - a.store.Len(); {
			case a.sync.Stale():
				ui.Fail(fmt.Sprintf("removed %d of %d, but the list could not be reloaded and may be stale (see log above)", removed, len(ids)))
			case removed == len(ids):
				ui.OK("removed")
			default:
				ui.Fail(fmt.Sprintf("removed %d of %d (see log above)", removed, len(ids)))
			}
			a.printList(cmd.OutOrStdout())
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}

	var force bool
	var path string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default values",
		Args:  noArgs,
		// No API access needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("home: %w", err)
				}
				path = filepath.Join(home, ".todo", "config.toml")
			}
			if err := config.InitFile(path, force); err != nil {
				if errors.Is(err, config.ErrExists) {
					return usagef("%v (use --force to overwrite)", err)
				}
				return err
			}
			ui.OK("wrote " + path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	initCmd.Flags().StringVar(&path, "path", "", "Where to write (default ~/.todo/config.toml)")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  noArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.Source != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", cfg.Source)
			}
			return config.WriteExample(cmd.OutOrStdout(), *cfg)
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             "Print the version",
		Args:              noArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "todo", Version)
		},
	}
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usagef("%s: unexpected arguments: %s", cmd.Name(), strings.Join(args, " "))
	}
	return nil
}

func minArgs(n int, usage string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < n {
			return usagef("%s", usage)
		}
		return nil
	}
}
