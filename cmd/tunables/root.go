// FILE: lixenwraith/tunable/cmd/tunables/root.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/tunable"
	"github.com/lixenwraith/tunable/task"
)

const appName = "tunables"

var version = "dev"

// app carries the state shared by the commands of one invocation.
type app struct {
	verbose   bool
	preset    string
	envPrefix string
	strict    bool

	// sets holds path=value overrides applied after the tunable flags
	sets []string
	// presetPath is the preset file applied by the last load
	presetPath string

	interceptor *tunable.Interceptor[tunable.Handler]
	mutator     *tunable.Mutator
	recorder    *tunable.Recorder
	factory     *EdgeFilterTaskFactory
	logger      *slog.Logger
}

func newApp() *app {
	interceptor := tunable.NewBuilder[tunable.Handler]().
		WithFactories(tunable.NewBasicFactory()).
		WithValidator(tunable.RequireFactories[tunable.Handler]).
		MustBuild()

	return &app{
		interceptor: interceptor,
		mutator:     tunable.NewMutator(interceptor),
		recorder:    tunable.NewRecorder(interceptor),
		factory:     newEdgeFilterTaskFactory(os.Stdout),
		logger:      slog.Default(),
	}
}

// setup configures logging and the failure policy once flags are parsed.
func (a *app) setup(cmd *cobra.Command) {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	a.interceptor.SetLogger(a.logger)
	if a.strict != a.interceptor.Strict() {
		a.interceptor.SetStrict(a.strict)
		a.interceptor.Reset()
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Inspects and runs tunable tasks.",
		Long: `tunables discovers the tunable parameters of a sample edge filter task,
layers values from a preset file, the environment and flags onto them, and
runs the task on an in-memory network.`,
		Version:      version,
		SilenceUsage: true,
	}

	a := newApp()

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&a.preset, "preset", "", "Preset file (default is search ., $XDG_CONFIG_HOME/tunables/)")
	root.PersistentFlags().StringVar(&a.envPrefix, "env-prefix", "TUNABLES_", "Prefix of environment variables overriding tunables")
	root.PersistentFlags().BoolVar(&a.strict, "strict", false, "Fail on tunables no handler factory accepts")

	root.AddCommand(newInspectCmd(a), newRunCmd(a))
	return root
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "List the tunables of the edge filter and their current values.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.setup(cmd)
			if err := a.load(cmd); err != nil {
				return err
			}

			listing, err := a.recorder.Describe(a.factory.Context)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), listing)
			return nil
		},
	}
}

func newRunCmd(a *app) *cobra.Command {
	var save string
	var watch bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the edge filter with the layered tunable values.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.setup(cmd)
			if err := a.load(cmd); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a.factory.out = cmd.OutOrStdout()
			if err := a.factory.SetNetwork(sampleNetwork()); err != nil {
				return err
			}
			runner := task.NewRunner(a.mutator, a.logger)
			if err := runner.Execute(ctx, a.factory, nil); err != nil {
				return err
			}

			if save != "" {
				if err := a.recorder.Save(a.factory.Context, save); err != nil {
					return fmt.Errorf("failed to save preset: %w", err)
				}
				a.logger.Info("preset saved", "path", save)
			}

			if watch {
				return a.watch(ctx, cmd, runner)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "Write the resulting tunable values to this preset file")
	cmd.Flags().BoolVar(&watch, "watch", false, "Re-run whenever the preset file changes")
	cmd.Flags().StringArrayVar(&a.sets, "set", nil, "Override a tunable by path, as path=value (repeatable)")

	// One flag per tunable, named by path.
	fs, err := a.mutator.FlagSet(a.factory.Context)
	if err != nil {
		panic(fmt.Sprintf("failed to derive tunable flags: %v", err))
	}
	cmd.Flags().AddFlagSet(fs)

	return cmd
}

// load layers the preset file, the environment and the tunable flags onto
// the filter context, lowest precedence first.
func (a *app) load(cmd *cobra.Command) error {
	path := a.preset
	if path == "" {
		path = tunable.FindPreset(tunable.DefaultPresetOptions(appName), nil)
	}
	a.presetPath = ""
	if path != "" {
		a.logger.Debug("applying preset", "path", path)
		if err := a.mutator.ApplyFile(a.factory.Context, path); err != nil {
			if !errors.Is(err, tunable.ErrPresetNotFound) || a.preset != "" {
				return err
			}
		} else {
			a.presetPath = path
		}
	}
	return a.applyOverrides(cmd)
}

// applyOverrides applies the environment, the tunable flags and --set values.
func (a *app) applyOverrides(cmd *cobra.Command) error {
	subject := a.factory.Context
	if err := a.mutator.ApplyEnv(subject, a.envPrefix); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}
	if err := a.mutator.BindFlags(subject, cmd.Flags()); err != nil {
		return fmt.Errorf("invalid flag: %w", err)
	}
	for _, set := range a.sets {
		path, value, ok := strings.Cut(set, "=")
		if !ok {
			return fmt.Errorf("invalid --set '%s': want path=value", set)
		}
		if err := a.mutator.Set(subject, strings.TrimSpace(path), value); err != nil {
			return fmt.Errorf("invalid --set '%s': %w", set, err)
		}
	}
	return nil
}

// watch re-runs the filter each time the preset file changes, until ctx is done.
func (a *app) watch(ctx context.Context, cmd *cobra.Command, runner *task.Runner) error {
	if a.presetPath == "" {
		return fmt.Errorf("--watch requires a preset file")
	}

	w, err := a.mutator.WatchPreset(a.factory.Context, a.presetPath, tunable.DefaultWatchOptions())
	if err != nil {
		return err
	}
	defer w.Stop()

	changes := w.Subscribe()
	a.logger.Info("watching preset", "path", a.presetPath)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-changes:
			if !ok {
				return nil
			}
			if strings.HasPrefix(event, tunable.EventReloadErrorPrefix) || event == tunable.EventPermissionsChanged {
				a.logger.Warn("preset not reloaded", "event", event)
				continue
			}
			if event == tunable.EventFileDeleted || event == tunable.EventReloadTimeout {
				a.logger.Warn("preset watch event", "event", event)
				continue
			}

			// One reload notifies every changed path
			drain(changes)

			if err := a.applyOverrides(cmd); err != nil {
				return err
			}
			if err := runner.Execute(ctx, a.factory, nil); err != nil {
				a.logger.Error("run after preset change failed", "error", err)
			}
		}
	}
}

func drain(ch <-chan string) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
