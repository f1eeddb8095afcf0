package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lessonplay/internal/app"
	"lessonplay/internal/catalog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "lessonplay:", err)
	var cfgErr *catalog.ConfigError
	if errors.As(err, &cfgErr) {
		os.Exit(2)
	}
	os.Exit(1)
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "lessonplay",
		Short:         "Self-paced audio lessons with timed quizzes and reference tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlay(cmd, configPath)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML config file")
	pf.String("course", "", "course directory")
	pf.String("data-dir", "", "directory for progress records")
	pf.String("store", "", "record backend: sqlite, file or memory")
	pf.String("playback", "", "media backend: auto, beep or silent")
	pf.String("log", "", "append JSON logs to this file")
	pf.Bool("debug", false, "verbose logging")
	pf.String("theme", "", "light or dark; defaults to the saved preference")
	pf.Bool("ascii", false, "ASCII-only rendering")
	pf.Float64("window", 0, "default component window in seconds")

	root.AddCommand(
		&cobra.Command{
			Use:   "play",
			Short: "Open the lesson player (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runPlay(cmd, configPath)
			},
		},
		newValidateCmd(&configPath),
		newLessonsCmd(&configPath),
		newBookmarksCmd(&configPath),
		newSimulateCmd(&configPath),
	)
	return root
}

func loadConfig(cmd *cobra.Command, configPath string) (app.Config, error) {
	return app.Load(configPath, cmd.Flags())
}

func runPlay(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}
	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(cmd.Context())
}
