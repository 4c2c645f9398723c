// Package main provides the memcapture CLI: Claude Code hooks that capture
// session turns into Supermemory, plus commands to inspect and manage them.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"memcapture/internal/activity"
	"memcapture/internal/capture"
	"memcapture/internal/config"
	"memcapture/internal/cursor"
	"memcapture/internal/format"
	"memcapture/internal/logging"
	"memcapture/internal/memstore"
	"memcapture/internal/project"
	"memcapture/internal/store"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	settingsDir string
	stateDir    string
)

var rootCmd = &cobra.Command{
	Use:          "memcapture",
	Short:        "Capture Claude Code session turns into long-term memory",
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsDir, "settings-dir", config.Dir(), "directory holding settings and credentials")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", store.DefaultRoot(), "directory holding cursors and activity state (env: SUPERMEMORY_STATE_DIR)")

	rootCmd.AddCommand(newHookCmd())
	rootCmd.AddCommand(newCaptureCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newRecordCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newMarkSavedCmd())
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newProjectCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "memcapture: %v\n", err)
		os.Exit(1)
	}
}

// app holds the components shared by every command.
type app struct {
	settings *config.Settings
	trackers *store.Dir
	resolver *project.Resolver
}

func newApp(settings *config.Settings, root string) *app {
	return &app{
		settings: settings,
		trackers: store.New(root),
		resolver: project.NewResolver(settings.PersonalContainerTag),
	}
}

// loadApp reads the settings and sets up logging on stderr.
func loadApp() (*app, error) {
	settings, err := config.LoadFrom(settingsDir)
	if err != nil {
		return nil, err
	}
	logging.Init(os.Stderr, settings.Debug)
	return newApp(settings, stateDir), nil
}

func (a *app) capturer() *capture.Capturer {
	return capture.New(cursor.New(a.trackers), capture.Options{
		Format: format.Options{
			MaxToolResultLength: a.settings.MaxToolResultLength,
			MaxToolInputLength:  a.settings.MaxToolInputLength,
			SkipResultTools:     a.settings.SkipResultTools,
		},
		MinTurnLength: a.settings.MinTurnLength,
	})
}

func (a *app) counter() *activity.Counter {
	return activity.New(a.trackers, a.settings.PromptThreshold)
}

func (a *app) client() (*memstore.Client, error) {
	key, err := a.settings.ResolveAPIKey()
	if err != nil {
		return nil, err
	}
	var opts []memstore.Option
	if a.settings.APIURL != "" {
		opts = append(opts, memstore.WithBaseURL(a.settings.APIURL))
	}
	return memstore.New(key, opts...)
}

func resolveCWD(cwd string) string {
	if cwd != "" {
		return cwd
	}
	wd, err := os.Getwd()
	if err != nil {
		slog.Debug("determine current directory", "error", err)
		return "."
	}
	return wd
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
