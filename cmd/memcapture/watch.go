package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"memcapture/internal/capture"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var (
		debounce time.Duration
		upload   bool
		cwd      string
	)

	cmd := &cobra.Command{
		Use:   "watch <transcript> <session-id>",
		Short: "Capture new turns whenever the transcript grows",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			transcriptPath, sessionID := args[0], args[1]
			projectDir := resolveCWD(cwd)
			c := a.capturer()
			out := cmd.OutOrStdout()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			onChange := func() {
				var (
					turn     *capture.Turn
					memoryID string
					err      error
				)
				if upload {
					turn, memoryID, err = a.uploadTurn(cmd, c, projectDir, transcriptPath, sessionID)
				} else {
					turn, err = c.CaptureNew(transcriptPath, sessionID)
				}
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "memcapture: %v\n", err)
					return
				}
				if turn == nil {
					return
				}
				fmt.Fprintf(out, "%s\tcaptured %d records (%s..%s)", turn.Timestamp, turn.Records, turn.FirstUUID, turn.LastUUID)
				if memoryID != "" {
					fmt.Fprintf(out, "\t%s", memoryID)
				}
				fmt.Fprintln(out)
			}

			w := &transcriptWatcher{path: transcriptPath, debounce: debounce}
			err = w.run(ctx, onChange)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.DurationVar(&debounce, "debounce", 2*time.Second, "quiet period after the last write before capturing")
	flags.BoolVar(&upload, "upload", false, "save each turn to Supermemory before advancing the cursor")
	flags.StringVar(&cwd, "cwd", "", "project directory used to pick the container (default: current directory)")
	return cmd
}

// transcriptWatcher calls onChange once writes to a single file settle.
type transcriptWatcher struct {
	path     string
	debounce time.Duration
}

// run watches the file's directory so the file may be created or replaced
// after the watch starts. It returns when ctx is done.
func (w *transcriptWatcher) run(ctx context.Context, onChange func()) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	target, err := filepath.Abs(w.path)
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	timer := time.NewTimer(w.debounce)
	if _, err := os.Stat(target); err != nil {
		timer.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch transcript", "error", err)

		case <-timer.C:
			onChange()
		}
	}
}
