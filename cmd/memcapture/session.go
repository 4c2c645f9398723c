package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"memcapture/internal/activity"
	"memcapture/internal/capture"
	"memcapture/internal/format"
	"memcapture/internal/memstore"

	"github.com/spf13/cobra"
)

type turnPayload struct {
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
	FirstUUID string `json:"first_uuid"`
	LastUUID  string `json:"last_uuid"`
	Records   int    `json:"records"`
	DryRun    bool   `json:"dry_run"`
	MemoryID  string `json:"memory_id,omitempty"`
	Text      string `json:"text"`
}

func newCaptureCmd() *cobra.Command {
	var (
		dryRun       bool
		upload       bool
		cwd          string
		formatFlag   string
		wrap         int
		forceColor   bool
		forceNoColor bool
	)

	cmd := &cobra.Command{
		Use:   "capture <transcript> <session-id>",
		Short: "Format the conversation appended since the last capture",
		Long: "Format every user and assistant record appended to the transcript since the session's\n" +
			"cursor and advance the cursor. With --dry-run the cursor is left untouched; with\n" +
			"--upload the turn is also saved to Supermemory and the cursor only advances once it is stored.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if forceColor && forceNoColor {
				return errors.New("--color and --no-color cannot be used together")
			}
			if dryRun && upload {
				return errors.New("--dry-run and --upload cannot be used together")
			}
			formatMode := strings.ToLower(formatFlag)
			switch formatMode {
			case "", "text", "raw", "json":
			default:
				return fmt.Errorf("unsupported format: %s", formatFlag)
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			transcriptPath, sessionID := args[0], args[1]
			c := a.capturer()

			var (
				turn     *capture.Turn
				memoryID string
			)
			switch {
			case dryRun:
				turn, err = c.Preview(transcriptPath, sessionID)
			case upload:
				turn, memoryID, err = a.uploadTurn(cmd, c, resolveCWD(cwd), transcriptPath, sessionID)
			default:
				turn, err = c.CaptureNew(transcriptPath, sessionID)
			}
			if err != nil {
				return err
			}
			if turn == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "no new content")
				return nil
			}

			out := cmd.OutOrStdout()
			switch formatMode {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(turnPayload{
					SessionID: sessionID,
					Timestamp: turn.Timestamp,
					FirstUUID: turn.FirstUUID,
					LastUUID:  turn.LastUUID,
					Records:   turn.Records,
					DryRun:    dryRun,
					MemoryID:  memoryID,
					Text:      turn.Text,
				})
			case "raw":
				_, err := fmt.Fprintln(out, turn.Text)
				return err
			default:
				term := newTerminal(out)
				color := term.color(forceColor, forceNoColor)
				return term.show(renderTurn(turn.Text, term.width(wrap), color), color)
			}
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&dryRun, "dry-run", false, "format the new records without advancing the cursor")
	flags.BoolVar(&upload, "upload", false, "save the turn to Supermemory before advancing the cursor")
	flags.StringVar(&cwd, "cwd", "", "project directory used to pick the container (default: current directory)")
	flags.StringVar(&formatFlag, "format", "text", "output format: text, raw, or json")
	flags.IntVar(&wrap, "wrap", 0, "wrap block bodies at the given column width")
	flags.BoolVar(&forceColor, "color", false, "force-enable ANSI colors even when stdout is not a TTY")
	flags.BoolVar(&forceNoColor, "no-color", false, "disable ANSI colors regardless of terminal detection")

	return cmd
}

// uploadTurn previews the turn, stores it remotely and only then advances the
// cursor.
func (a *app) uploadTurn(cmd *cobra.Command, c *capture.Capturer, cwd, transcriptPath, sessionID string) (*capture.Turn, string, error) {
	client, err := a.client()
	if err != nil {
		return nil, "", err
	}
	turn, err := c.Preview(transcriptPath, sessionID)
	if err != nil || turn == nil {
		return nil, "", err
	}
	res, err := a.saveTurn(cmd.Context(), client, cwd, sessionID, turn)
	if err != nil {
		return nil, "", errors.New(memstore.FriendlyMessage(err))
	}
	if err := c.Commit(sessionID, turn); err != nil {
		return nil, "", err
	}
	return turn, res.ID, nil
}

func newRecordCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "record <session-id> <tool-name>",
		Short: "Count one tool use for a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			sessionID, tool := args[0], args[1]

			counter := a.counter()
			var st activity.Status
			if force || a.settings.ShouldCaptureTool(tool) {
				st, err = counter.RecordEvent(sessionID, tool)
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "tool %s is not captured; use --force to count it\n", tool)
				st, err = counter.Status(sessionID)
			}
			if err != nil {
				return err
			}
			if st.ShouldPrompt {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d tool uses since the last save (threshold %d); consider saving\n",
					st.SinceLastSave, counter.Threshold())
			}
			return writeJSONValue(cmd.OutOrStdout(), st)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "count the tool even when settings exclude it")
	return cmd
}

func newStatusCmd() *cobra.Command {
	var (
		formatFlag string
		noHeader   bool
	)

	cmd := &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show activity since the last save and whether to prompt for one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			st, err := a.counter().Status(args[0])
			if err != nil {
				return err
			}

			switch strings.ToLower(formatFlag) {
			case "", "json":
				return writeJSONValue(cmd.OutOrStdout(), st)
			default:
				return format.WriteStatuses(cmd.OutOrStdout(), []activity.Status{st}, !noHeader, formatFlag)
			}
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&formatFlag, "format", "json", "output format: json, table, plain, or jsonl")
	flags.BoolVar(&noHeader, "no-header", false, "omit header row for table and plain output")
	return cmd
}

func newSessionsCmd() *cobra.Command {
	var (
		formatFlag string
		noHeader   bool
		pending    bool
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List tracked sessions and their activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			statuses, err := a.counter().List()
			if err != nil {
				return err
			}
			if pending {
				statuses = pendingOnly(statuses)
			}
			return format.WriteStatuses(cmd.OutOrStdout(), statuses, !noHeader, strings.ToLower(formatFlag))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&formatFlag, "format", "table", "output format: table, plain, json, or jsonl")
	flags.BoolVar(&noHeader, "no-header", false, "omit header row for table and plain output")
	flags.BoolVar(&pending, "pending", false, "only show sessions with unsaved activity")
	return cmd
}

func pendingOnly(statuses []activity.Status) []activity.Status {
	var out []activity.Status
	for _, st := range statuses {
		if st.SinceLastSave > 0 {
			out = append(out, st)
		}
	}
	return out
}

type markSavedPayload struct {
	Success  bool   `json:"success"`
	ToolUses int    `json:"tool_uses"`
	Message  string `json:"message,omitempty"`
}

func newMarkSavedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark-saved <session-id>",
		Short: "Reset the unsaved activity count after a manual save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			n, err := a.counter().MarkSaved(args[0])
			if err != nil {
				return err
			}
			payload := markSavedPayload{Success: true, ToolUses: n}
			if n == 0 {
				payload.Message = "No activity to mark"
			}
			return writeJSONValue(cmd.OutOrStdout(), payload)
		},
	}
}

func writeJSONValue(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
