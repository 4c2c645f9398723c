package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"memcapture/internal/capture"
	"memcapture/internal/config"
	"memcapture/internal/format"
	"memcapture/internal/hook"
	"memcapture/internal/logging"
	"memcapture/internal/memstore"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// hookHandler answers one host event. Handlers never fail: problems are
// logged and the host is told to continue.
type hookHandler func(ctx context.Context, a *app, in hook.Input) hook.Output

func newHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Handle a Claude Code hook event read from stdin",
	}
	cmd.AddCommand(newHookEventCmd("post-tool-use", hook.EventPostToolUse, "Count a tool use toward the save prompt",
		func(ctx context.Context, a *app, in hook.Input) hook.Output { return a.postToolUse(ctx, in) }))
	cmd.AddCommand(newHookEventCmd("stop", hook.EventStop, "Save the conversation since the last capture",
		func(ctx context.Context, a *app, in hook.Input) hook.Output { return a.stop(ctx, in) }))
	cmd.AddCommand(newHookEventCmd("session-start", hook.EventSessionStart, "Inject stored memories as session context",
		func(ctx context.Context, a *app, in hook.Input) hook.Output { return a.sessionStart(ctx, in) }))
	return cmd
}

// newHookEventCmd builds the command registered for event. A payload naming
// another event is still handled; the mismatch only shows up in the log.
func newHookEventCmd(use, event, short string, handle hookHandler) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			in, err := hook.ReadInput(cmd.InOrStdin())
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "memcapture: %v\n", err)
				return hook.WriteOutput(out, hook.Continue())
			}
			a := loadHookApp(in.CWD)
			if in.HookEventName != "" && in.HookEventName != event {
				slog.Warn("hook registered for another event", "command", use, "want", event, "got", in.HookEventName)
			}
			return hook.WriteOutput(out, handle(cmd.Context(), a, in))
		},
	}
}

// loadHookApp loads the project's .env and the settings, falling back to the
// defaults so a broken settings file never blocks the host.
func loadHookApp(cwd string) *app {
	var envErr error
	if cwd != "" {
		envErr = config.LoadDotEnv(cwd)
	}

	a, err := loadApp()
	if err != nil {
		logging.Init(os.Stderr, false)
		slog.Warn("settings unavailable, using defaults", "error", err)
		a = newApp(config.DefaultsIn(settingsDir), stateDir)
	}
	if envErr != nil {
		slog.Warn("load .env", "error", envErr)
	}
	return a
}

func (a *app) postToolUse(_ context.Context, in hook.Input) hook.Output {
	log := logging.ForSession(in.SessionID)
	log.Debug("post tool use", "tool", in.ToolName)

	if in.SessionID == "" || in.ToolName == "" {
		return hook.Continue()
	}
	if !a.settings.ShouldCaptureTool(in.ToolName) {
		log.Debug("skipping tool", "tool", in.ToolName)
		return hook.Continue()
	}

	st, err := a.counter().RecordEvent(in.SessionID, in.ToolName)
	if err != nil {
		log.Warn("record activity", "error", err)
		return hook.Continue()
	}
	log.Debug("activity tracked", "tool_uses", st.ToolUses, "since_last_save", st.SinceLastSave)
	return hook.Continue()
}

func (a *app) stop(ctx context.Context, in hook.Input) hook.Output {
	log := logging.ForSession(in.SessionID)
	log.Debug("stop", "transcript", in.TranscriptPath)

	if in.SessionID == "" || in.TranscriptPath == "" {
		log.Debug("missing transcript path or session id")
		return hook.Continue()
	}

	client, err := a.client()
	if err != nil {
		log.Debug("capture disabled", "error", err)
		return hook.Continue()
	}

	c := a.capturer()
	turn, err := c.Preview(in.TranscriptPath, in.SessionID)
	if err != nil {
		log.Warn("capture", "error", err)
		return hook.Continue()
	}
	if turn == nil {
		log.Debug("no new content to save")
		return hook.Continue()
	}

	res, err := a.saveTurn(ctx, client, resolveCWD(in.CWD), in.SessionID, turn)
	if err != nil {
		log.Warn("save turn", "error", memstore.FriendlyMessage(err), "retryable", memstore.IsRetryable(err))
		return hook.Continue()
	}
	if err := c.Commit(in.SessionID, turn); err != nil {
		log.Warn("commit cursor", "error", err)
		return hook.Continue()
	}
	log.Debug("session turn saved", "id", res.ID, "length", len(turn.Text), "records", turn.Records)
	return hook.Continue()
}

var turnNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://supermemory.ai/claude-code/session-turn"))

// turnKey identifies a turn so a re-sent turn replaces the stored copy
// instead of duplicating it.
func turnKey(sessionID string, turn *capture.Turn) string {
	name := sessionID + ":" + turn.FirstUUID + ":" + turn.LastUUID
	return uuid.NewSHA1(turnNamespace, []byte(name)).String()
}

func (a *app) saveTurn(ctx context.Context, client *memstore.Client, cwd, sessionID string, turn *capture.Turn) (*memstore.AddResult, error) {
	metadata := map[string]any{
		"type":       "session_turn",
		"project":    a.resolver.Name(ctx, cwd),
		"session_id": sessionID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
	return client.AddMemory(ctx, turn.Text, a.resolver.ContainerTag(ctx, cwd), metadata, turnKey(sessionID, turn))
}

func (a *app) sessionStart(ctx context.Context, in hook.Input) hook.Output {
	cwd := resolveCWD(in.CWD)
	log := logging.ForSession(in.SessionID)

	client, err := a.client()
	if err != nil {
		log.Debug("no API key", "error", err)
		return hook.WithContext(hook.EventSessionStart, format.StatusMessage(
			"Supermemory API key not configured.\nRun `memcapture login <api-key>` or set SUPERMEMORY_CC_API_KEY.\nGet your key at https://console.supermemory.ai"))
	}

	name := a.resolver.Name(ctx, cwd)
	personalTag := a.resolver.ContainerTag(ctx, cwd)
	repoTag := a.resolver.RepoContainerTag(ctx, cwd)
	log.Debug("fetching contexts", "project", name, "personal", personalTag, "repo", repoTag)

	var (
		wg                   sync.WaitGroup
		personal, repo       *memstore.Profile
		personalErr, repoErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		personal, personalErr = client.Profile(ctx, personalTag, name)
	}()
	go func() {
		defer wg.Done()
		repo, repoErr = client.Profile(ctx, repoTag, name)
	}()
	wg.Wait()

	var notices []string
	for _, fetch := range []struct {
		label string
		err   error
	}{{"personal", personalErr}, {"repo", repoErr}} {
		if fetch.err == nil {
			continue
		}
		if memstore.IsBenign(fetch.err) {
			log.Debug("benign error fetching context", "container", fetch.label, "error", fetch.err)
			continue
		}
		msg := memstore.FriendlyMessage(fetch.err)
		log.Warn("fetch context", "container", fetch.label, "error", msg)
		if !slices.Contains(notices, msg) {
			notices = append(notices, msg)
		}
	}

	return hook.WithContext(hook.EventSessionStart, sessionContext(
		format.ProfileSection(personal, a.settings.MaxProfileItems),
		format.ProfileSection(repo, a.settings.MaxProfileItems),
		notices,
	))
}

// sessionContext assembles the injected context. API problems are reported
// ahead of whatever memories could be fetched; when nothing was fetched and
// something failed, only the problems are reported.
func sessionContext(personal, repo string, notices []string) string {
	if len(notices) == 0 {
		return format.CombineContexts(personal, repo)
	}
	status := format.StatusMessage(strings.Join(notices, "\n"))
	if personal == "" && repo == "" {
		return status
	}
	return status + "\n" + format.CombineContexts(personal, repo)
}
