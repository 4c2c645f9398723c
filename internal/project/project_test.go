package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGit map[string]string

func (f fakeGit) run(_ context.Context, _ string, args ...string) (string, error) {
	if out, ok := f[strings.Join(args, " ")]; ok {
		return out, nil
	}
	return "", errors.New("exit status 128")
}

func newTestResolver(git fakeGit, env map[string]string, settingsTag string) *Resolver {
	return &Resolver{
		git:         git.run,
		getenv:      func(k string) string { return env[k] },
		settingsTag: settingsTag,
	}
}

func TestGitRoot(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		git  fakeGit
		env  map[string]string
		cwd  string
		want string
	}{
		{
			name: "not a repository",
			git:  fakeGit{},
			cwd:  "/tmp/scratch",
			want: "",
		},
		{
			name: "main working tree",
			git: fakeGit{
				"rev-parse --git-common-dir": ".git",
				"rev-parse --show-toplevel":  "/src/app",
			},
			cwd:  "/src/app",
			want: "/src/app",
		},
		{
			name: "linked worktree resolves to main tree",
			git: fakeGit{
				"rev-parse --git-common-dir": "/src/app/.git",
				"rev-parse --show-toplevel":  "/src/app-feature",
			},
			cwd:  "/src/app-feature",
			want: "/src/app",
		},
		{
			name: "relative common dir from a subdirectory",
			git: fakeGit{
				"rev-parse --git-common-dir": "../.git",
				"rev-parse --show-toplevel":  "/src/app",
			},
			cwd:  "/src/app/pkg",
			want: "/src/app",
		},
		{
			name: "submodule common dir falls back to toplevel",
			git: fakeGit{
				"rev-parse --git-common-dir": "/src/app/.git/modules/lib",
				"rev-parse --show-toplevel":  "/src/app/lib",
			},
			cwd:  "/src/app/lib",
			want: "/src/app/lib",
		},
		{
			name: "isolated worktrees",
			git: fakeGit{
				"rev-parse --git-common-dir": "/src/app/.git",
				"rev-parse --show-toplevel":  "/src/app-feature",
			},
			env:  map[string]string{"SUPERMEMORY_ISOLATE_WORKTREES": "true"},
			cwd:  "/src/app-feature",
			want: "/src/app-feature",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(tt.git, tt.env, "")
			assert.Equal(t, tt.want, r.GitRoot(ctx, tt.cwd))
		})
	}
}

func TestRepoName(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		remote string
		want   string
	}{
		{"git@github.com:supermemoryai/claude-supermemory.git", "claude-supermemory"},
		{"https://github.com/acme/Widget", "Widget"},
		{"https://gitlab.example.com/group/sub/tool.git", "tool"},
	}
	for _, tt := range tests {
		r := newTestResolver(fakeGit{"remote get-url origin": tt.remote}, nil, "")
		assert.Equal(t, tt.want, r.RepoName(ctx, "/x"), tt.remote)
	}

	r := newTestResolver(fakeGit{}, nil, "")
	assert.Empty(t, r.RepoName(ctx, "/x"))
}

func TestContainerTagPrecedence(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	git := fakeGit{}

	r := newTestResolver(git, nil, "")
	hashed := r.ContainerTag(ctx, root)
	assert.Equal(t, "claudecode_project_"+shortHash(root), hashed)
	assert.Len(t, strings.TrimPrefix(hashed, "claudecode_project_"), 16)

	r = newTestResolver(git, nil, "from-settings")
	assert.Equal(t, "from-settings", r.ContainerTag(ctx, root))

	r = newTestResolver(git, map[string]string{"SUPERMEMORY_CONTAINER_TAG": "from-env"}, "from-settings")
	assert.Equal(t, "from-env", r.ContainerTag(ctx, root))

	_, err := SaveConfig(root, Config{PersonalContainerTag: "from-project"})
	require.NoError(t, err)
	assert.Equal(t, "from-project", r.ContainerTag(ctx, root))
}

func TestContainerTagUsesGitRoot(t *testing.T) {
	ctx := context.Background()
	git := fakeGit{
		"rev-parse --git-common-dir": ".git",
		"rev-parse --show-toplevel":  "/src/app",
	}
	r := newTestResolver(git, nil, "")
	assert.Equal(t, r.ContainerTag(ctx, "/src/app/internal"), r.ContainerTag(ctx, "/src/app/cmd"))
	assert.Equal(t, "claudecode_project_"+shortHash("/src/app"), r.ContainerTag(ctx, "/src/app/cmd"))
}

func TestRepoContainerTag(t *testing.T) {
	ctx := context.Background()

	r := newTestResolver(fakeGit{"remote get-url origin": "git@github.com:acme/My.Service.git"}, nil, "")
	assert.Equal(t, "repo_my_service", r.RepoContainerTag(ctx, t.TempDir()))

	dir := filepath.Join(t.TempDir(), "Local--Project")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	r = newTestResolver(fakeGit{}, nil, "")
	assert.Equal(t, "repo_local_project", r.RepoContainerTag(ctx, dir))

	_, err := SaveConfig(dir, Config{RepoContainerTag: "team_shared"})
	require.NoError(t, err)
	assert.Equal(t, "team_shared", r.RepoContainerTag(ctx, dir))
}

func TestName(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(fakeGit{"remote get-url origin": "https://github.com/acme/widget.git"}, nil, "")
	assert.Equal(t, "widget", r.Name(ctx, "/src/whatever"))

	r = newTestResolver(fakeGit{}, nil, "")
	assert.Equal(t, "whatever", r.Name(ctx, "/src/whatever"))
	assert.Equal(t, "unknown", r.Name(ctx, "/"))
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"claude-supermemory": "claude_supermemory",
		"__Foo..Bar__":       "foo_bar",
		"ünïcode":            "n_code",
		"ok":                 "ok",
	}
	for in, want := range tests {
		assert.Equal(t, want, Sanitize(in), in)
	}
}

func TestSaveConfigMerges(t *testing.T) {
	root := t.TempDir()

	path, err := SaveConfig(root, Config{PersonalContainerTag: "me"})
	require.NoError(t, err)
	assert.Equal(t, ConfigPath(root), path)

	_, err = SaveConfig(root, Config{RepoContainerTag: "team"})
	require.NoError(t, err)

	cfg, err := LoadConfig(root)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "me", cfg.PersonalContainerTag)
	assert.Equal(t, "team", cfg.RepoContainerTag)
}

func TestLoadConfigMissing(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}
