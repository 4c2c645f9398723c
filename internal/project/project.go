// Package project identifies the project a session runs in and derives the
// memory containers its turns are stored under.
package project

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	personalPrefix = "claudecode_project_"
	repoPrefix     = "repo_"
	unknownName    = "unknown"

	gitTimeout = 5 * time.Second
)

// Runner runs git with args in dir and returns its trimmed stdout.
type Runner func(ctx context.Context, dir string, args ...string) (string, error)

// ExecGit runs the git binary.
func ExecGit(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Resolver derives project names and container tags.
type Resolver struct {
	git    Runner
	getenv func(string) string

	// settingsTag is the personal container tag from user settings.
	settingsTag string
}

// NewResolver returns a Resolver using the git binary and the process
// environment. settingsTag is the user's configured personal tag, if any.
func NewResolver(settingsTag string) *Resolver {
	return &Resolver{git: ExecGit, getenv: os.Getenv, settingsTag: settingsTag}
}

// GitRoot returns the main working tree of the repository containing cwd, or
// "" outside a repository. Linked worktrees resolve to the main tree unless
// SUPERMEMORY_ISOLATE_WORKTREES=true.
func (r *Resolver) GitRoot(ctx context.Context, cwd string) string {
	if r.getenv("SUPERMEMORY_ISOLATE_WORKTREES") == "true" {
		root, _ := r.git(ctx, cwd, "rev-parse", "--show-toplevel")
		return root
	}

	common, err := r.git(ctx, cwd, "rev-parse", "--git-common-dir")
	if err != nil {
		return ""
	}
	if common != ".git" {
		resolved := common
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(cwd, resolved)
		}
		resolved = filepath.Clean(resolved)
		sep := string(filepath.Separator)
		if filepath.Base(resolved) == ".git" && !strings.Contains(resolved, sep+".git"+sep) {
			return filepath.Dir(resolved)
		}
	}
	root, _ := r.git(ctx, cwd, "rev-parse", "--show-toplevel")
	return root
}

func (r *Resolver) basePath(ctx context.Context, cwd string) string {
	if root := r.GitRoot(ctx, cwd); root != "" {
		return root
	}
	return cwd
}

var remoteName = regexp.MustCompile(`[/:]([^/]+?)(?:\.git)?$`)

// RepoName returns the repository name from the origin remote, or "".
func (r *Resolver) RepoName(ctx context.Context, dir string) string {
	remote, err := r.git(ctx, dir, "remote", "get-url", "origin")
	if err != nil {
		return ""
	}
	if m := remoteName.FindStringSubmatch(remote); m != nil {
		return m[1]
	}
	return ""
}

// Name returns a human-readable project name: the origin repository name,
// else the base name of the project directory.
func (r *Resolver) Name(ctx context.Context, cwd string) string {
	base := r.basePath(ctx, cwd)
	if name := r.RepoName(ctx, base); name != "" {
		return name
	}
	return baseName(base)
}

// ContainerTag returns the personal container for cwd. In order of
// preference: the project config, SUPERMEMORY_CONTAINER_TAG, the settings,
// then a tag derived from a hash of the project path.
func (r *Resolver) ContainerTag(ctx context.Context, cwd string) string {
	base := r.basePath(ctx, cwd)
	if cfg, _ := LoadConfig(base); cfg != nil && cfg.PersonalContainerTag != "" {
		return cfg.PersonalContainerTag
	}
	if tag := r.getenv("SUPERMEMORY_CONTAINER_TAG"); tag != "" {
		return tag
	}
	if r.settingsTag != "" {
		return r.settingsTag
	}
	return personalPrefix + shortHash(base)
}

// RepoContainerTag returns the container shared by everyone working on the
// repository.
func (r *Resolver) RepoContainerTag(ctx context.Context, cwd string) string {
	base := r.basePath(ctx, cwd)
	if cfg, _ := LoadConfig(base); cfg != nil && cfg.RepoContainerTag != "" {
		return cfg.RepoContainerTag
	}
	name := r.RepoName(ctx, base)
	if name == "" {
		name = baseName(base)
	}
	return repoPrefix + Sanitize(name)
}

// ConfigRoot returns the directory holding the project config for cwd.
func (r *Resolver) ConfigRoot(ctx context.Context, cwd string) string {
	return r.basePath(ctx, cwd)
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}

var (
	nonAlnum    = regexp.MustCompile(`[^a-z0-9]`)
	underscores = regexp.MustCompile(`_+`)
)

// Sanitize lowercases name and reduces it to [a-z0-9_] with single underscores.
func Sanitize(name string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(name), "_")
	s = underscores.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

func baseName(path string) string {
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return unknownName
	}
	return name
}
