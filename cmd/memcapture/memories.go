package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"memcapture/internal/config"
	"memcapture/internal/format"
	"memcapture/internal/memstore"
	"memcapture/internal/project"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newAddCmd() *cobra.Command {
	var (
		repo bool
		cwd  string
	)

	cmd := &cobra.Command{
		Use:   "add <text...>",
		Short: "Save a note to your personal memories (or the shared project with --repo)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.TrimSpace(strings.Join(args, " "))
			if content == "" {
				return errors.New("no content provided")
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return apiKeyError(err)
			}

			ctx := cmd.Context()
			dir := resolveCWD(cwd)
			name := a.resolver.Name(ctx, dir)
			tag, kind := a.resolver.ContainerTag(ctx, dir), "manual"
			if repo {
				tag, kind = a.resolver.RepoContainerTag(ctx, dir), "project-knowledge"
			}

			res, err := client.AddMemory(ctx, content, tag, map[string]any{
				"type":      kind,
				"project":   name,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			}, "")
			if err != nil {
				return errors.New(memstore.FriendlyMessage(err))
			}

			out := cmd.OutOrStdout()
			if repo {
				fmt.Fprintf(out, "Project knowledge saved: %s\n", name)
			} else {
				fmt.Fprintf(out, "Memory saved to project: %s\n", name)
			}
			fmt.Fprintf(out, "ID: %s\n", res.ID)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&repo, "repo", false, "save to the repository container shared with your team")
	flags.StringVar(&cwd, "cwd", "", "project directory (default: current directory)")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var (
		user       bool
		repo       bool
		both       bool
		limit      int
		formatFlag string
		noHeader   bool
		width      int
		cwd        string
	)

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search personal and project memories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return errors.New("no search query provided")
			}
			scope, err := searchScope(user, repo, both)
			if err != nil {
				return err
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return apiKeyError(err)
			}

			ctx := cmd.Context()
			dir := resolveCWD(cwd)
			out := cmd.OutOrStdout()
			fmt.Fprintf(cmd.ErrOrStderr(), "Project: %s\n", a.resolver.Name(ctx, dir))

			type target struct {
				label string
				tag   string
			}
			var targets []target
			if scope != "repo" {
				targets = append(targets, target{"Personal", a.resolver.ContainerTag(ctx, dir)})
			}
			if scope != "user" {
				targets = append(targets, target{"Project", a.resolver.RepoContainerTag(ctx, dir)})
			}
			if limit <= 0 {
				limit = 10
				if scope == "both" {
					limit = 5
				}
			}

			found, sections := 0, 0
			for _, t := range targets {
				res, err := client.Search(ctx, query, t.tag, limit)
				if err != nil {
					return fmt.Errorf("search %s memories: %s", strings.ToLower(t.label), memstore.FriendlyMessage(err))
				}
				if scope == "both" && len(res.Results) == 0 {
					continue
				}
				found += len(res.Results)
				if sections > 0 {
					fmt.Fprintln(out)
				}
				sections++
				fmt.Fprintf(out, "%s memories for %q:\n", t.label, query)
				if err := format.WriteSearchHits(out, res.Results, !noHeader, formatFlag, width); err != nil {
					return err
				}
			}
			if scope == "both" && found == 0 {
				fmt.Fprintf(out, "No memories found for %q\n", query)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&user, "user", false, "search personal memories only")
	flags.BoolVar(&repo, "repo", false, "search shared project memories only")
	flags.BoolVar(&both, "both", false, "search both containers (default)")
	flags.IntVar(&limit, "limit", 0, "results per container (default 5 for both, 10 otherwise)")
	flags.StringVar(&formatFlag, "format", "table", "output format: table, plain, json, or jsonl")
	flags.BoolVar(&noHeader, "no-header", false, "omit header row for table and plain output")
	flags.IntVar(&width, "width", 200, "maximum characters shown per memory (0 means no limit)")
	flags.StringVar(&cwd, "cwd", "", "project directory (default: current directory)")
	return cmd
}

func searchScope(user, repo, both bool) (string, error) {
	n := 0
	for _, set := range []bool{user, repo, both} {
		if set {
			n++
		}
	}
	switch {
	case n > 1:
		return "", errors.New("--user, --repo and --both are mutually exclusive")
	case user:
		return "user", nil
	case repo:
		return "repo", nil
	default:
		return "both", nil
	}
}

func newListCmd() *cobra.Command {
	var (
		repo         bool
		limit        int
		formatFlag   string
		noHeader     bool
		summaryWidth int
		cwd          string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent stored memories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return apiKeyError(err)
			}

			ctx := cmd.Context()
			dir := resolveCWD(cwd)
			tag := a.resolver.ContainerTag(ctx, dir)
			if repo {
				tag = a.resolver.RepoContainerTag(ctx, dir)
			}

			memories, err := client.ListMemories(ctx, tag, limit)
			if err != nil && !isNotFound(err) {
				return errors.New(memstore.FriendlyMessage(err))
			}
			return format.WriteMemories(cmd.OutOrStdout(), memories, !noHeader, strings.ToLower(formatFlag), summaryWidth)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&repo, "repo", false, "list the shared project container instead of your personal one")
	flags.IntVar(&limit, "limit", 20, "maximum number of memories returned")
	flags.StringVar(&formatFlag, "format", "table", "output format: table, plain, json, or jsonl")
	flags.BoolVar(&noHeader, "no-header", false, "omit header row for table and plain output")
	flags.IntVar(&summaryWidth, "summary-width", 120, "maximum characters included in the summary column")
	flags.StringVar(&cwd, "cwd", "", "project directory (default: current directory)")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <memory-id>",
		Short: "Delete a stored memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return apiKeyError(err)
			}
			if err := client.DeleteMemory(cmd.Context(), args[0]); err != nil {
				return errors.New(memstore.FriendlyMessage(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <memory-id>",
		Short: "Print a stored memory as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return apiKeyError(err)
			}
			m, err := client.GetMemory(cmd.Context(), args[0])
			if err != nil {
				return errors.New(memstore.FriendlyMessage(err))
			}
			return writeJSONValue(cmd.OutOrStdout(), m)
		},
	}
}

func newProfileCmd() *cobra.Command {
	var (
		repo        bool
		limit       int
		memoryLimit int
		formatFlag  string
		noHeader    bool
		width       int
		cwd         string
	)

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the profile and memories stored for this project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return apiKeyError(err)
			}

			ctx := cmd.Context()
			dir := resolveCWD(cwd)
			dump := format.ProfileDump{Project: a.resolver.Name(ctx, dir)}
			dump.ContainerTag = a.resolver.ContainerTag(ctx, dir)
			if repo {
				dump.ContainerTag = a.resolver.RepoContainerTag(ctx, dir)
			}

			// A container nobody has written to yet answers 404.
			profile, err := client.Profile(ctx, dump.ContainerTag, "")
			if err != nil && !isNotFound(err) {
				return errors.New(memstore.FriendlyMessage(err))
			}
			if profile != nil {
				dump.Static, dump.Dynamic = profile.Static, profile.Dynamic
			}
			dump.Memories, err = client.ListMemories(ctx, dump.ContainerTag, memoryLimit)
			if err != nil && !isNotFound(err) {
				return errors.New(memstore.FriendlyMessage(err))
			}

			return format.WriteProfile(cmd.OutOrStdout(), dump, !noHeader, formatFlag, limit, width)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&repo, "repo", false, "show the shared project container instead of your personal one")
	flags.IntVar(&limit, "limit", 10, "profile items shown per kind (0 means all)")
	flags.IntVar(&memoryLimit, "memories", 200, "maximum number of memories listed")
	flags.StringVar(&formatFlag, "format", "table", "output format: table, plain, or json")
	flags.BoolVar(&noHeader, "no-header", false, "omit header row for table and plain output")
	flags.IntVar(&width, "width", 120, "maximum characters shown per item (0 means no limit)")
	flags.StringVar(&cwd, "cwd", "", "project directory (default: current directory)")
	return cmd
}

func isNotFound(err error) bool {
	status, ok := memstore.StatusOf(err)
	return ok && status == http.StatusNotFound
}

func apiKeyError(err error) error {
	if errors.Is(err, config.ErrNoAPIKey) {
		return errors.New("no Supermemory API key configured: run `memcapture login <api-key>` or set SUPERMEMORY_CC_API_KEY")
	}
	return err
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <api-key>",
		Short: "Store an API key in the credentials file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			if !strings.HasPrefix(key, "sm_") {
				return errors.New("invalid key: Supermemory API keys start with sm_ (get one at https://console.supermemory.ai)")
			}
			if err := config.SaveCredentials(settingsDir, key, time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved credentials to %s\n", config.CredentialsPath(settingsDir))
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ClearCredentials(settingsDir); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialise the settings file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadFrom(settingsDir)
			if err != nil {
				return err
			}
			return writeSettings(cmd.OutOrStdout(), settings)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadFrom(settingsDir)
			if err != nil {
				if !force {
					return err
				}
				settings = config.DefaultsIn(settingsDir)
			}
			if !force && fileExists(settings.Path()) {
				return fmt.Errorf("%s already exists (use --force to overwrite)", settings.Path())
			}
			if err := settings.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", settings.Path())
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing settings file")
	cmd.AddCommand(initCmd)

	return cmd
}

func writeSettings(w io.Writer, settings *config.Settings) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(settings); err != nil {
		return err
	}
	return enc.Close()
}

type projectInfo struct {
	Name                 string `yaml:"name"`
	Root                 string `yaml:"root"`
	PersonalContainerTag string `yaml:"personalContainerTag"`
	RepoContainerTag     string `yaml:"repoContainerTag"`
	ConfigPath           string `yaml:"configPath"`
}

func newProjectCmd() *cobra.Command {
	var (
		cwd         string
		personalTag string
		repoTag     string
	)

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Show the project's containers, or pin them with --personal-tag / --repo-tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			dir := resolveCWD(cwd)
			root := a.resolver.ConfigRoot(ctx, dir)

			if personalTag != "" || repoTag != "" {
				path, err := project.SaveConfig(root, project.Config{
					PersonalContainerTag: personalTag,
					RepoContainerTag:     repoTag,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Updated %s\n", path)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(projectInfo{
				Name:                 a.resolver.Name(ctx, dir),
				Root:                 root,
				PersonalContainerTag: a.resolver.ContainerTag(ctx, dir),
				RepoContainerTag:     a.resolver.RepoContainerTag(ctx, dir),
				ConfigPath:           project.ConfigPath(root),
			}); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cwd, "cwd", "", "project directory (default: current directory)")
	flags.StringVar(&personalTag, "personal-tag", "", "pin the personal container tag for this project")
	flags.StringVar(&repoTag, "repo-tag", "", "pin the shared repository container tag for this project")
	return cmd
}
