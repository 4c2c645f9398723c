// Package config loads user settings for the capture hooks and CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	dirName      = ".supermemory-claude"
	yamlFileName = "settings.yaml"
	jsonFileName = "settings.json"
)

// Settings are the user-level options. Keys use the same camelCase names as
// the plugin's settings.json so an existing file keeps working.
type Settings struct {
	SkipTools            []string `yaml:"skipTools" mapstructure:"skipTools"`
	CaptureTools         []string `yaml:"captureTools" mapstructure:"captureTools"`
	SkipResultTools      []string `yaml:"skipResultTools" mapstructure:"skipResultTools"`
	MaxProfileItems      int      `yaml:"maxProfileItems" mapstructure:"maxProfileItems"`
	MaxToolResultLength  int      `yaml:"maxToolResultLength" mapstructure:"maxToolResultLength"`
	MaxToolInputLength   int      `yaml:"maxToolInputLength" mapstructure:"maxToolInputLength"`
	MinTurnLength        int      `yaml:"minTurnLength" mapstructure:"minTurnLength"`
	PromptThreshold      int      `yaml:"promptThreshold" mapstructure:"promptThreshold"`
	Debug                bool     `yaml:"debug" mapstructure:"debug"`
	APIURL               string   `yaml:"apiUrl,omitempty" mapstructure:"apiUrl"`
	PersonalContainerTag string   `yaml:"personalContainerTag,omitempty" mapstructure:"personalContainerTag"`

	// APIKey is never written back to the settings file.
	APIKey string `yaml:"-" mapstructure:"apiKey"`

	dir  string
	gate *ToolGate
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		SkipTools:           []string{"Read", "Glob", "Grep", "TodoWrite", "AskUserQuestion"},
		CaptureTools:        []string{"Edit", "Write", "Bash", "Task"},
		SkipResultTools:     []string{"Read"},
		MaxProfileItems:     5,
		MaxToolResultLength: 500,
		MaxToolInputLength:  200,
		MinTurnLength:       100,
		PromptThreshold:     5,
	}
}

// DefaultsIn returns the built-in settings bound to dir with the environment
// overrides applied, as LoadFrom would. It serves callers that must keep
// going when the settings file cannot be read.
func DefaultsIn(dir string) *Settings {
	s := Defaults()
	s.dir = dir
	for _, name := range []string{"SUPERMEMORY_CC_API_KEY", "SUPERMEMORY_API_KEY"} {
		if key := os.Getenv(name); key != "" {
			s.APIKey = key
			break
		}
	}
	if u := os.Getenv("SUPERMEMORY_API_URL"); u != "" {
		s.APIURL = u
	}
	if debug, err := strconv.ParseBool(os.Getenv("SUPERMEMORY_DEBUG")); err == nil {
		s.Debug = debug
	}
	if tools, ok := skipToolsFromEnv(); ok {
		s.SkipTools = tools
	}
	return &s
}

// Dir returns the settings directory, ~/.supermemory-claude.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return dirName
	}
	return filepath.Join(home, dirName)
}

// Load reads settings from Dir.
func Load() (*Settings, error) {
	return LoadFrom(Dir())
}

// LoadFrom reads settings.yaml, or settings.json when no YAML file exists,
// from dir and applies environment overrides. A missing file is not an error.
func LoadFrom(dir string) (*Settings, error) {
	v := viper.New()
	def := Defaults()
	v.SetDefault("skipTools", def.SkipTools)
	v.SetDefault("captureTools", def.CaptureTools)
	v.SetDefault("skipResultTools", def.SkipResultTools)
	v.SetDefault("maxProfileItems", def.MaxProfileItems)
	v.SetDefault("maxToolResultLength", def.MaxToolResultLength)
	v.SetDefault("maxToolInputLength", def.MaxToolInputLength)
	v.SetDefault("minTurnLength", def.MinTurnLength)
	v.SetDefault("promptThreshold", def.PromptThreshold)
	v.SetDefault("debug", false)

	_ = v.BindEnv("apiKey", "SUPERMEMORY_CC_API_KEY", "SUPERMEMORY_API_KEY")
	_ = v.BindEnv("apiUrl", "SUPERMEMORY_API_URL")
	_ = v.BindEnv("debug", "SUPERMEMORY_DEBUG")

	if path := settingsFile(dir); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if tools, ok := skipToolsFromEnv(); ok {
		s.SkipTools = tools
	}
	s.dir = dir

	gate, err := NewToolGate(s.SkipTools, s.CaptureTools)
	if err != nil {
		return nil, err
	}
	s.gate = gate
	return &s, nil
}

func settingsFile(dir string) string {
	for _, name := range []string{yamlFileName, jsonFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// skipToolsFromEnv reads SUPERMEMORY_SKIP_TOOLS; a blank value counts as unset.
func skipToolsFromEnv() ([]string, bool) {
	raw := os.Getenv("SUPERMEMORY_SKIP_TOOLS")
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	return splitList(raw), true
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Dir returns the directory the settings were loaded from.
func (s *Settings) Dir() string {
	if s.dir == "" {
		return Dir()
	}
	return s.dir
}

// Path returns the file Save writes to.
func (s *Settings) Path() string {
	return filepath.Join(s.Dir(), yamlFileName)
}

// Save writes the settings as YAML. The API key is left out; it belongs in
// the environment or the credentials file.
func (s *Settings) Save() error {
	if err := os.MkdirAll(s.Dir(), 0o700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(s.Path(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// ShouldCaptureTool reports whether events from the named tool are counted.
func (s *Settings) ShouldCaptureTool(name string) bool {
	if s.gate == nil {
		gate, err := NewToolGate(s.SkipTools, s.CaptureTools)
		if err != nil {
			return false
		}
		s.gate = gate
	}
	return s.gate.Allow(name)
}

// ErrNoAPIKey is returned when no API key is configured anywhere.
var ErrNoAPIKey = errors.New("no API key configured")

// ResolveAPIKey returns the API key from the environment or settings, falling
// back to the saved credentials.
func (s *Settings) ResolveAPIKey() (string, error) {
	if s.APIKey != "" {
		return s.APIKey, nil
	}
	creds, err := LoadCredentials(s.Dir())
	if err != nil {
		return "", err
	}
	if creds == nil || creds.APIKey == "" {
		return "", ErrNoAPIKey
	}
	return creds.APIKey, nil
}

// LoadDotEnv loads dir/.env into the process environment without overriding
// variables that are already set. A missing file is ignored.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}
