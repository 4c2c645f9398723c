package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const credentialsFileName = "credentials.json"

// Credentials is the saved login, credentials.json in the settings directory.
type Credentials struct {
	APIKey  string    `json:"apiKey"`
	SavedAt time.Time `json:"savedAt"`
}

// CredentialsPath returns the credentials file inside dir.
func CredentialsPath(dir string) string {
	return filepath.Join(dir, credentialsFileName)
}

// LoadCredentials reads the saved credentials. A missing or unreadable file
// yields nil without an error.
func LoadCredentials(dir string) (*Credentials, error) {
	data, err := os.ReadFile(CredentialsPath(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil || c.APIKey == "" {
		return nil, nil //nolint:nilerr // a corrupt file is the same as no login
	}
	return &c, nil
}

// SaveCredentials stores apiKey in dir with owner-only permissions.
func SaveCredentials(dir, apiKey string, now time.Time) error {
	if apiKey == "" {
		return ErrNoAPIKey
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	data, err := json.MarshalIndent(Credentials{APIKey: apiKey, SavedAt: now.UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := os.WriteFile(CredentialsPath(dir), data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// ClearCredentials removes the saved login. Removing a missing file is not an error.
func ClearCredentials(dir string) error {
	if err := os.Remove(CredentialsPath(dir)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}
