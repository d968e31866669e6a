// Package authfiles discovers CLIProxy-style credential files on disk and
// exposes them as auth entries plus a token source for the dispatcher.
package authfiles

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/quotadeck/quotadeck/internal/models"
)

// AuthFile is one credential record as stored on disk. OAuth material may
// live flat or nested under "token"; discovery flattens it.
type AuthFile struct {
	AccessToken  string `json:"access_token"`
	Email        string `json:"email"`
	Type         string `json:"type"` // antigravity, codex, gemini, github-copilot
	SessionToken string `json:"session_token,omitempty"`
	AccountID    string `json:"account_id,omitempty"`
	ProjectID    string `json:"project_id,omitempty"`
	PlanType     string `json:"plan_type,omitempty"`
	Expired      string `json:"expired,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Timestamp    int64  `json:"timestamp"`
	Path         string `json:"-"`
	Token        struct {
		AccessToken  string `json:"access_token,omitempty"`
		RefreshToken string `json:"refresh_token,omitempty"`
		ExpiresIn    int64  `json:"expires_in,omitempty"`
		TokenType    string `json:"token_type,omitempty"`
	} `json:"token,omitempty"`
}

// DefaultAuthPaths returns the directories scanned when no path is
// configured, in preference order.
func DefaultAuthPaths() []string {
	return []string{
		"/opt/cliproxy/auths",
		os.Getenv("HOME") + "/.config/cliproxy/auths",
		os.Getenv("HOME") + "/Library/Application Support/cliproxy/auths",
		os.Getenv("APPDATA") + "\\cliproxy\\auths",
	}
}

// ResolveAuthPath resolves the auth directory from the preferred path, the
// environment, or the first default that exists.
func ResolveAuthPath(preferred string) string {
	if preferred != "" {
		return preferred
	}
	if envPath := os.Getenv("QUOTADECK_AUTH_PATH"); envPath != "" {
		return envPath
	}
	for _, path := range DefaultAuthPaths() {
		if path == "" {
			continue
		}
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path
		}
	}
	paths := DefaultAuthPaths()
	if len(paths) > 0 {
		return paths[0]
	}
	return ""
}

// Discover scans a directory for auth files with a supported type tag.
// Missing or unreadable directories yield an empty slice, not an error.
func Discover(authsPath string) ([]AuthFile, error) {
	var auths []AuthFile

	entries, err := os.ReadDir(authsPath)
	if err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) {
			return []AuthFile{}, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(authsPath, entry.Name()))
		if err != nil {
			continue
		}

		var auth AuthFile
		if json.Unmarshal(data, &auth) != nil {
			continue
		}
		if auth.Type == "" {
			continue
		}
		if _, ok := models.ParseProvider(auth.Type); !ok {
			continue
		}

		if auth.AccessToken == "" && auth.Token.AccessToken != "" {
			auth.AccessToken = auth.Token.AccessToken
		}
		if auth.RefreshToken == "" && auth.Token.RefreshToken != "" {
			auth.RefreshToken = auth.Token.RefreshToken
		}
		if auth.ExpiresIn == 0 && auth.Token.ExpiresIn > 0 {
			auth.ExpiresIn = auth.Token.ExpiresIn
		}

		auth.Path = filepath.Join(authsPath, entry.Name())
		auths = append(auths, auth)
	}

	return auths, nil
}

// ToEntry converts a discovered auth file into the entry shape the quota
// core consumes. The file path doubles as the auth index.
func ToEntry(auth AuthFile) models.AuthEntry {
	return models.AuthEntry{
		Name:      filepath.Base(auth.Path),
		AuthIndex: auth.Path,
		Kind:      strings.ToLower(strings.TrimSpace(auth.Type)),
		Email:     auth.Email,
		AccountID: auth.AccountID,
		ProjectID: auth.ProjectID,
		PlanType:  auth.PlanType,
	}
}
