package authfiles

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAuthFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeAuthFile(t, dir, "codex.json",
		`{"type":"codex","email":"dev@example.com","access_token":"tok1","account_id":"acct-1"}`)
	writeAuthFile(t, dir, "gemini.json",
		`{"type":"gemini","email":"dev@example.com","project_id":"proj-1","token":{"access_token":"tok2"}}`)
	writeAuthFile(t, dir, "unsupported.json",
		`{"type":"mystery","email":"dev@example.com","access_token":"tok3"}`)
	writeAuthFile(t, dir, "broken.json", `{not json`)
	writeAuthFile(t, dir, "notes.txt", `ignored`)

	auths, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, auths, 2)

	byType := map[string]AuthFile{}
	for _, a := range auths {
		byType[a.Type] = a
	}

	codex := byType["codex"]
	assert.Equal(t, "tok1", codex.AccessToken)
	assert.Equal(t, "acct-1", codex.AccountID)

	gemini := byType["gemini"]
	assert.Equal(t, "tok2", gemini.AccessToken, "nested token should be flattened")
	assert.Equal(t, "proj-1", gemini.ProjectID)
}

func TestDiscoverMissingDirectory(t *testing.T) {
	auths, err := Discover(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, auths)
}

func TestToEntry(t *testing.T) {
	entry := ToEntry(AuthFile{
		Type:      "Gemini",
		Email:     "dev@example.com",
		ProjectID: "proj-1",
		Path:      "/auths/gemini.json",
	})

	assert.Equal(t, "gemini.json", entry.Name)
	assert.Equal(t, "/auths/gemini.json", entry.AuthIndex)
	assert.Equal(t, "gemini", entry.Kind)
	assert.Equal(t, "proj-1", entry.ProjectID)
}

func TestManagerScanAndTokenSource(t *testing.T) {
	dir := t.TempDir()
	path := writeAuthFile(t, dir, "codex.json",
		`{"type":"codex","email":"dev@example.com","access_token":"tok1"}`)

	mgr := NewManager(dir, 0, nil)
	changed, err := mgr.Scan()
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, mgr.Entries(), 1)

	token, err := mgr.AccessToken(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "tok1", token)

	// a second scan with no changes should not fire onChange
	fired := false
	mgr.OnChange(func() { fired = true })
	changed, err = mgr.Scan()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, fired)

	// refreshed token is visible without a rescan
	writeAuthFile(t, dir, "codex.json",
		`{"type":"codex","email":"dev@example.com","access_token":"tok2"}`)
	token, err = mgr.AccessToken(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "tok2", token)
}

func TestManagerOnChangeFiresOnNewEntry(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(dir, 0, nil)
	_, err := mgr.Scan()
	require.NoError(t, err)

	fired := false
	mgr.OnChange(func() { fired = true })

	writeAuthFile(t, dir, "gemini.json",
		`{"type":"gemini","email":"dev@example.com","access_token":"tok"}`)
	changed, err := mgr.Scan()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, fired)
}

func TestManagerDownloadText(t *testing.T) {
	dir := t.TempDir()
	writeAuthFile(t, dir, "gemini.json",
		`{"type":"gemini","email":"dev@example.com","access_token":"tok","project_id":"p9"}`)

	mgr := NewManager(dir, 0, nil)
	_, err := mgr.Scan()
	require.NoError(t, err)

	text, err := mgr.DownloadText(context.Background(), "gemini.json")
	require.NoError(t, err)
	assert.Contains(t, text, "p9")

	_, err = mgr.DownloadText(context.Background(), "missing.json")
	assert.Error(t, err)
}

func TestManagerWatchPicksUpCreate(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(dir, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, mgr.Watch(ctx))
	assert.Empty(t, mgr.Entries())

	writeAuthFile(t, dir, "codex.json",
		`{"type":"codex","email":"dev@example.com","access_token":"tok"}`)

	require.Eventually(t, func() bool {
		return len(mgr.Entries()) == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestResolveAuthPathPrefersExplicit(t *testing.T) {
	assert.Equal(t, "/custom/auths", ResolveAuthPath("/custom/auths"))

	t.Setenv("QUOTADECK_AUTH_PATH", "/env/auths")
	assert.Equal(t, "/env/auths", ResolveAuthPath(""))
}
