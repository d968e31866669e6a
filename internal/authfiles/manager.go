package authfiles

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/quotadeck/quotadeck/internal/logging"
	"github.com/quotadeck/quotadeck/internal/models"
)

// Manager keeps an in-memory registry of discovered auth entries and
// rescans when the directory changes. It also serves as the dispatcher's
// token source.
type Manager struct {
	mu        sync.RWMutex
	authsPath string
	interval  time.Duration
	logger    *logging.Logger
	entries   []models.AuthEntry
	lastScan  time.Time
	onChange  func()
}

// NewManager creates a manager for the given auth directory. A zero
// interval disables periodic rescans.
func NewManager(authsPath string, interval time.Duration, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Manager{
		authsPath: authsPath,
		interval:  interval,
		logger:    logger,
	}
}

// OnChange registers a callback fired after any rescan that changed the
// entry set. The orchestrator uses it to drop stale cached quota.
func (m *Manager) OnChange(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Entries returns a copy of the current registry sorted by key.
func (m *Manager) Entries() []models.AuthEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.AuthEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// LastScan returns the time of the most recent scan.
func (m *Manager) LastScan() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastScan
}

// AuthPath returns the directory being watched.
func (m *Manager) AuthPath() string {
	return m.authsPath
}

// Scan rescans the auth directory and replaces the registry. Returns true
// when the entry set changed.
func (m *Manager) Scan() (bool, error) {
	auths, err := Discover(m.authsPath)
	if err != nil {
		return false, err
	}

	entries := make([]models.AuthEntry, 0, len(auths))
	for _, auth := range auths {
		entries = append(entries, ToEntry(auth))
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key() < entries[j].Key()
	})

	m.mu.Lock()
	changed := !equalEntries(m.entries, entries)
	m.entries = entries
	m.lastScan = time.Now()
	onChange := m.onChange
	m.mu.Unlock()

	if changed {
		m.logger.Info("auth registry updated", "entries", len(entries))
		if onChange != nil {
			onChange()
		}
	}
	return changed, nil
}

// AccessToken resolves an auth index (the file path) to its bearer token.
// The file is re-read on every call so refreshed tokens are picked up
// without a rescan.
func (m *Manager) AccessToken(_ context.Context, authIndex string) (string, error) {
	data, err := os.ReadFile(authIndex)
	if err != nil {
		return "", fmt.Errorf("read auth file: %w", err)
	}
	var auth AuthFile
	if err := json.Unmarshal(data, &auth); err != nil {
		return "", fmt.Errorf("parse auth file: %w", err)
	}
	if auth.AccessToken == "" && auth.Token.AccessToken != "" {
		auth.AccessToken = auth.Token.AccessToken
	}
	if auth.AccessToken == "" {
		return "", fmt.Errorf("auth file %s has no access token", authIndex)
	}
	return auth.AccessToken, nil
}

// DownloadText returns the raw text of a named auth file. Adapters use it
// to sniff fields discovery does not surface.
func (m *Manager) DownloadText(_ context.Context, name string) (string, error) {
	for _, entry := range m.Entries() {
		if entry.Name == name {
			data, err := os.ReadFile(entry.AuthIndex)
			if err != nil {
				return "", err
			}
			return string(data), nil
		}
	}
	return "", fmt.Errorf("auth file not found: %s", name)
}

// Watch starts the fsnotify watcher plus the periodic rescan ticker. Both
// stop when the context is cancelled.
func (m *Manager) Watch(ctx context.Context) error {
	if _, err := m.Scan(); err != nil {
		return err
	}
	if m.authsPath == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(m.authsPath); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
					_, _ = m.Scan()
				}
			case <-watcher.Errors:
				// Periodic rescans cover missed events.
			}
		}
	}()

	if m.interval > 0 {
		go func() {
			ticker := time.NewTicker(m.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					_, _ = m.Scan()
				}
			}
		}()
	}

	return nil
}

func equalEntries(a, b []models.AuthEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
