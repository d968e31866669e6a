package store

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	qderrors "github.com/quotadeck/quotadeck/internal/errors"
	"github.com/quotadeck/quotadeck/internal/logging"
	"github.com/quotadeck/quotadeck/internal/models"
)

// History persists quota snapshots to SQLite with WAL mode so remaining
// fractions can be charted over time.
type History struct {
	db     *sql.DB
	logger *logging.Logger
}

// Snapshot is one persisted fetch outcome.
type Snapshot struct {
	ID         int64               `json:"id"`
	Provider   models.ProviderKind `json:"provider"`
	EntryKey   string              `json:"entry_key"`
	Kind       models.StateKind    `json:"kind"`
	Result     *models.QuotaResult `json:"result,omitempty"`
	Message    string              `json:"message,omitempty"`
	HTTPStatus int                 `json:"http_status,omitempty"`
	RecordedAt time.Time           `json:"recorded_at"`
}

// NewHistory opens (creating if needed) the snapshot database.
func NewHistory(dbPath string, logger *logging.Logger) (*History, error) {
	if logger == nil {
		logger = logging.NewLogger()
	}

	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &qderrors.ErrDatabaseOpen{Path: dbPath, Err: err}
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &qderrors.ErrDatabaseOpen{Path: dbPath, Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &qderrors.ErrDatabaseOpen{Path: dbPath, Err: err}
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS quota_snapshots (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			provider    TEXT NOT NULL,
			entry_key   TEXT NOT NULL,
			kind        TEXT NOT NULL,
			result_json TEXT,
			message     TEXT,
			http_status INTEGER,
			recorded_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_provider_key
			ON quota_snapshots(provider, entry_key, recorded_at);
	`); err != nil {
		db.Close()
		return nil, &qderrors.ErrDatabaseQuery{Operation: "migrate", Err: err}
	}

	return &History{db: db, logger: logger}, nil
}

// Record appends one snapshot. Loading states are not persisted.
func (h *History) Record(provider models.ProviderKind, entryKey string, state models.QuotaState) error {
	if state.Kind == models.StateLoading {
		return nil
	}

	var resultJSON sql.NullString
	if state.Result != nil {
		data, err := json.Marshal(state.Result)
		if err != nil {
			return &qderrors.ErrDatabaseQuery{Operation: "marshal snapshot", Err: err}
		}
		resultJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := h.db.Exec(`
		INSERT INTO quota_snapshots (provider, entry_key, kind, result_json, message, http_status, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		provider.String(), entryKey, string(state.Kind), resultJSON, state.Message, state.HTTPStatus,
		state.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return &qderrors.ErrDatabaseQuery{Operation: "insert snapshot", Err: err}
	}
	return nil
}

// Recent returns the newest snapshots for a provider/key pair, most
// recent first.
func (h *History) Recent(provider models.ProviderKind, entryKey string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.db.Query(`
		SELECT id, provider, entry_key, kind, result_json, message, http_status, recorded_at
		FROM quota_snapshots
		WHERE provider = ? AND entry_key = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`, provider.String(), entryKey, limit)
	if err != nil {
		return nil, &qderrors.ErrDatabaseQuery{Operation: "select snapshots", Err: err}
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			snap       Snapshot
			provider   string
			kind       string
			resultJSON sql.NullString
			recordedAt string
		)
		if err := rows.Scan(&snap.ID, &provider, &snap.EntryKey, &kind, &resultJSON, &snap.Message, &snap.HTTPStatus, &recordedAt); err != nil {
			return nil, &qderrors.ErrDatabaseQuery{Operation: "scan snapshot", Err: err}
		}
		snap.Provider = models.ProviderKind(provider)
		snap.Kind = models.StateKind(kind)
		if resultJSON.Valid {
			var result models.QuotaResult
			if err := json.Unmarshal([]byte(resultJSON.String), &result); err == nil {
				snap.Result = &result
			}
		}
		if parsed, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
			snap.RecordedAt = parsed
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Prune deletes snapshots older than the retention window.
func (h *History) Prune(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339Nano)
	res, err := h.db.Exec(`DELETE FROM quota_snapshots WHERE recorded_at < ?`, cutoff)
	if err != nil {
		return 0, &qderrors.ErrDatabaseQuery{Operation: "prune snapshots", Err: err}
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

// Close closes the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}
