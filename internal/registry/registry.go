// Package registry holds the tracked-target list and global settings.
// It is deliberately a separate database from the price history; the two
// are kept consistent by the delete cascade here and by the orphan
// reconciler as the authoritative backstop.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hadiiskaargar/PricePilot/internal/extract"
	"github.com/hadiiskaargar/PricePilot/internal/store"
	"github.com/hadiiskaargar/PricePilot/logger"
	apperrors "github.com/hadiiskaargar/PricePilot/pkg/errors"

	_ "modernc.org/sqlite"
)

// Target is one tracked product URL.
type Target struct {
	ID        int64
	URL       string
	Source    extract.Site
	CreatedAt time.Time
}

// ErrNotFound is returned when a target id does not exist.
var ErrNotFound = errors.New("target not found")

const emailAlertsKey = "email_alerts"

// Registry wraps the tracker database. The optional history reference
// powers the immediate delete cascade.
type Registry struct {
	db      *sql.DB
	history *store.Store
	log     *logger.Logger
}

// Open opens (creating if needed) the tracker database at path. history
// may be nil, in which case deletes skip the immediate cascade and rely
// on the next reconciliation.
func Open(path string, history *store.Store) (*Registry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	r := &Registry{db: db, history: history, log: logger.ForComponent("registry")}
	if err := r.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init registry schema: %w", err)
	}
	return r, nil
}

// Close closes the underlying database.
func (r *Registry) Close() error {
	return r.db.Close()
}

func (r *Registry) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return err
	}
	// Email alerts default on.
	_, err := r.db.Exec(`INSERT OR IGNORE INTO settings (key, value) VALUES (?, '1')`, emailAlertsKey)
	return err
}

// Add registers a URL for tracking. Adding an already-tracked URL is
// idempotent and returns the existing id.
func (r *Registry) Add(ctx context.Context, url string, source extract.Site) (int64, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO products (url, source, created_at) VALUES (?, ?, ?)`,
		url, string(source), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, apperrors.NewRegistry("add target", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM products WHERE url = ?`, url).Scan(&id); err != nil {
		return 0, apperrors.NewRegistry("resolve target id", err)
	}
	return id, nil
}

// List returns every tracked target, newest first.
func (r *Registry) List(ctx context.Context) ([]Target, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, url, source, created_at FROM products ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, apperrors.NewRegistry("list targets", err)
	}
	defer rows.Close()

	var targets []Target
	for rows.Next() {
		var t Target
		var source, createdAt string
		if err := rows.Scan(&t.ID, &t.URL, &source, &createdAt); err != nil {
			return nil, apperrors.NewRegistry("scan target", err)
		}
		t.Source = extract.Site(source)
		t.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			r.log.Warn().Err(err).Str("url", t.URL).Str("created_at", createdAt).Msg("malformed created_at, using zero time")
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewRegistry("list targets", err)
	}
	return targets, nil
}

// Delete removes a target and immediately cascades into the history
// store. A cascade failure does not fail the delete; reconciliation
// remains the consistency backstop.
func (r *Registry) Delete(ctx context.Context, id int64) error {
	var url string
	err := r.db.QueryRowContext(ctx, `SELECT url FROM products WHERE id = ?`, id).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return apperrors.NewRegistry("resolve target url", err)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id); err != nil {
		return apperrors.NewRegistry("delete target", err)
	}

	r.cascade(ctx, url)
	return nil
}

func (r *Registry) cascade(ctx context.Context, url string) {
	if r.history == nil {
		return
	}
	productID, ok, err := r.history.FindProductByURL(ctx, url)
	if err != nil {
		r.log.Warn().Err(err).Str("url", url).Msg("cascade lookup failed, left for reconciliation")
		return
	}
	if !ok {
		return
	}
	if err := r.history.DeleteProduct(ctx, productID); err != nil {
		r.log.Warn().Err(err).Str("url", url).Msg("cascade delete failed, left for reconciliation")
		return
	}
	r.log.Info().Str("url", url).Int64("product_id", productID).Msg("history removed with tracked target")
}

// EmailAlertsEnabled reads the global alert toggle. Missing rows read as
// enabled, matching the schema default.
func (r *Registry) EmailAlertsEnabled(ctx context.Context) (bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, emailAlertsKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, apperrors.NewRegistry("read email alerts setting", err)
	}
	return value == "1", nil
}

// SetEmailAlertsEnabled writes the global alert toggle.
func (r *Registry) SetEmailAlertsEnabled(ctx context.Context, enabled bool) error {
	value := "0"
	if enabled {
		value = "1"
	}
	_, err := r.db.ExecContext(ctx,
		`REPLACE INTO settings (key, value) VALUES (?, ?)`, emailAlertsKey, value)
	if err != nil {
		return apperrors.NewRegistry("write email alerts setting", err)
	}
	return nil
}

// URLSet returns the tracked URLs as a set, for reconciliation.
func (r *Registry) URLSet(ctx context.Context) (map[string]struct{}, error) {
	targets, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		set[t.URL] = struct{}{}
	}
	return set, nil
}
