// Package store persists the price history: products and their daily
// observations. One observation per product per calendar day is a hard
// uniqueness constraint; a second write for an occupied slot is a
// defined no-op, never an overwrite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hadiiskaargar/PricePilot/internal/price"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// DateLayout is the canonical calendar-day encoding.
const DateLayout = "2006-01-02"

// Product is one tracked product's identity in the history store.
type Product struct {
	ID   int64
	URL  string
	Name string
}

// Observation is one day's recorded price/availability snapshot.
type Observation struct {
	ProductID    int64
	Day          string
	Price        price.Price
	Availability string
}

// AppendResult reports whether an observation write landed or found the
// slot already occupied.
type AppendResult int

const (
	Inserted AppendResult = iota
	AlreadyPresent
)

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS product (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS pricehistory (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL REFERENCES product(id),
		date TEXT NOT NULL,
		price TEXT,
		availability TEXT,
		UNIQUE(product_id, date)
	);

	CREATE INDEX IF NOT EXISTS idx_pricehistory_product_date
		ON pricehistory(product_id, date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertProduct inserts or updates a product by URL. The display name is
// last-write-wins but an empty name never clobbers a known one.
func (s *Store) UpsertProduct(ctx context.Context, url, name string) (int64, error) {
	query := `
	INSERT INTO product (url, name) VALUES (?, ?)
	ON CONFLICT(url) DO UPDATE SET
		name = CASE WHEN excluded.name = '' THEN product.name ELSE excluded.name END
	`
	if _, err := s.db.ExecContext(ctx, query, url, name); err != nil {
		return 0, fmt.Errorf("upsert product %s: %w", url, err)
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM product WHERE url = ?`, url).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolve product id for %s: %w", url, err)
	}
	return id, nil
}

// FindProductByURL resolves a product id; ok is false when untracked.
func (s *Store) FindProductByURL(ctx context.Context, url string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM product WHERE url = ?`, url).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// AppendObservation records one day's observation. The insert relies on
// the (product_id, date) uniqueness constraint for atomicity: the first
// writer wins, later writers observe AlreadyPresent.
func (s *Store) AppendObservation(ctx context.Context, productID int64, day time.Time, p price.Price, availability string) (AppendResult, error) {
	var priceVal sql.NullString
	if p.Determined {
		priceVal = sql.NullString{String: p.Amount.String(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO pricehistory (product_id, date, price, availability) VALUES (?, ?, ?, ?)`,
		productID, day.Format(DateLayout), priceVal, availability,
	)
	if err != nil {
		return 0, fmt.Errorf("append observation for product %d: %w", productID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return AlreadyPresent, nil
	}
	return Inserted, nil
}

// PreviousObservation returns the most recent observation strictly
// before the given day, or nil when none exists.
func (s *Store) PreviousObservation(ctx context.Context, productID int64, before time.Time) (*Observation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT product_id, date, price, availability
		 FROM pricehistory WHERE product_id = ? AND date < ?
		 ORDER BY date DESC LIMIT 1`,
		productID, before.Format(DateLayout),
	)
	obs, err := scanObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("previous observation for product %d: %w", productID, err)
	}
	return obs, nil
}

// ObservationOn returns the observation stored for a given day, or nil.
func (s *Store) ObservationOn(ctx context.Context, productID int64, day time.Time) (*Observation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT product_id, date, price, availability
		 FROM pricehistory WHERE product_id = ? AND date = ?`,
		productID, day.Format(DateLayout),
	)
	obs, err := scanObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return obs, err
}

// ListProducts returns every product known to the history store.
func (s *Store) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, url, name FROM product ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.URL, &p.Name); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// CountObservations returns the number of history rows for a product.
func (s *Store) CountObservations(ctx context.Context, productID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pricehistory WHERE product_id = ?`, productID).Scan(&n)
	return n, err
}

// DeleteProduct removes a product and all of its observations in one
// transaction, so an observation never survives its owner.
func (s *Store) DeleteProduct(ctx context.Context, productID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete of product %d: %w", productID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pricehistory WHERE product_id = ?`, productID); err != nil {
		return fmt.Errorf("delete history for product %d: %w", productID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM product WHERE id = ?`, productID); err != nil {
		return fmt.Errorf("delete product %d: %w", productID, err)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObservation(row rowScanner) (*Observation, error) {
	var obs Observation
	var priceVal sql.NullString
	var availability sql.NullString
	if err := row.Scan(&obs.ProductID, &obs.Day, &priceVal, &availability); err != nil {
		return nil, err
	}
	if priceVal.Valid {
		d, err := decimal.NewFromString(priceVal.String)
		if err != nil {
			return nil, fmt.Errorf("stored price %q is not a decimal: %w", priceVal.String, err)
		}
		obs.Price = price.FromDecimal(d)
	}
	obs.Availability = availability.String
	return &obs, nil
}
