package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hadiiskaargar/PricePilot/internal/extract"
	"github.com/hadiiskaargar/PricePilot/internal/price"
	"github.com/hadiiskaargar/PricePilot/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	history, err := store.Open(filepath.Join(dir, "prices.db"))
	require.NoError(t, err)
	t.Cleanup(func() { history.Close() })

	reg, err := Open(filepath.Join(dir, "tracker.db"), history)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return reg, history
}

func TestAddAndList(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	id, err := reg.Add(ctx, "https://amazon.example/p1", extract.SiteAmazon)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	// Adding the same URL again returns the same id.
	again, err := reg.Add(ctx, "https://amazon.example/p1", extract.SiteAmazon)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	_, err = reg.Add(ctx, "https://ebay.example/p2", extract.SiteEbay)
	require.NoError(t, err)

	targets, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Len(t, targets, 2)
}

func TestDeleteCascadesIntoHistory(t *testing.T) {
	reg, history := newTestRegistry(t)
	ctx := context.Background()

	url := "https://amazon.example/p1"
	id, err := reg.Add(ctx, url, extract.SiteAmazon)
	require.NoError(t, err)

	productID, err := history.UpsertProduct(ctx, url, "Widget")
	require.NoError(t, err)
	day, _ := time.Parse(store.DateLayout, "2026-08-29")
	_, err = history.AppendObservation(ctx, productID, day, price.Normalize("$50"), "in_stock")
	require.NoError(t, err)

	require.NoError(t, reg.Delete(ctx, id))

	targets, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, targets)

	products, err := history.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)

	n, err := history.CountObservations(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDeleteUnknownTarget(t *testing.T) {
	reg, _ := newTestRegistry(t)
	err := reg.Delete(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmailAlertsToggle(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	// Default is enabled.
	enabled, err := reg.EmailAlertsEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, reg.SetEmailAlertsEnabled(ctx, false))
	enabled, err = reg.EmailAlertsEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, reg.SetEmailAlertsEnabled(ctx, true))
	enabled, err = reg.EmailAlertsEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestURLSet(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Add(ctx, "https://amazon.example/a", extract.SiteAmazon)
	require.NoError(t, err)
	_, err = reg.Add(ctx, "https://etsy.example/b", extract.SiteEtsy)
	require.NoError(t, err)

	set, err := reg.URLSet(ctx)
	require.NoError(t, err)
	assert.Len(t, set, 2)
	_, ok := set["https://amazon.example/a"]
	assert.True(t, ok)
}

func TestListMalformedCreatedAt(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.db.ExecContext(ctx,
		`INSERT INTO products (url, source, created_at) VALUES (?, ?, ?)`,
		"https://amazon.example/a", "amazon", "not-a-timestamp")
	require.NoError(t, err)

	// A corrupt timestamp does not fail the listing; the target stays
	// visible with a zero creation time.
	targets, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "https://amazon.example/a", targets[0].URL)
	assert.True(t, targets[0].CreatedAt.IsZero())
}
