package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/hadiiskaargar/PricePilot/internal/browser"
	"github.com/hadiiskaargar/PricePilot/internal/extract"
	"github.com/hadiiskaargar/PricePilot/internal/page"
	apperrors "github.com/hadiiskaargar/PricePilot/pkg/errors"
	"github.com/hadiiskaargar/PricePilot/services/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRenderer serves one canned response per attempt.
type scriptedRenderer struct {
	responses []renderResponse
	calls     int
	agents    []string
}

type renderResponse struct {
	html string
	err  error
}

func (r *scriptedRenderer) Render(_ context.Context, url string, ident browser.Identity) (page.Page, error) {
	idx := r.calls
	if idx >= len(r.responses) {
		idx = len(r.responses) - 1
	}
	r.calls++
	r.agents = append(r.agents, ident.UserAgent)

	resp := r.responses[idx]
	if resp.err != nil {
		return nil, resp.err
	}
	p, err := page.ParseString(resp.html)
	if err != nil {
		panic(err)
	}
	return p, nil
}

const challengeHTML = `<html><body>Checking your browser before accessing.</body></html>`

const productHTML = `<html><body>
	<span id="productTitle">Desk Lamp</span>
	<span class="a-price"><span class="a-offscreen">$34.99</span></span>
	<div id="availability"><span>In Stock</span></div>
</body></html>`

func newTestPolicy(r browser.Renderer, opts Options) (*Policy, *int) {
	p := NewPolicy(r, extract.New(), browser.NewIdentityPool(nil), opts)
	waits := 0
	p.sleep = func(context.Context, time.Duration) error {
		waits++
		return nil
	}
	return p, &waits
}

func TestFetchSucceedsFirstAttempt(t *testing.T) {
	r := &scriptedRenderer{responses: []renderResponse{{html: productHTML}}}
	p, waits := newTestPolicy(r, Options{MaxAttempts: 3})

	res := p.Fetch(context.Background(), "https://amazon.example/item", extract.SiteAmazon)
	require.Equal(t, Succeeded, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 0, *waits)
	assert.Equal(t, "Desk Lamp", res.Fields.Title)
	assert.Equal(t, "34.99", res.Fields.Price.Amount.String())
}

func TestFetchChallengeExhaustsAttempts(t *testing.T) {
	r := &scriptedRenderer{responses: []renderResponse{{html: challengeHTML}}}
	p, waits := newTestPolicy(r, Options{MaxAttempts: 3})

	res := p.Fetch(context.Background(), "https://amazon.example/item", extract.SiteAmazon)
	assert.Equal(t, ChallengeGiveUp, res.Outcome)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, r.calls)
	// Two cool-downs between three attempts.
	assert.Equal(t, 2, *waits)
	assert.True(t, res.GaveUp())
	assert.Equal(t, "Bot Protection Detected", res.Outcome.Label())
}

func TestFetchRotatesIdentityBetweenAttempts(t *testing.T) {
	r := &scriptedRenderer{responses: []renderResponse{
		{html: challengeHTML},
		{html: challengeHTML},
		{html: productHTML},
	}}
	p, _ := newTestPolicy(r, Options{MaxAttempts: 3})

	res := p.Fetch(context.Background(), "https://amazon.example/item", extract.SiteAmazon)
	require.Equal(t, Succeeded, res.Outcome)
	assert.Equal(t, 3, res.Attempts)
	require.Len(t, r.agents, 3)
	assert.NotEqual(t, r.agents[0], r.agents[1])
}

func TestFetchTimeoutTagged(t *testing.T) {
	r := &scriptedRenderer{responses: []renderResponse{
		{err: apperrors.NewTimeout("https://ebay.example/item", context.DeadlineExceeded)},
	}}
	p, _ := newTestPolicy(r, Options{MaxAttempts: 2})

	res := p.Fetch(context.Background(), "https://ebay.example/item", extract.SiteEbay)
	assert.Equal(t, TimeoutGiveUp, res.Outcome)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, "Timeout", res.Outcome.Label())
}

func TestFetchGenericErrorTagged(t *testing.T) {
	r := &scriptedRenderer{responses: []renderResponse{
		{err: apperrors.NewFetch("https://etsy.example/item", "navigation failed", assert.AnError)},
	}}
	p, _ := newTestPolicy(r, Options{MaxAttempts: 1})

	res := p.Fetch(context.Background(), "https://etsy.example/item", extract.SiteEtsy)
	assert.Equal(t, ErrorGiveUp, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, r.calls)
}

func TestFetchNonRetryableErrorStopsImmediately(t *testing.T) {
	// An untyped renderer failure is terminal; later attempts that
	// would have succeeded must never run.
	r := &scriptedRenderer{responses: []renderResponse{
		{err: assert.AnError},
		{html: productHTML},
	}}
	p, waits := newTestPolicy(r, Options{MaxAttempts: 3})

	res := p.Fetch(context.Background(), "https://amazon.example/item", extract.SiteAmazon)
	assert.Equal(t, ErrorGiveUp, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, 0, *waits)
}

func TestFetchRecoversAfterTransientError(t *testing.T) {
	r := &scriptedRenderer{responses: []renderResponse{
		{err: apperrors.NewFetch("u", "boom", assert.AnError)},
		{html: productHTML},
	}}
	p, waits := newTestPolicy(r, Options{MaxAttempts: 3})

	res := p.Fetch(context.Background(), "https://amazon.example/item", extract.SiteAmazon)
	require.Equal(t, Succeeded, res.Outcome)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 1, *waits)
}

func TestFetchChallengeBlockSetAndHonored(t *testing.T) {
	c := cache.NewMemoryService()
	r := &scriptedRenderer{responses: []renderResponse{{html: challengeHTML}}}
	p, _ := newTestPolicy(r, Options{MaxAttempts: 2, Cache: c, BlockTTL: time.Minute})

	url := "https://amazon.example/item"
	res := p.Fetch(context.Background(), url, extract.SiteAmazon)
	assert.Equal(t, ChallengeGiveUp, res.Outcome)
	assert.Equal(t, 2, r.calls)

	// Second run while the block is live never touches the renderer.
	res = p.Fetch(context.Background(), url, extract.SiteAmazon)
	assert.Equal(t, ChallengeGiveUp, res.Outcome)
	assert.Equal(t, 2, r.calls)
}

func TestFetchCancelledDuringCoolDown(t *testing.T) {
	r := &scriptedRenderer{responses: []renderResponse{{html: challengeHTML}}}
	p := NewPolicy(r, extract.New(), browser.NewIdentityPool(nil), Options{MaxAttempts: 3})
	p.sleep = func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}

	res := p.Fetch(context.Background(), "https://amazon.example/item", extract.SiteAmazon)
	assert.Equal(t, ChallengeGiveUp, res.Outcome)
	assert.Equal(t, 1, r.calls)
}
