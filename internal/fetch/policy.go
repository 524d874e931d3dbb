package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/hadiiskaargar/PricePilot/internal/browser"
	"github.com/hadiiskaargar/PricePilot/internal/extract"
	"github.com/hadiiskaargar/PricePilot/logger"
	apperrors "github.com/hadiiskaargar/PricePilot/pkg/errors"
	"github.com/hadiiskaargar/PricePilot/services/cache"
)

// Outcome is the terminal state of one fetch state machine run.
type Outcome string

const (
	Succeeded       Outcome = "succeeded"
	ChallengeGiveUp Outcome = "challenge_give_up"
	TimeoutGiveUp   Outcome = "timeout_give_up"
	ErrorGiveUp     Outcome = "error_give_up"
)

// Label returns the human-readable sentinel tag for a give-up outcome.
func (o Outcome) Label() string {
	switch o {
	case ChallengeGiveUp:
		return "Bot Protection Detected"
	case TimeoutGiveUp:
		return "Timeout"
	case ErrorGiveUp:
		return "Error"
	default:
		return ""
	}
}

// Result is the resolved outcome for one target. Fields are only
// meaningful when Outcome is Succeeded; a give-up result is still
// recorded downstream as an observation with an undetermined price.
type Result struct {
	Outcome  Outcome
	Fields   extract.Fields
	Attempts int
}

// GaveUp reports whether the run exhausted its attempts.
func (r Result) GaveUp() bool {
	return r.Outcome != Succeeded
}

// Policy drives repeated fetch+extract attempts for a single target.
// Challenge pages, timeouts and transient fetch errors are retried
// identically (cool-down, identity rotation) but tagged distinctly on
// give-up; failures outside the retryable taxonomy end the run at once.
type Policy struct {
	renderer    browser.Renderer
	extractor   *extract.Extractor
	identities  *browser.IdentityPool
	cache       cache.CacheService
	maxAttempts int
	coolDown    time.Duration
	blockTTL    time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	log         *logger.Logger
}

// Options configures a Policy.
type Options struct {
	MaxAttempts int
	CoolDown    time.Duration
	// BlockTTL is how long a challenge give-up suppresses further
	// renderer traffic to the same target. Zero disables blocking.
	BlockTTL time.Duration
	// Cache backs challenge blocks; nil disables blocking.
	Cache cache.CacheService
}

// NewPolicy creates a fetch policy over a renderer and extractor.
func NewPolicy(renderer browser.Renderer, extractor *extract.Extractor, identities *browser.IdentityPool, opts Options) *Policy {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.CoolDown == 0 {
		opts.CoolDown = 10 * time.Second
	}
	return &Policy{
		renderer:    renderer,
		extractor:   extractor,
		identities:  identities,
		cache:       opts.Cache,
		maxAttempts: opts.MaxAttempts,
		coolDown:    opts.CoolDown,
		blockTTL:    opts.BlockTTL,
		sleep:       sleepCtx,
		log:         logger.ForComponent("fetch"),
	}
}

// Fetch runs the state machine for one target URL. Retries are strictly
// sequential; each waits the full cool-down before re-entering.
func (p *Policy) Fetch(ctx context.Context, url string, site extract.Site) Result {
	if p.blocked(url) {
		p.log.Debug().Str("url", url).Msg("target is challenge-blocked, skipping renderer")
		return Result{Outcome: ChallengeGiveUp}
	}

	var last Outcome
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		ident := p.identities.Next()
		fields, err := p.attempt(ctx, url, site, ident)
		if err == nil {
			return Result{Outcome: Succeeded, Fields: fields, Attempts: attempt}
		}
		last = outcomeFor(err)

		if !retryable(err) {
			p.log.Warn().Err(err).Str("url", url).Msg("failure is not retryable, giving up")
			return Result{Outcome: last, Attempts: attempt}
		}

		if attempt < p.maxAttempts {
			p.log.Debug().
				Str("url", url).
				Str("outcome", string(last)).
				Int("attempt", attempt).
				Dur("cool_down", p.coolDown).
				Msg("attempt failed, cooling down before retry")
			if err := p.sleep(ctx, p.coolDown); err != nil {
				// Cancelled mid cool-down: report with the tag of the
				// failure that put us here.
				return Result{Outcome: last, Attempts: attempt}
			}
		}
	}

	if last == ChallengeGiveUp {
		p.block(url)
	}
	return Result{Outcome: last, Attempts: p.maxAttempts}
}

func (p *Policy) attempt(ctx context.Context, url string, site extract.Site, ident browser.Identity) (extract.Fields, error) {
	pg, err := p.renderer.Render(ctx, url, ident)
	if err != nil {
		p.log.Warn().Err(err).Str("url", url).Msg("fetch attempt failed")
		return extract.Fields{}, err
	}

	res := p.extractor.Extract(pg, site)
	if res.Challenge {
		err := apperrors.NewChallenge(url)
		p.log.Warn().Err(err).Str("url", url).Msg("challenge page detected")
		return extract.Fields{}, err
	}
	return res.Fields, nil
}

// outcomeFor maps a typed attempt failure onto its give-up tag.
func outcomeFor(err error) Outcome {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeChallenge:
		return ChallengeGiveUp
	case apperrors.ErrorTypeTimeout:
		return TimeoutGiveUp
	default:
		return ErrorGiveUp
	}
}

// retryable reports whether another attempt may succeed. Untyped errors
// are treated as terminal.
func retryable(err error) bool {
	var me *apperrors.MonitorError
	return errors.As(err, &me) && me.IsRetryable()
}

func (p *Policy) blocked(url string) bool {
	if p.cache == nil || p.blockTTL <= 0 {
		return false
	}
	_, err := p.cache.Get(blockKey(url))
	return err == nil
}

func (p *Policy) block(url string) {
	if p.cache == nil || p.blockTTL <= 0 {
		return
	}
	if err := p.cache.Set(blockKey(url), []byte("1"), p.blockTTL); err != nil {
		p.log.Warn().Err(err).Str("url", url).Msg("failed to set challenge block")
	}
}

func blockKey(url string) string {
	return "challenge_block:" + url
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
