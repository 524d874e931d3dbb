package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hadiiskaargar/PricePilot/internal/page"
	"github.com/hadiiskaargar/PricePilot/logger"
	apperrors "github.com/hadiiskaargar/PricePilot/pkg/errors"

	"golang.org/x/net/html/charset"
)

// Renderer renders a product URL into a queryable page under a given
// client identity. Failures are typed: timeout vs navigation error.
type Renderer interface {
	Render(ctx context.Context, pageURL string, ident Identity) (page.Page, error)
}

// FunctionRenderer drives a browserless-style HTTP function endpoint and
// falls back to a plain HTTP fetch when no endpoint is configured or the
// endpoint call fails.
type FunctionRenderer struct {
	chromeAddr string
	timeout    time.Duration
	log        *logger.Logger
}

// NewFunctionRenderer creates a renderer. chromeAddr may be empty, in
// which case every render is a plain HTTP fetch.
func NewFunctionRenderer(chromeAddr string, timeout time.Duration) *FunctionRenderer {
	return &FunctionRenderer{
		chromeAddr: chromeAddr,
		timeout:    timeout,
		log:        logger.ForComponent("renderer"),
	}
}

// Render fetches and parses the page under the given identity.
func (r *FunctionRenderer) Render(ctx context.Context, pageURL string, ident Identity) (page.Page, error) {
	html, err := r.fetch(ctx, pageURL, ident)
	if err != nil {
		return nil, err
	}
	p, err := page.Parse(html)
	if err != nil {
		return nil, apperrors.NewFetch(pageURL, "parse rendered page", err)
	}
	return p, nil
}

func (r *FunctionRenderer) fetch(ctx context.Context, pageURL string, ident Identity) (io.Reader, error) {
	if r.chromeAddr != "" {
		body, err := r.fetchWithFunction(ctx, pageURL, ident)
		if err == nil {
			return body, nil
		}
		r.log.Warn().Err(err).Str("url", pageURL).Msg("function endpoint render failed, falling back to direct fetch")
	}
	return r.fetchDirect(ctx, pageURL, ident)
}

// renderScript navigates, applies the identity and waits briefly for
// dynamic content before returning the DOM.
const renderScript = `module.exports = async ({ page, context }) => {
	await page.setViewport({ width: context.width, height: context.height });
	await page.setUserAgent(context.userAgent);
	await page.setExtraHTTPHeaders({ 'Accept-Language': context.locale });
	await page.goto(context.url, { timeout: context.timeoutMs, waitUntil: 'domcontentloaded' });
	await new Promise(res => setTimeout(res, 2000));
	return await page.content();
}`

func (r *FunctionRenderer) fetchWithFunction(ctx context.Context, pageURL string, ident Identity) (io.Reader, error) {
	payload := map[string]interface{}{
		"code": renderScript,
		"context": map[string]interface{}{
			"url":       pageURL,
			"userAgent": ident.UserAgent,
			"locale":    ident.Locale,
			"width":     ident.ViewportW,
			"height":    ident.ViewportH,
			"timeoutMs": r.timeout.Milliseconds(),
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewFetch(pageURL, "marshal render payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.chromeAddr+"/function", bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewFetch(pageURL, "create render request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client(ident).Do(req)
	if err != nil {
		return nil, classify(pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewFetch(pageURL, fmt.Sprintf("function endpoint status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewFetch(pageURL, "read rendered body", err)
	}
	return bytes.NewReader(body), nil
}

func (r *FunctionRenderer) fetchDirect(ctx context.Context, pageURL string, ident Identity) (io.Reader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, apperrors.NewFetch(pageURL, "create request", err)
	}

	req.Header.Set("User-Agent", ident.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", ident.Locale)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")

	resp, err := r.client(ident).Do(req)
	if err != nil {
		return nil, classify(pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewFetch(pageURL, fmt.Sprintf("unexpected status code %d", resp.StatusCode), nil)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewFetch(pageURL, "read response body", err)
	}

	// Normalize the body to UTF-8 before parsing.
	encoding, name, _ := charset.DetermineEncoding(bodyBytes, resp.Header.Get("Content-Type"))
	if name == "utf-8" || name == "UTF-8" {
		return bytes.NewReader(bodyBytes), nil
	}
	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(bodyBytes))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, apperrors.NewFetch(pageURL, "convert body to UTF-8", err)
	}
	return &buf, nil
}

// client builds an HTTP client honoring the identity's egress proxy.
func (r *FunctionRenderer) client(ident Identity) *http.Client {
	c := &http.Client{Timeout: r.timeout}
	if ident.ProxyURL != "" {
		if proxyURL, err := url.Parse(ident.ProxyURL); err == nil {
			c.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}
	return c
}

// classify maps transport errors onto the timeout/navigation taxonomy.
func classify(pageURL string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeout(pageURL, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return apperrors.NewTimeout(pageURL, err)
	}
	return apperrors.NewFetch(pageURL, "navigation failed", err)
}
