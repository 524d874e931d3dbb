package extract

import (
	"regexp"
	"strings"

	"github.com/hadiiskaargar/PricePilot/internal/page"
	"github.com/hadiiskaargar/PricePilot/internal/price"
)

// Site identifies which extraction strategy table applies to a page.
type Site string

const (
	SiteAmazon Site = "amazon"
	SiteEbay   Site = "ebay"
	SiteEtsy   Site = "etsy"
)

// Availability is the normalized stock signal.
type Availability string

const (
	InStock             Availability = "in_stock"
	OutOfStock          Availability = "out_of_stock"
	AvailabilityUnknown Availability = "unknown"
)

// UnknownTitle is reported when no title strategy succeeds.
const UnknownTitle = "Unknown Product"

// Fields is one page's extracted observation input.
type Fields struct {
	Title        string
	PriceText    string
	Price        price.Price
	Availability Availability
}

// Result is the outcome of extracting one rendered page. Challenge is
// set when the page is an automated-traffic challenge; Fields are only
// meaningful when Challenge is false.
type Result struct {
	Challenge bool
	Fields    Fields
}

// Strategies is the ordered selector table for one site.
type Strategies struct {
	Title         []string `yaml:"title"`
	Price         []string `yaml:"price"`
	Availability  []string `yaml:"availability"`
	PriceFallback []string `yaml:"price_fallback"`
}

// Extractor resolves page fields through per-site strategy tables.
type Extractor struct {
	sites map[Site]Strategies
}

// New creates an extractor with the built-in strategy tables.
func New() *Extractor {
	return &Extractor{sites: defaultStrategies()}
}

// Sites returns the sites the extractor knows about.
func (e *Extractor) Sites() []Site {
	return []Site{SiteAmazon, SiteEbay, SiteEtsy}
}

// Supported reports whether the extractor has strategies for the site.
func (e *Extractor) Supported(site Site) bool {
	_, ok := e.sites[site]
	return ok
}

// challengeMarkers are site-agnostic phrases that indicate the page is
// an automated-traffic challenge rather than product content.
var challengeMarkers = []string{
	"checking your browser",
	"your browser is being checked",
	"ihr browser wird geprüft",
	"cloudflare",
	"bot protection",
	"bot detection",
	"verifying you are human",
	"captcha",
	"please wait",
}

// currencyLike matches text that plausibly carries a price, used by the
// structural fallback scan.
var currencyLike = regexp.MustCompile(`[$£€]\s*[\d,]+\.?\d*|\d+[,.]\d{2}\s*(?:€|EUR)`)

// Extract resolves title, price and availability for the page, or a
// challenge outcome when the page carries a challenge marker.
func (e *Extractor) Extract(p page.Page, site Site) Result {
	if IsChallenge(p) {
		return Result{Challenge: true}
	}

	strat, ok := e.sites[site]
	if !ok {
		return Result{Fields: Fields{
			Title:        UnknownTitle,
			Price:        price.Undetermined,
			Availability: AvailabilityUnknown,
		}}
	}

	f := Fields{
		Title:        e.extractTitle(p, strat),
		Availability: e.extractAvailability(p, strat),
	}
	f.PriceText, f.Price = e.extractPrice(p, strat)
	return Result{Fields: f}
}

// IsChallenge scans page content for challenge markers.
func IsChallenge(p page.Page) bool {
	body := strings.ToLower(p.Content())
	for _, marker := range challengeMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

func (e *Extractor) extractTitle(p page.Page, strat Strategies) string {
	for _, sel := range strat.Title {
		el, ok := p.FindFirst(sel)
		if !ok {
			continue
		}
		if title := CleanText(el.Text()); title != "" {
			return title
		}
	}
	return UnknownTitle
}

// extractPrice walks the strategy list, accepting a selector only when
// its text survives normalization; a located element whose text does not
// normalize is a dead end, not a result.
func (e *Extractor) extractPrice(p page.Page, strat Strategies) (string, price.Price) {
	for _, sel := range strat.Price {
		el, ok := p.FindFirst(sel)
		if !ok {
			continue
		}
		text := CleanText(el.Text())
		if text == "" {
			continue
		}
		if pr := price.Normalize(text); pr.Determined {
			return text, pr
		}
	}

	// Structural fallback: anything whose attributes suggest "price",
	// first element with currency-like text wins.
	for _, sel := range strat.PriceFallback {
		for _, el := range p.AllMatching(sel) {
			text := CleanText(el.Text())
			if text == "" || !currencyLike.MatchString(text) {
				continue
			}
			if pr := price.Normalize(text); pr.Determined {
				return text, pr
			}
		}
	}

	return "", price.Undetermined
}

var outOfStockPhrases = []string{
	"out of stock",
	"currently unavailable",
	"temporarily out of stock",
	"we don't know when",
	"no longer available",
	"discontinued",
	"unavailable",
	"sold out",
	"sold",
}

var inStockPhrases = []string{
	"in stock",
	"ready to ship",
	"available",
	"add to cart",
	"buy it now",
}

func (e *Extractor) extractAvailability(p page.Page, strat Strategies) Availability {
	for _, sel := range strat.Availability {
		el, ok := p.FindFirst(sel)
		if !ok {
			continue
		}
		if avail := ClassifyAvailability(el.Text()); avail != AvailabilityUnknown {
			return avail
		}
	}
	return AvailabilityUnknown
}

// ClassifyAvailability maps free availability text onto the normalized
// enumeration. Out-of-stock phrases win over in-stock phrases because
// several sites nest "available" inside unavailability sentences.
func ClassifyAvailability(text string) Availability {
	lower := strings.ToLower(CleanText(text))
	if lower == "" {
		return AvailabilityUnknown
	}
	for _, phrase := range outOfStockPhrases {
		if strings.Contains(lower, phrase) {
			return OutOfStock
		}
	}
	for _, phrase := range inStockPhrases {
		if strings.Contains(lower, phrase) {
			return InStock
		}
	}
	return AvailabilityUnknown
}

// CleanText collapses runs of whitespace to single spaces.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
