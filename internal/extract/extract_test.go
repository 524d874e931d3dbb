package extract

import (
	"testing"

	"github.com/hadiiskaargar/PricePilot/internal/page"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, html string) page.Page {
	t.Helper()
	p, err := page.ParseString(html)
	require.NoError(t, err)
	return p
}

func TestExtractAmazonPrimarySelectors(t *testing.T) {
	html := `<html><body>
		<span id="productTitle">  Mechanical   Keyboard  </span>
		<div id="corePriceDisplay_desktop_feature_div">
			<span class="a-offscreen">$123.45</span>
		</div>
		<div id="availability"><span>In Stock.</span></div>
	</body></html>`

	res := New().Extract(mustParse(t, html), SiteAmazon)
	assert.False(t, res.Challenge)
	assert.Equal(t, "Mechanical Keyboard", res.Fields.Title)
	assert.True(t, res.Fields.Price.Determined)
	assert.Equal(t, "123.45", res.Fields.Price.Amount.String())
	assert.Equal(t, InStock, res.Fields.Availability)
}

func TestExtractSkipsDeadEndPriceStrategy(t *testing.T) {
	// The first matching selector carries no usable number; extraction
	// must continue to the next strategy instead of accepting it.
	html := `<html><body>
		<span id="productTitle">Lamp</span>
		<div id="corePriceDisplay_desktop_feature_div">
			<span class="a-offscreen">See options</span>
		</div>
		<span class="a-price"><span class="a-offscreen">$42.00</span></span>
	</body></html>`

	res := New().Extract(mustParse(t, html), SiteAmazon)
	assert.True(t, res.Fields.Price.Determined)
	assert.Equal(t, "42.00", res.Fields.Price.Amount.String())
}

func TestExtractFallbackScan(t *testing.T) {
	// Nothing in the ranked list matches, but a price-like element with
	// currency-like text exists.
	html := `<html><body>
		<h1>Ceramic Mug</h1>
		<div class="product-price-banner">Only $15.99 today</div>
	</body></html>`

	res := New().Extract(mustParse(t, html), SiteEtsy)
	assert.True(t, res.Fields.Price.Determined)
	assert.Equal(t, "15.99", res.Fields.Price.Amount.String())
}

func TestExtractNothingFound(t *testing.T) {
	html := `<html><body><p>nothing to see here</p></body></html>`

	res := New().Extract(mustParse(t, html), SiteEbay)
	assert.False(t, res.Challenge)
	assert.Equal(t, UnknownTitle, res.Fields.Title)
	assert.False(t, res.Fields.Price.Determined)
	assert.Equal(t, AvailabilityUnknown, res.Fields.Availability)
}

func TestExtractChallengeShortCircuits(t *testing.T) {
	html := `<html><body>
		<h1>One moment</h1>
		<p>Checking your browser before accessing the site.</p>
		<span id="productTitle">should never be read</span>
	</body></html>`

	res := New().Extract(mustParse(t, html), SiteAmazon)
	assert.True(t, res.Challenge)
	assert.Empty(t, res.Fields.Title)
}

func TestExtractGermanChallengeMarker(t *testing.T) {
	html := `<html><body><p>Ihr Browser wird geprüft...</p></body></html>`
	assert.True(t, IsChallenge(mustParse(t, html)))
}

func TestExtractEbayEuropeanPrice(t *testing.T) {
	html := `<html><body>
		<h1 data-testid="x-item-title">Vintage Camera</h1>
		<div class="x-price-primary"><span class="ux-textspans">EUR 99,99</span></div>
	</body></html>`

	res := New().Extract(mustParse(t, html), SiteEbay)
	assert.Equal(t, "Vintage Camera", res.Fields.Title)
	assert.True(t, res.Fields.Price.Determined)
	assert.Equal(t, "99.99", res.Fields.Price.Amount.String())
}

func TestClassifyAvailability(t *testing.T) {
	assert.Equal(t, OutOfStock, ClassifyAvailability("Currently unavailable."))
	assert.Equal(t, OutOfStock, ClassifyAvailability("Temporarily out of stock"))
	assert.Equal(t, InStock, ClassifyAvailability("In Stock"))
	assert.Equal(t, InStock, ClassifyAvailability("Ready to ship from Berlin"))
	assert.Equal(t, AvailabilityUnknown, ClassifyAvailability("   "))
	assert.Equal(t, AvailabilityUnknown, ClassifyAvailability("Ships internationally"))
	// Unavailability sentences that mention availability still read as out of stock.
	assert.Equal(t, OutOfStock, ClassifyAvailability("This item is unavailable, similar items are available"))
}

func TestApplyOverrides(t *testing.T) {
	e := New()
	yaml := `
amazon:
  price:
    - ".custom-price"
`
	require.NoError(t, e.applyOverrides([]byte(yaml)))

	html := `<html><body>
		<span id="productTitle">Widget</span>
		<div class="custom-price">$9.99</div>
	</body></html>`
	res := e.Extract(mustParse(t, html), SiteAmazon)
	assert.Equal(t, "9.99", res.Fields.Price.Amount.String())

	// Title list was not overridden and still works.
	assert.Equal(t, "Widget", res.Fields.Title)
}

func TestApplyOverridesUnknownSite(t *testing.T) {
	e := New()
	err := e.applyOverrides([]byte("walmart:\n  price: [\".p\"]\n"))
	assert.Error(t, err)
}
