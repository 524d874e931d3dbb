package extract

// defaultStrategies returns the built-in per-site selector tables,
// ordered by reliability. These lists track live site markup and rot
// quickly; SELECTORS_PATH can override any of them without a rebuild.
func defaultStrategies() map[Site]Strategies {
	return map[Site]Strategies{
		SiteAmazon: {
			Title: []string{
				"#productTitle",
				`h1[data-automation-id="product-title"]`,
				"h1.product-title",
				"h1",
			},
			Price: []string{
				"#corePriceDisplay_desktop_feature_div span.a-offscreen",
				"#priceblock_ourprice",
				"#priceblock_dealprice",
				"#priceblock_saleprice",
				"span.a-price span.a-offscreen",
				"span.a-price-whole",
				".a-price .a-offscreen",
				".a-price-range .a-offscreen",
				".a-price.a-text-price .a-offscreen",
				"#kindle-price",
				"#digital-list-price",
				".a-price.a-text-price.a-size-base.a-color-secondary",
				".a-price.a-text-price.a-size-base.a-color-price",
				"span.a-color-price",
				".a-price",
				`[data-a-color="price"]`,
				".a-price-range",
			},
			Availability: []string{
				"#availability span",
				"#availability",
				".a-color-state",
				`[data-csa-c-type="availability"]`,
				".a-color-success",
				".a-color-error",
			},
			PriceFallback: []string{
				`[class*="price"]`,
				`[id*="price"]`,
				`[data-a-color="price"]`,
			},
		},
		SiteEbay: {
			Title: []string{
				`h1[data-testid="x-item-title"]`,
				"h1.x-item-title__mainTitle",
				".x-item-title__mainTitle",
				"h1",
			},
			Price: []string{
				".x-price-primary .ux-textspans",
				"span#prcIsum",
				"span#mm-saleDscPrc",
				`span[itemprop="price"]`,
				"span.s-item__price",
				"div.x-price-approx__price",
				"div.x-price-approx__value",
				"span.display-price",
				`span[itemprop="lowPrice"]`,
				`div[itemprop="offers"] span`,
				"span.ux-textspans",
			},
			Availability: []string{
				".d-quantity__availability",
				`span[data-testid="availability"]`,
				".ux-textspans--SECONDARY",
				"#qtySubTxt",
			},
			PriceFallback: []string{
				`[class*="price"]`,
				`[id*="price"]`,
				`[itemprop="price"]`,
			},
		},
		SiteEtsy: {
			Title: []string{
				`h1[data-buy-box-listing-title="true"]`,
				"h1.wt-text-body-01",
				"h1.wt-line-height-tight",
				"h1",
			},
			Price: []string{
				`div[data-buy-box-region="price"] p.wt-text-title-larger`,
				`div[data-buy-box-region="price"] p`,
				"p.wt-text-title-larger",
				"span.currency-value",
				`[data-selector="price-only"]`,
				"p.wt-text-title-03",
			},
			Availability: []string{
				`div[data-buy-box-region="quantity"]`,
				".wt-text-caption.wt-text-gray",
				`[data-selector="listing-page-overlay"]`,
			},
			PriceFallback: []string{
				`[class*="price"]`,
				`[id*="price"]`,
				"span.currency-value",
			},
		},
	}
}
