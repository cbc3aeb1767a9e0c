package listing

// CSS selector fallback lists used across the extractors. The marketplace
// ships several historical markup variants simultaneously; each list is tried
// in order and the first selector that matches wins. When the site changes
// markup, only these lists need updating.

// rowSelectors match one search-result row each. The winning strategy is
// chosen per page and never mixed with another on the same page.
var rowSelectors = []string{
	"li.cl-static-search-result",
	"li.result-row",
	"div.result-info",
	"li.cl-search-result",
}

// anchorSelectors locate the title link inside a result row.
var anchorSelectors = []string{
	"a.cl-app-anchor",
	"a.result-title",
	"a.titlestring",
	"a.posting-title",
	"a[href]",
}

// priceSelectors locate the price badge inside a result row.
var priceSelectors = []string{
	"span.priceinfo",
	"span.result-price",
	"div.price",
	"span.price",
}

// dateSelectors locate the posted-at element inside a result row. Elements
// with a machine-readable datetime attribute are preferred over rendered text.
var dateSelectors = []string{
	"time.result-date",
	"time[datetime]",
	"span.result-date",
	"div.meta span[title]",
}

// hoodSelectors locate the neighborhood label inside a result row.
var hoodSelectors = []string{
	"span.result-hood",
	"div.location",
	"span.nearby",
	"div.supertitle",
}

// bodySelectors locate the posting body on a detail page.
var bodySelectors = []string{
	"#postingbody",
	"section#postingbody",
	"section.userbody",
	"div.posting-body",
}

// attrGroupSelectors locate attribute-group containers on a detail page.
var attrGroupSelectors = []string{
	"p.attrgroup",
	"div.attrgroup",
	"div.mapAndAttrs p.attrgroup",
}

// compensationSelectors locate the compensation attribute on a detail page.
var compensationSelectors = []string{
	"p.attrgroup span:contains('compensation')",
	".attrgroup span.attr-compensation",
}

// detailHoodSelectors locate the neighborhood on a detail page.
var detailHoodSelectors = []string{
	"span.postingtitletext small",
	"h1.postingtitle small",
	"span.result-hood",
}

// gallerySelectors locate listing images on a detail page.
var gallerySelectors = []string{
	"div.gallery img",
	"#thumbs a img",
	"div.slide img",
	"img[src*='images.craigslist']",
}

// mapSelector is the map widget carrying data-latitude/data-longitude.
const mapSelector = "#map"

// postingBodyBoilerplate is injected by the site into every posting body.
const postingBodyBoilerplate = "QR Code Link to This Post"
