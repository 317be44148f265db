package strategy

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The pipeline below is shared by every marketplace strategy. Steps run in
// order and stop at the first hit:
//
//  1. regexp scan of the raw document for a currency-prefixed decimal,
//  2. marketplace-specific selectors, most reliable first,
//  3. embedded script/JSON blobs with known price field names,
//  4. <meta> tag content attributes.
//
// Step 1 is the fast path that keeps working when a marketplace reshuffles
// its markup; the later steps recover prices that are rendered without a
// currency prefix or live only in embedded state.

var (
	currencyPricePattern = regexp.MustCompile(`\$\s?\d+(?:,\d{3})*(?:\.\d{1,2})?`)
	barePricePattern     = regexp.MustCompile(`\d+(?:,\d{3})*(?:\.\d{1,2})?`)
	bareDecimalPattern   = regexp.MustCompile(`\d+(?:\.\d+)?`)

	// Field names observed across marketplace embedded state blobs.
	scriptPricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`"price"\s*:\s*"?(\d+(?:\.\d+)?)"?`),
		regexp.MustCompile(`"salePrice"\s*:\s*"?(\d+(?:\.\d+)?)"?`),
		regexp.MustCompile(`"displayPrice"\s*:\s*"?\$?(\d+(?:,\d{3})*(?:\.\d+)?)"?`),
		regexp.MustCompile(`"originPrice"\s*:\s*"?(\d+(?:\.\d+)?)"?`),
	}
)

// extractFromHTML runs the four-step pipeline over a fetched page.
func extractFromHTML(html string, selectors []string) (string, error) {
	if raw, ok := scanRawDocument(html); ok {
		return raw, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	if raw, ok := scanSelectors(doc, selectors); ok {
		return raw, nil
	}

	if raw, ok := scanScriptBlobs(doc); ok {
		return raw, nil
	}

	if raw, ok := scanMetaTags(doc); ok {
		return raw, nil
	}

	return "", ErrNoPriceFound
}

func scanRawDocument(html string) (string, bool) {
	match := currencyPricePattern.FindString(html)
	if match == "" {
		return "", false
	}
	return strings.TrimSpace(match), true
}

func scanSelectors(doc *goquery.Document, selectors []string) (string, bool) {
	for _, selector := range selectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text == "" {
			continue
		}
		if match := currencyPricePattern.FindString(text); match != "" {
			return strings.TrimSpace(match), true
		}
		// Some containers render the amount without a currency prefix.
		if match := barePricePattern.FindString(text); match != "" {
			return match, true
		}
	}
	return "", false
}

func scanScriptBlobs(doc *goquery.Document) (string, bool) {
	var found string
	doc.Find("script").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := s.Text()
		if text == "" {
			return true
		}
		for _, pattern := range scriptPricePatterns {
			matches := pattern.FindStringSubmatch(text)
			if len(matches) > 1 && matches[1] != "" && matches[1] != "0" {
				found = matches[1]
				return false
			}
		}
		return true
	})
	return found, found != ""
}

func scanMetaTags(doc *goquery.Document) (string, bool) {
	var found string
	doc.Find("meta").EachWithBreak(func(i int, s *goquery.Selection) bool {
		content, exists := s.Attr("content")
		if !exists || content == "" {
			return true
		}
		if match := currencyPricePattern.FindString(content); match != "" {
			found = strings.TrimSpace(match)
			return false
		}
		// Structured product meta carries a bare decimal amount.
		if prop, _ := s.Attr("property"); strings.Contains(prop, "price:amount") {
			if match := bareDecimalPattern.FindString(content); match != "" {
				found = match
				return false
			}
		}
		if itemprop, _ := s.Attr("itemprop"); itemprop == "price" {
			if match := bareDecimalPattern.FindString(content); match != "" {
				found = match
				return false
			}
		}
		return true
	})
	return found, found != ""
}
