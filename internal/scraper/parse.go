package scraper

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnparsablePrice means a strategy returned text that does not reduce to a
// decimal amount. Callers must treat this as an extraction failure; coercing
// it to 0 would let one malformed scrape overwrite a good cached price.
var ErrUnparsablePrice = errors.New("unparsable price string")

// ParsePrice turns a raw extraction result like "$1,428.90" into a decimal
// amount. Everything except digits and the decimal point is stripped before
// parsing, so currency symbols and thousands separators are tolerated.
func ParsePrice(raw string) (float64, error) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		return 0, fmt.Errorf("%w: %q", ErrUnparsablePrice, raw)
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparsablePrice, raw)
	}

	if value < 0 {
		return 0, fmt.Errorf("%w: negative amount in %q", ErrUnparsablePrice, raw)
	}

	return value, nil
}
