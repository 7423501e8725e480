// Package extract locates the per-kilogram price inside rendered product
// markup. It is a pure function of the fetched HTML: no network or browser
// I/O happens here, which keeps it independently testable.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultMarker is the literal substring that tags the per-kilogram price
// element on the product page.
const DefaultMarker = "x kg"

var (
	parenGroup = regexp.MustCompile(`\(([^)]*)\)`)
	digitRun   = regexp.MustCompile(`\d+`)
)

// ErrElementNotFound reports that no element in the rendered content carries
// the marker substring. The markup is assumed structurally broken, so the
// caller must not retry.
type ErrElementNotFound struct {
	Marker string
}

func (e ErrElementNotFound) Error() string {
	return fmt.Sprintf("element_not_found: no element containing %q", e.Marker)
}

// ErrParseFailure reports that the marker element was found but no price
// could be parsed out of its text. Not retryable either.
type ErrParseFailure struct {
	Text   string
	Reason string
}

func (e ErrParseFailure) Error() string {
	return fmt.Sprintf("parse_failure: %s in %q", e.Reason, e.Text)
}

// PricePerKilo extracts the per-kilogram price from rendered HTML.
//
// The first element whose own text contains marker is selected, then the
// first parenthesized group of its full text is scanned and every maximal
// run of decimal digits is concatenated left to right and parsed as an
// unsigned integer. The concatenation deliberately drops thousands
// separators and currency symbols: "(kg $1.234)" parses to 1234. That lossy
// parse matches the observed site markup and must be preserved as-is.
func PricePerKilo(content, marker string) (int, error) {
	if marker == "" {
		marker = DefaultMarker
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return 0, fmt.Errorf("parse document: %w", err)
	}

	var found *goquery.Selection
	doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(ownText(s), marker) {
			found = s
			return false
		}
		return true
	})
	if found == nil {
		return 0, ErrElementNotFound{Marker: marker}
	}

	text := found.Text()
	group := parenGroup.FindStringSubmatch(text)
	if group == nil {
		return 0, ErrParseFailure{Text: text, Reason: "no parenthesized group"}
	}

	runs := digitRun.FindAllString(group[1], -1)
	if len(runs) == 0 {
		return 0, ErrParseFailure{Text: group[1], Reason: "no digits"}
	}

	price, err := strconv.Atoi(strings.Join(runs, ""))
	if err != nil {
		return 0, ErrParseFailure{Text: group[1], Reason: "value out of range"}
	}
	return price, nil
}

// ownText concatenates the direct text nodes of a selection, excluding
// descendant elements. Matching on own text keeps container elements (body,
// wrapping divs) from shadowing the leaf element that actually renders the
// marker.
func ownText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
	}
	return b.String()
}
