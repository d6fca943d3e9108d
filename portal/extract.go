package portal

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// parseMarkup builds a goquery document from a rendered page.
func parseMarkup(markup string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// ExtractPage returns the booking cards of one booking-list page in page order.
// Regions missing from a card leave the matching field nil; a booking date that does
// not parse fails the whole page.
func ExtractPage(markup string) ([]BookingRecord, error) {
	doc, err := parseMarkup(markup)
	if err != nil {
		return nil, err
	}

	cards := doc.Find(bookingCardSelector)
	records := make([]BookingRecord, 0, cards.Length())
	var extractErr error
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		rec, err := extractCard(card)
		if err != nil {
			extractErr = fmt.Errorf("booking card %d: %w", i, err)
			return false
		}
		records = append(records, rec)
		return true
	})
	if extractErr != nil {
		return nil, extractErr
	}
	return records, nil
}

func extractCard(card *goquery.Selection) (BookingRecord, error) {
	rec := BookingRecord{
		Name:              spanText(card, regionName),
		Phone:             spanText(card, regionPhone),
		ReservationNumber: regionText(card, regionBookNumber),
		Room:              regionText(card, regionHost),
		Option:            regionText(card, regionOption),
		Comment:           regionText(card, regionComment),
		Price:             regionText(card, regionTotalPrice),
		Status:            spanText(card, regionState),
	}

	if period := regionText(card, regionBookDate); period != nil {
		start, end, err := SplitPeriod(*period)
		if err != nil {
			return BookingRecord{}, err
		}
		if start, err = ParseCompact(start); err != nil {
			return BookingRecord{}, err
		}
		if end, err = ParseCompact(end); err != nil {
			return BookingRecord{}, err
		}
		rec.StartDate, rec.EndDate = &start, &end
	}
	return rec, nil
}

func region(card *goquery.Selection, key string) *goquery.Selection {
	sel := card.Find(regionSelector(key)).First()
	if sel.Length() == 0 {
		return nil
	}
	return sel
}

func regionText(card *goquery.Selection, key string) *string {
	sel := region(card, key)
	if sel == nil {
		return nil
	}
	s := strippedText(sel)
	return &s
}

// spanText reads the label wrapped one level inside the region.
func spanText(card *goquery.Selection, key string) *string {
	sel := region(card, key)
	if sel == nil {
		return nil
	}
	span := sel.Find("span").First()
	if span.Length() == 0 {
		return nil
	}
	s := strippedText(span)
	return &s
}

// strippedText concatenates the trimmed text nodes under sel, so markup like
// "150,000\n<span>원</span>" reads as "150,000원".
func strippedText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}
