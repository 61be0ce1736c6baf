package form

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ticketLineRe matches one line of the legacy "(name|price|currency)"
// display format.
var ticketLineRe = regexp.MustCompile(`^\(([^|]*)\|([^|]*)\|([^|)]*)\)$`)

// barePriceRe matches a bare "amount currency" price string.
var barePriceRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([A-Za-z]{2,5})?$`)

// FreeLabel is the display price of an item with no tickets or bounds.
const FreeLabel = "Free"

// CombineRange joins start and end into a single "start - end" string.
// Equal or missing components collapse to the single value present.
func CombineRange(start, end string) string {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	switch {
	case start == "":
		return end
	case end == "" || end == start:
		return start
	default:
		return start + rangeSeparator + end
	}
}

// SplitRange recovers the start and end components of a combined range
// string. A plain value comes back as the start with an empty end.
func SplitRange(s string) (start, end string) {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, rangeSeparator); idx >= 0 {
		return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+len(rangeSeparator):])
	}
	return s, ""
}

// EncodeTickets serializes tickets to their lossless JSON array form.
func EncodeTickets(tickets []Ticket) (string, error) {
	if len(tickets) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(tickets)
	if err != nil {
		return "", fmt.Errorf("encode tickets: %w", err)
	}
	return string(data), nil
}

// TicketsDisplay renders the lossy legacy price string: "Free" only for zero
// tickets, "price currency" for exactly one (an empty price reads as 0), and
// one "(name|price|currency)" line per ticket otherwise.
func TicketsDisplay(tickets []Ticket) string {
	switch len(tickets) {
	case 0:
		return FreeLabel
	case 1:
		t := tickets[0]
		price := strings.TrimSpace(t.Price)
		if price == "" {
			price = "0"
		}
		return strings.TrimSpace(price + " " + t.Currency)
	default:
		lines := make([]string, 0, len(tickets))
		for _, t := range tickets {
			lines = append(lines, fmt.Sprintf("(%s|%s|%s)", t.Name, t.Price, t.Currency))
		}
		return strings.Join(lines, "\n")
	}
}

// DecodeTickets recovers a ticket list from whatever a previously saved item
// carries: a JSON array, a single JSON object, the "(name|price|currency)"
// line format (possibly stored in the legacy price field), or a bare price
// string. Parse failures degrade to a single default ticket so editing
// always remains possible.
func DecodeTickets(ticketsField, priceField string) []Ticket {
	if tickets, ok := decodeTicketJSON(ticketsField); ok {
		return tickets
	}
	if tickets, ok := decodeTicketLines(ticketsField); ok {
		return tickets
	}
	if tickets, ok := decodeTicketLines(priceField); ok {
		return tickets
	}
	if tickets, ok := decodeBarePrice(priceField); ok {
		return tickets
	}
	return []Ticket{defaultTicket()}
}

func decodeTicketJSON(s string) ([]Ticket, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}

	var list []Ticket
	if err := json.Unmarshal([]byte(s), &list); err == nil {
		for i := range list {
			if list[i].ID == "" {
				list[i].ID = uuid.NewString()
			}
		}
		return list, true
	}

	var single Ticket
	if err := json.Unmarshal([]byte(s), &single); err == nil && single.Name != "" {
		if single.ID == "" {
			single.ID = uuid.NewString()
		}
		return []Ticket{single}, true
	}
	return nil, false
}

func decodeTicketLines(s string) ([]Ticket, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}

	var tickets []Ticket
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := ticketLineRe.FindStringSubmatch(line)
		if m == nil {
			return nil, false
		}
		tickets = append(tickets, Ticket{
			ID:       uuid.NewString(),
			Name:     m[1],
			Price:    m[2],
			Currency: m[3],
		})
	}
	return tickets, len(tickets) > 0
}

func decodeBarePrice(s string) ([]Ticket, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == FreeLabel {
		return nil, false
	}
	m := barePriceRe.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	t := defaultTicket()
	t.Price = m[1]
	if m[2] != "" {
		t.Currency = m[2]
	}
	return []Ticket{t}, true
}

func defaultTicket() Ticket {
	return Ticket{
		ID:       uuid.NewString(),
		Name:     "General Admission",
		Price:    "0",
		Currency: "USD",
	}
}

// EncodePriceRange serializes a price range to its lossless JSON form.
func EncodePriceRange(pr PriceRange) (string, error) {
	data, err := json.Marshal(pr)
	if err != nil {
		return "", fmt.Errorf("encode price range: %w", err)
	}
	return string(data), nil
}

// PriceRangeDisplay renders the lossy display string: the exact amount when
// the bounds meet, "min-max currency" when both differ, "From"/"Up to" for a
// single bound, and "Free" when neither is set.
func PriceRangeDisplay(pr PriceRange) string {
	switch {
	case pr.Min != "" && pr.Max != "" && pr.Min == pr.Max:
		return strings.TrimSpace(pr.Min + " " + pr.Currency)
	case pr.Min != "" && pr.Max != "":
		return strings.TrimSpace(pr.Min + "-" + pr.Max + " " + pr.Currency)
	case pr.Min != "":
		return strings.TrimSpace("From " + pr.Min + " " + pr.Currency)
	case pr.Max != "":
		return strings.TrimSpace("Up to " + pr.Max + " " + pr.Currency)
	default:
		return FreeLabel
	}
}

// DecodePriceRange recovers a price range from its JSON form. Malformed
// input degrades to an empty range rather than erroring.
func DecodePriceRange(s string) PriceRange {
	s = strings.TrimSpace(s)
	if s == "" {
		return PriceRange{}
	}
	var pr PriceRange
	if err := json.Unmarshal([]byte(s), &pr); err != nil {
		return PriceRange{}
	}
	return pr
}
