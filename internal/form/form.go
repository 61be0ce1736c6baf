package form

// Ticket is a named price tier attached to an Event or Entertainment item.
// An item with zero tickets is implicitly free.
type Ticket struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

// PriceRange is the min/max/currency triple attached to Food & Beverage and
// Accommodation items.
type PriceRange struct {
	Min      string `json:"min"`
	Max      string `json:"max"`
	Currency string `json:"currency"`
}

// IsZero reports whether no bound and no currency is set.
func (pr PriceRange) IsZero() bool {
	return pr.Min == "" && pr.Max == "" && pr.Currency == ""
}

// Values holds the editable fields of one form session. Start/end date and
// time are kept as separate components; they are combined into single range
// strings only at submission.
type Values struct {
	Name        string     `json:"name"`
	StartDate   string     `json:"date"`
	EndDate     string     `json:"endDate"`
	StartTime   string     `json:"time"`
	EndTime     string     `json:"endTime"`
	Address     string     `json:"address"`
	Description string     `json:"description"`
	Image       string     `json:"image"`
	Location    string     `json:"location"`
	Tickets     []Ticket   `json:"tickets"`
	PriceRange  PriceRange `json:"priceRange"`
}
