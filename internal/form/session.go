package form

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"kbadmin/internal/schema"
	"kbadmin/internal/upstream"
)

// State is the lifecycle position of one editing session.
type State int

const (
	// StateNew means no category is chosen yet; only category selection
	// is allowed.
	StateNew State = iota
	// StateCategorySelected means the category is fixed and field
	// visibility applied, but nothing was edited yet.
	StateCategorySelected
	// StateEditing means visible fields are being edited.
	StateEditing
	// StateClosed means the session submitted successfully and accepts
	// no further changes.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateCategorySelected:
		return "category_selected"
	case StateEditing:
		return "editing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

var (
	// ErrNoCategory signals an operation that needs a category first.
	ErrNoCategory = errors.New("no category selected")
	// ErrCategoryFixed signals a category change after selection.
	ErrCategoryFixed = errors.New("category is fixed for this session")
	// ErrSessionClosed signals edits after a successful submission.
	ErrSessionClosed = errors.New("session is closed")
	// ErrUnknownField signals a field name outside the form model.
	ErrUnknownField = errors.New("unknown form field")
)

// ValidationError carries per-field messages from a failed submission. The
// first message doubles as the top-level banner text.
type ValidationError struct {
	Fields map[string]string
	First  string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.First
}

// Session drives a single creation or edit of one item. Transitions are
// guarded so that submitting before a category is chosen, or editing after
// submission, is impossible. The manager hands the same session to every
// request for its id, so all state sits behind the mutex.
type Session struct {
	ID string

	mu         sync.Mutex
	state      State
	category   string
	visibility schema.FieldVisibility
	itemID     int64
	createdAt  string
	values     Values
	fieldErrs  map[string]string
}

// NewSession starts a blank creation session.
func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		state:     StateNew,
		fieldErrs: make(map[string]string),
	}
}

// EditSession starts a session preloaded from a previously saved item. The
// combined date/time strings and the stringly ticket/price-range fields are
// split back into components; malformed pieces degrade to safe defaults.
func EditSession(item upstream.Item) *Session {
	item.NormalizeCategory()
	s := NewSession()
	s.itemID = item.ID
	s.createdAt = item.CreatedAt
	s.category = item.Category
	s.visibility = schema.TemplateFor(item.Category)
	s.state = StateEditing

	s.values.Name = html.UnescapeString(item.Name)
	s.values.Address = html.UnescapeString(item.Address)
	s.values.Description = html.UnescapeString(item.Description)
	s.values.Image = item.Image
	s.values.Location = item.Location
	s.values.StartDate, s.values.EndDate = SplitRange(item.Date)
	s.values.StartTime, s.values.EndTime = SplitRange(item.Time)

	if schema.UsesTickets(item.Category) {
		s.values.Tickets = DecodeTickets(item.Tickets, item.Price)
	}
	if schema.UsesPriceRange(item.Category) {
		s.values.PriceRange = DecodePriceRange(item.PriceRange)
	}
	if !schema.IsBuiltin(item.Category) {
		// Custom categories may carry either shape.
		if item.Tickets != "" {
			s.values.Tickets = DecodeTickets(item.Tickets, item.Price)
		}
		s.values.PriceRange = DecodePriceRange(item.PriceRange)
	}
	return s
}

// State returns the session's lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Category returns the selected category, or "" before selection.
func (s *Session) Category() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.category
}

// Visibility returns the field template for the selected category.
func (s *Session) Visibility() schema.FieldVisibility {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibility
}

// ItemID returns the id of the item being edited, or 0 for a creation.
func (s *Session) ItemID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemID
}

// Values returns a copy of the current field values.
func (s *Session) Values() Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values
}

// FieldErrors returns the messages from the last failed submission.
func (s *Session) FieldErrors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.fieldErrs))
	for k, v := range s.fieldErrs {
		out[k] = v
	}
	return out
}

// SelectCategory fixes the category for the session and applies the
// category's field template and defaults.
func (s *Session) SelectCategory(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateCategorySelected, StateEditing:
		return ErrCategoryFixed
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNoCategory
	}

	s.category = name
	s.visibility = schema.TemplateFor(name)
	s.state = StateCategorySelected

	// SOS entries describe who to call; seed the description convention.
	if name == schema.CategorySOS && s.values.Description == "" {
		s.values.Description = "Phone number: "
	}
	return nil
}

// SetField sets one text field and clears its previous validation error.
func (s *Session) SetField(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}

	switch field {
	case "name":
		s.values.Name = value
	case "date":
		s.values.StartDate = value
	case "endDate":
		s.values.EndDate = value
	case "time":
		s.values.StartTime = value
	case "endTime":
		s.values.EndTime = value
	case "address":
		s.values.Address = value
	case "description":
		s.values.Description = value
	case "image":
		s.values.Image = value
	case "location":
		s.values.Location = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	delete(s.fieldErrs, field)
	s.state = StateEditing
	return nil
}

// SetTickets replaces the ticket list.
func (s *Session) SetTickets(tickets []Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}
	for i := range tickets {
		if tickets[i].ID == "" {
			tickets[i].ID = uuid.NewString()
		}
	}
	s.values.Tickets = tickets
	delete(s.fieldErrs, "tickets")
	s.state = StateEditing
	return nil
}

// SetPriceRange replaces the price range.
func (s *Session) SetPriceRange(pr PriceRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}
	s.values.PriceRange = pr
	delete(s.fieldErrs, "priceRange")
	s.state = StateEditing
	return nil
}

func (s *Session) editable() error {
	switch s.state {
	case StateNew:
		return ErrNoCategory
	case StateClosed:
		return ErrSessionClosed
	}
	return nil
}

// Submit validates the session and, on success, shapes the item for the
// pending queue and closes the session. On failure the session stays
// editable with per-field errors recorded.
func (s *Session) Submit() (upstream.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateNew:
		return upstream.Item{}, ErrNoCategory
	case StateClosed:
		return upstream.Item{}, ErrSessionClosed
	}

	if verr := s.validate(); verr != nil {
		s.fieldErrs = verr.Fields
		s.state = StateEditing
		return upstream.Item{}, verr
	}

	item, err := s.buildItem()
	if err != nil {
		s.state = StateEditing
		return upstream.Item{}, err
	}
	s.state = StateClosed
	return item, nil
}

// validate applies the category-aware rule set. Messages are collected per
// field; the first failure becomes the banner text.
func (s *Session) validate() *ValidationError {
	errs := make(map[string]string)
	var order []string
	fail := func(field, msg string) {
		if _, seen := errs[field]; seen {
			return
		}
		errs[field] = msg
		order = append(order, field)
	}

	v := s.values
	vis := s.visibility
	eventLike := s.category == schema.CategoryEvent || s.category == schema.CategoryEntertainment

	if strings.TrimSpace(v.Name) == "" {
		fail("name", "Name is required")
	}

	if vis.Date {
		if eventLike && v.StartDate == "" {
			fail("date", "Start date is required")
		}
		if v.StartDate != "" && !ValidDateValue(v.StartDate) {
			fail("date", "Date must be in m/d/yyyy format")
		}
	}
	if vis.EndDate {
		if eventLike && v.EndDate == "" {
			fail("endDate", "End date is required")
		}
		if v.EndDate != "" && !ValidDate(v.EndDate) {
			fail("endDate", "End date must be in m/d/yyyy format")
		}
	}

	startDate, startOK := ParseDate(v.StartDate)
	endDate, endOK := ParseDate(v.EndDate)
	if startOK && endOK && endDate.Before(startDate) {
		fail("endDate", "End date must be on or after the start date")
	}

	if vis.Time {
		if eventLike && v.StartTime == "" {
			fail("time", "Start time is required")
		}
		if v.StartTime != "" && !ValidTimeValue(v.StartTime) {
			fail("time", "Time must be in h:mm AM/PM format")
		}
	}
	if vis.EndTime {
		if eventLike && v.EndTime == "" {
			fail("endTime", "End time is required")
		}
		if v.EndTime != "" && !ValidTime(v.EndTime) {
			fail("endTime", "End time must be in h:mm AM/PM format")
		}
	}

	if startOK && endOK && startDate.Equal(endDate) {
		startClock, sOK := ParseClock(v.StartTime)
		endClock, eOK := ParseClock(v.EndTime)
		if sOK && eOK && endClock <= startClock {
			fail("endTime", "End time must be after the start time on a same-day range")
		}
	}

	if vis.Address && schema.RequiresAddress(s.category) && strings.TrimSpace(v.Address) == "" {
		fail("address", "Address is required")
	}

	switch s.category {
	case schema.CategoryFAQ:
		if strings.TrimSpace(v.Description) == "" {
			fail("description", "An answer is required")
		}
	case schema.CategorySOS:
		if !validPhoneDescription(v.Description) {
			fail("description", `Description must contain "Phone number:" followed by the number`)
		}
	}

	if schema.UsesPriceRange(s.category) {
		pr := v.PriceRange
		switch {
		case pr.Min == "" || pr.Max == "" || pr.Currency == "":
			fail("priceRange", "Minimum, maximum and currency are required")
		case !validNumber(pr.Min, true) || !validNumber(pr.Max, true):
			fail("priceRange", "Price bounds must be non-negative numbers")
		default:
			lo, _ := strconv.ParseFloat(strings.TrimSpace(pr.Min), 64)
			hi, _ := strconv.ParseFloat(strings.TrimSpace(pr.Max), 64)
			if hi < lo {
				fail("priceRange", "Maximum price must not be below the minimum")
			}
		}
	}

	for _, t := range v.Tickets {
		if strings.TrimSpace(t.Name) == "" {
			fail("tickets", "Every ticket needs a name")
			break
		}
		if t.Price != "" && !validNumber(t.Price, false) {
			fail("tickets", "Ticket prices must be numbers")
			break
		}
	}

	if len(order) == 0 {
		return nil
	}
	return &ValidationError{Fields: errs, First: errs[order[0]]}
}

// buildItem flattens the session values into the wire shape: combined
// date/time range strings, ticket and price-range JSON plus the legacy
// display price, and the synced category/type pair.
func (s *Session) buildItem() (upstream.Item, error) {
	v := s.values
	item := upstream.Item{
		ID:          s.itemID,
		Name:        strings.TrimSpace(v.Name),
		Address:     strings.TrimSpace(v.Address),
		Description: strings.TrimSpace(v.Description),
		Date:        CombineRange(v.StartDate, v.EndDate),
		Time:        CombineRange(v.StartTime, v.EndTime),
		Category:    s.category,
		Type:        s.category,
		Image:       v.Image,
		Location:    v.Location,
		CreatedAt:   s.createdAt,
	}

	useTickets := schema.UsesTickets(s.category) ||
		(!schema.IsBuiltin(s.category) && len(v.Tickets) > 0)
	usePriceRange := schema.UsesPriceRange(s.category) ||
		(!schema.IsBuiltin(s.category) && !useTickets && !v.PriceRange.IsZero())

	switch {
	case useTickets:
		encoded, err := EncodeTickets(v.Tickets)
		if err != nil {
			return upstream.Item{}, err
		}
		item.Tickets = encoded
		item.Price = TicketsDisplay(v.Tickets)
	case usePriceRange:
		encoded, err := EncodePriceRange(v.PriceRange)
		if err != nil {
			return upstream.Item{}, err
		}
		item.PriceRange = encoded
		item.Price = PriceRangeDisplay(v.PriceRange)
	}
	return item, nil
}
