package schema

// Built-in category names. These are fixed for the lifetime of the
// application and cannot be renamed or deleted.
const (
	CategoryEvent         = "Event"
	CategoryFoodBeverage  = "Food & Beverage"
	CategoryAccommodation = "Accommodation"
	CategorySightseeing   = "Sightseeing Spots"
	CategoryEntertainment = "Entertainment"
	CategoryFAQ           = "FAQ"
	CategorySOS           = "SOS assistants"
)

// BuiltinCategories lists the built-in category names in display order.
var BuiltinCategories = []string{
	CategoryEvent,
	CategoryFoodBeverage,
	CategoryAccommodation,
	CategorySightseeing,
	CategoryEntertainment,
	CategoryFAQ,
	CategorySOS,
}

// FieldVisibility says which logical form fields apply to a category.
type FieldVisibility struct {
	Name        bool `json:"name"`
	Date        bool `json:"date"`
	EndDate     bool `json:"endDate"`
	Time        bool `json:"time"`
	EndTime     bool `json:"endTime"`
	Address     bool `json:"address"`
	Description bool `json:"description"`
	Tickets     bool `json:"tickets"`
	PriceRange  bool `json:"priceRange"`
	Image       bool `json:"image"`
}

// allVisible is the fallback for custom categories: their creator has no
// prior knowledge of which fields matter, so every field is offered.
var allVisible = FieldVisibility{
	Name:        true,
	Date:        true,
	EndDate:     true,
	Time:        true,
	EndTime:     true,
	Address:     true,
	Description: true,
	Tickets:     true,
	PriceRange:  true,
	Image:       true,
}

var templates = map[string]FieldVisibility{
	CategoryEvent: {
		Name:        true,
		Date:        true,
		EndDate:     true,
		Time:        true,
		EndTime:     true,
		Address:     true,
		Description: true,
		Tickets:     true,
		Image:       true,
	},
	CategoryEntertainment: {
		Name:        true,
		Date:        true,
		EndDate:     true,
		Time:        true,
		EndTime:     true,
		Address:     true,
		Description: true,
		Tickets:     true,
		Image:       true,
	},
	CategoryFoodBeverage: {
		Name:        true,
		Time:        true,
		EndTime:     true,
		Address:     true,
		Description: true,
		PriceRange:  true,
		Image:       true,
	},
	CategoryAccommodation: {
		Name:        true,
		Address:     true,
		Description: true,
		PriceRange:  true,
		Image:       true,
	},
	CategorySightseeing: {
		Name:        true,
		Time:        true,
		EndTime:     true,
		Address:     true,
		Description: true,
		Image:       true,
	},
	CategoryFAQ: {
		Name:        true,
		Description: true,
		Image:       true,
	},
	CategorySOS: {
		Name:        true,
		Address:     true,
		Description: true,
		Image:       true,
	},
}

// TemplateFor returns the field visibility template for a category name.
// Unrecognized (custom) categories get the all-visible template. The result
// is a value copy, so callers may modify it freely.
func TemplateFor(category string) FieldVisibility {
	if tpl, ok := templates[category]; ok {
		return tpl
	}
	return allVisible
}

// IsBuiltin reports whether the name matches a built-in category exactly.
func IsBuiltin(category string) bool {
	_, ok := templates[category]
	return ok
}

// UsesPriceRange reports whether items of this category carry a min/max
// price range rather than individual tickets.
func UsesPriceRange(category string) bool {
	return category == CategoryFoodBeverage || category == CategoryAccommodation
}

// UsesTickets reports whether items of this category carry a ticket list.
func UsesTickets(category string) bool {
	return category == CategoryEvent || category == CategoryEntertainment
}

// RequiresAddress reports whether the category demands a non-empty address.
func RequiresAddress(category string) bool {
	switch category {
	case CategoryAccommodation, CategoryFoodBeverage, CategorySOS, CategorySightseeing, CategoryEntertainment:
		return true
	}
	return false
}
