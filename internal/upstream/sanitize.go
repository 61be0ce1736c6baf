package upstream

import "strings"

// sanitizer escapes the characters that enable stored XSS when user-entered
// text is later rendered without encoding.
var sanitizer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

func sanitizeString(s string) string {
	return sanitizer.Replace(s)
}

// sanitizeItem escapes the free-text fields of an item before it is sent.
// Structured fields (image data URL, location JSON, ticket and price-range
// JSON) are machine-generated and left intact; escaping their quotes would
// corrupt them.
func sanitizeItem(item Item) Item {
	item.Name = sanitizeString(item.Name)
	item.Address = sanitizeString(item.Address)
	item.Description = sanitizeString(item.Description)
	item.Price = sanitizeString(item.Price)
	item.Time = sanitizeString(item.Time)
	item.Date = sanitizeString(item.Date)
	item.Category = sanitizeString(item.Category)
	item.Type = sanitizeString(item.Type)
	return item
}
