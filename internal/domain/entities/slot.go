package entities

import (
	"strings"
	"unicode"
)

// SlotCategory is the resolved display status of a time cell
type SlotCategory string

const (
	SlotCategoryBlocked       SlotCategory = "blocked"
	SlotCategoryOnlineBooked  SlotCategory = "onlineBooked"
	SlotCategoryOfflineBooked SlotCategory = "offlineBooked"
	SlotCategoryBoth          SlotCategory = "both"
	SlotCategoryOnline        SlotCategory = "online"
	SlotCategoryOffline       SlotCategory = "offline"
	SlotCategoryDefault       SlotCategory = "default"
)

// SlotCategoriesByPrecedence lists every category, highest precedence first.
// The first collection containing a time decides its category.
var SlotCategoriesByPrecedence = []SlotCategory{
	SlotCategoryBlocked,
	SlotCategoryOnlineBooked,
	SlotCategoryOfflineBooked,
	SlotCategoryBoth,
	SlotCategoryOnline,
	SlotCategoryOffline,
	SlotCategoryDefault,
}

// Rank returns the category's position in SlotCategoriesByPrecedence (0 is
// highest). Unknown categories rank below default.
func (c SlotCategory) Rank() int {
	for i, cat := range SlotCategoriesByPrecedence {
		if cat == c {
			return i
		}
	}
	return len(SlotCategoriesByPrecedence)
}

// Outranks reports whether c takes precedence over other.
func (c SlotCategory) Outranks(other SlotCategory) bool {
	return c.Rank() < other.Rank()
}

// Valid reports whether c is one of the known categories.
func (c SlotCategory) Valid() bool {
	return c.Rank() < len(SlotCategoriesByPrecedence)
}

// Label splits the camel-case name into words ("onlineBooked" -> "online Booked").
func (c SlotCategory) Label() string {
	var b strings.Builder
	for _, r := range string(c) {
		if unicode.IsUpper(r) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var slotColors = map[SlotCategory]string{
	SlotCategoryBlocked:       "#F4B6B6",
	SlotCategoryOnlineBooked:  "#8FB8F2",
	SlotCategoryOfflineBooked: "#F2C98F",
	SlotCategoryBoth:          "#B7E4C7",
	SlotCategoryOnline:        "#D6E6FB",
	SlotCategoryOffline:       "#FBEBD6",
}

// defaultSlotColor also covers unknown categories
const defaultSlotColor = "#F7F7F7"

// Color is the category's legend colour
func (c SlotCategory) Color() string {
	if color, ok := slotColors[c]; ok {
		return color
	}
	return defaultSlotColor
}

// LegendEntry pairs a category with its display label and colour
type LegendEntry struct {
	Category SlotCategory `json:"category"`
	Label    string       `json:"label"`
	Color    string       `json:"color"`
}

// SlotLegend returns one entry per category in precedence order.
func SlotLegend() []LegendEntry {
	legend := make([]LegendEntry, 0, len(SlotCategoriesByPrecedence))
	for _, c := range SlotCategoriesByPrecedence {
		legend = append(legend, LegendEntry{Category: c, Label: c.Label(), Color: c.Color()})
	}
	return legend
}

// ResolvedSlot is the outcome of classifying one (provider, date, time) cell
type ResolvedSlot struct {
	Category SlotCategory `json:"category"`
	Reason   string       `json:"reason,omitempty"`
	IsUnwell bool         `json:"is_unwell,omitempty"`
}

// DefaultSlot is the resolution for a time with no data.
var DefaultSlot = ResolvedSlot{Category: SlotCategoryDefault}

// IndexEntry is a calendar cell owned by a single provider
type IndexEntry struct {
	ProviderID   string       `json:"provider_id"`
	ProviderName string       `json:"provider_name"`
	Category     SlotCategory `json:"category"`
	Reason       string       `json:"reason,omitempty"`
	IsUnwell     bool         `json:"is_unwell,omitempty"`
	Title        string       `json:"title"`
}
