package availability

import (
	"fmt"

	"github.com/nehallsharma/roaster-management/internal/domain/entities"
)

// AvailabilityIndex maps date -> canonical time label -> owning cell.
//
// Only one provider can own a cell. When several providers have a slot at the
// same date and time, the provider later in input order wins. That is enough
// for a calendar showing a single selected provider; it does not render true
// multi-provider overlap.
type AvailabilityIndex map[string]map[string]entities.IndexEntry

// Lookup returns the entry at date and time label, if any.
func (idx AvailabilityIndex) Lookup(date, timeLabel string) (entities.IndexEntry, bool) {
	label, err := NormalizeTimeLabel(timeLabel)
	if err != nil {
		return entities.IndexEntry{}, false
	}
	entry, ok := idx[date][label]
	return entry, ok
}

// Restrict returns the sub-index covering only the given dates. Dates without
// entries map to an empty row so renderers can range over every day.
func (idx AvailabilityIndex) Restrict(dates []string) AvailabilityIndex {
	out := make(AvailabilityIndex, len(dates))
	for _, date := range dates {
		row := make(map[string]entities.IndexEntry, len(idx[date]))
		for label, entry := range idx[date] {
			row[label] = entry
		}
		out[date] = row
	}
	return out
}

// BuildIndex indexes every slot of the providers under its own normalized
// time label.
func BuildIndex(providers []*entities.Provider) (AvailabilityIndex, error) {
	return buildIndex(providers, 0)
}

// BuildIndexAt indexes slots under the start of their granularity bucket, so a
// 10:15 booking lands in the 10:00 cell of an hourly calendar. Slots of one
// provider that share a bucket resolve by category precedence.
func BuildIndexAt(providers []*entities.Provider, granularityMinutes int) (AvailabilityIndex, error) {
	if err := ValidateGranularity(granularityMinutes); err != nil {
		return nil, err
	}
	return buildIndex(providers, granularityMinutes)
}

func buildIndex(providers []*entities.Provider, granularityMinutes int) (AvailabilityIndex, error) {
	index := make(AvailabilityIndex)
	for i, p := range providers {
		if p == nil {
			continue
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("index provider %d: %w", i, err)
		}

		seenDates := make(map[string]bool, len(p.Availabilities))
		for j := range p.Availabilities {
			a := &p.Availabilities[j]
			// Repeated dates: the first record wins, as in FindAvailability.
			if seenDates[a.Date] {
				continue
			}
			seenDates[a.Date] = true

			resolved, err := resolveProviderDay(a, granularityMinutes)
			if err != nil {
				return nil, fmt.Errorf("index provider %q: %w", p.Name, err)
			}
			if len(resolved) == 0 {
				continue
			}

			row := index[a.Date]
			if row == nil {
				row = make(map[string]entities.IndexEntry)
				index[a.Date] = row
			}
			for label, slot := range resolved {
				row[label] = newIndexEntry(p, slot)
			}
		}
	}
	return index, nil
}

// resolveProviderDay compiles one record and, when bucketing, keeps the
// highest-precedence slot per bucket.
func resolveProviderDay(a *entities.Availability, granularityMinutes int) (map[string]entities.ResolvedSlot, error) {
	day, err := CompileDay(a)
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]entities.ResolvedSlot, len(day.slots))
	for _, entry := range day.Entries() {
		label := entry.Time
		if granularityMinutes > 0 {
			if label, err = FloorLabel(entry.Time, granularityMinutes); err != nil {
				return nil, err
			}
		}
		if current, ok := resolved[label]; ok && !entry.Category.Outranks(current.Category) {
			continue
		}
		resolved[label] = entry.ResolvedSlot
	}
	return resolved, nil
}

func newIndexEntry(p *entities.Provider, slot entities.ResolvedSlot) entities.IndexEntry {
	return entities.IndexEntry{
		ProviderID:   p.ID,
		ProviderName: p.Name,
		Category:     slot.Category,
		Reason:       slot.Reason,
		IsUnwell:     slot.IsUnwell,
		Title:        EntryTitle(p.Name, slot),
	}
}

// EntryTitle renders the calendar caption, e.g. "Dr. A (online Booked)" or
// "Dr. A (Blocked: unwell)".
func EntryTitle(providerName string, slot entities.ResolvedSlot) string {
	if slot.Category == entities.SlotCategoryBlocked {
		return fmt.Sprintf("%s (Blocked: %s)", providerName, slot.Reason)
	}
	return fmt.Sprintf("%s (%s)", providerName, slot.Category.Label())
}
