package availability

import (
	"fmt"
	"sort"

	"github.com/nehallsharma/roaster-management/internal/domain/entities"
)

// DaySchedule is one provider-date's slots normalized and resolved once, so
// each cell lookup is a single map access.
type DaySchedule struct {
	date  string
	slots map[string]entities.ResolvedSlot
}

// TimedSlot is a resolved slot at a canonical time label
type TimedSlot struct {
	Time string `json:"time"`
	entities.ResolvedSlot
}

// CompileDay normalizes every slot of the availability record. Collections are
// visited in precedence order and the first category to claim a time keeps it,
// so malformed input with overlapping collections still resolves
// deterministically. A nil record compiles to an empty schedule.
func CompileDay(a *entities.Availability) (*DaySchedule, error) {
	day := &DaySchedule{slots: make(map[string]entities.ResolvedSlot)}
	if a == nil {
		return day, nil
	}
	day.date = a.Date

	for _, blocked := range a.BlockedSlots {
		label, err := NormalizeTimeLabel(string(blocked.Slot))
		if err != nil {
			return nil, fmt.Errorf("availability %s blocked slot: %w", a.Date, err)
		}
		if _, taken := day.slots[label]; taken {
			continue
		}
		day.slots[label] = entities.ResolvedSlot{
			Category: entities.SlotCategoryBlocked,
			Reason:   blocked.Reason,
			IsUnwell: blocked.Reason == entities.ReasonUnwell,
		}
	}

	for _, category := range entities.SlotCategoriesByPrecedence {
		for _, slot := range a.SlotsFor(category) {
			label, err := NormalizeTimeLabel(string(slot))
			if err != nil {
				return nil, fmt.Errorf("availability %s %s slot: %w", a.Date, category, err)
			}
			if _, taken := day.slots[label]; taken {
				continue
			}
			day.slots[label] = entities.ResolvedSlot{Category: category}
		}
	}
	return day, nil
}

// Date returns the date of the compiled record, empty for a nil record.
func (d *DaySchedule) Date() string {
	return d.date
}

// Classify resolves the category of a single time label.
func (d *DaySchedule) Classify(timeLabel string) (entities.ResolvedSlot, error) {
	label, err := NormalizeTimeLabel(timeLabel)
	if err != nil {
		return entities.ResolvedSlot{}, err
	}
	if slot, ok := d.slots[label]; ok {
		return slot, nil
	}
	return entities.DefaultSlot, nil
}

// Entries returns every non-default slot ordered by time.
func (d *DaySchedule) Entries() []TimedSlot {
	entries := make([]TimedSlot, 0, len(d.slots))
	for label, slot := range d.slots {
		entries = append(entries, TimedSlot{Time: label, ResolvedSlot: slot})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Time < entries[j].Time })
	return entries
}

// Classify resolves the display category of one cell. A nil availability
// means no data for the date and always resolves to default.
func Classify(a *entities.Availability, timeLabel string) (entities.ResolvedSlot, error) {
	if a == nil {
		return entities.DefaultSlot, nil
	}
	day, err := CompileDay(a)
	if err != nil {
		return entities.ResolvedSlot{}, err
	}
	return day.Classify(timeLabel)
}

// FindAvailability returns the provider's record for date, or nil. When the
// dataset repeats a date the first record wins.
func FindAvailability(p *entities.Provider, date string) *entities.Availability {
	for i := range p.Availabilities {
		if p.Availabilities[i].Date == date {
			return &p.Availabilities[i]
		}
	}
	return nil
}

// ClassifyProviderDay resolves every label of a grid for one provider and date.
// This is the list view path: one provider's grid, no shared index.
func ClassifyProviderDay(p *entities.Provider, date string, labels []string) ([]TimedSlot, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	day, err := CompileDay(FindAvailability(p, date))
	if err != nil {
		return nil, err
	}

	cells := make([]TimedSlot, 0, len(labels))
	for _, label := range labels {
		slot, err := day.Classify(label)
		if err != nil {
			return nil, err
		}
		canonical, _ := NormalizeTimeLabel(label)
		cells = append(cells, TimedSlot{Time: canonical, ResolvedSlot: slot})
	}
	return cells, nil
}
