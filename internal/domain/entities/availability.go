package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SlotTime is a time-of-day as it appears in the dataset: a bare hour ("9"),
// an "HH:MM" string, or a JSON number. It is normalized before any lookup.
type SlotTime string

// UnmarshalJSON accepts both JSON strings and JSON numbers.
func (t *SlotTime) UnmarshalJSON(data []byte) error {
	s, err := decodeScalar(data)
	if err != nil {
		return fmt.Errorf("slot time: %w", err)
	}
	*t = SlotTime(s)
	return nil
}

// decodeScalar reads a JSON string or number as its textual form.
func decodeScalar(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", fmt.Errorf("must be a string or number, got %s", string(data))
	}
	return n.String(), nil
}

// BlockedSlot is a time the provider is unavailable for a stated reason
type BlockedSlot struct {
	Slot   SlotTime `json:"slot"`
	Reason string   `json:"reason"`
}

// ReasonUnwell is the blocked reason rendered with the sick-leave style.
const ReasonUnwell = "unwell"

// Availability holds a provider's category-tagged slot collections for one date
type Availability struct {
	Date               string        `json:"date"`
	OnlineSlots        []SlotTime    `json:"online_slots,omitempty"`
	OfflineSlots       []SlotTime    `json:"offline_slots,omitempty"`
	BothSlots          []SlotTime    `json:"both_slots,omitempty"`
	OnlineBookedSlots  []SlotTime    `json:"online_booked_slots,omitempty"`
	OfflineBookedSlots []SlotTime    `json:"offline_booked_slots,omitempty"`
	BlockedSlots       []BlockedSlot `json:"blocked_slots,omitempty"`
}

// SlotsFor returns the plain slot collection tagged with category c. Blocked
// and default have no plain collection and return nil.
func (a *Availability) SlotsFor(c SlotCategory) []SlotTime {
	switch c {
	case SlotCategoryOnlineBooked:
		return a.OnlineBookedSlots
	case SlotCategoryOfflineBooked:
		return a.OfflineBookedSlots
	case SlotCategoryBoth:
		return a.BothSlots
	case SlotCategoryOnline:
		return a.OnlineSlots
	case SlotCategoryOffline:
		return a.OfflineSlots
	}
	return nil
}

// Clone returns a deep copy of the availability record.
func (a Availability) Clone() Availability {
	c := a
	c.OnlineSlots = cloneSlots(a.OnlineSlots)
	c.OfflineSlots = cloneSlots(a.OfflineSlots)
	c.BothSlots = cloneSlots(a.BothSlots)
	c.OnlineBookedSlots = cloneSlots(a.OnlineBookedSlots)
	c.OfflineBookedSlots = cloneSlots(a.OfflineBookedSlots)
	if a.BlockedSlots != nil {
		c.BlockedSlots = append([]BlockedSlot(nil), a.BlockedSlots...)
	}
	return c
}

func cloneSlots(in []SlotTime) []SlotTime {
	if in == nil {
		return nil
	}
	return append([]SlotTime(nil), in...)
}
