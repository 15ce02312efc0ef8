package availability

import (
	"testing"

	"github.com/nehallsharma/roaster-management/internal/domain/entities"
	apperrors "github.com/nehallsharma/roaster-management/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIndex_LaterProviderWinsCollision(t *testing.T) {
	providers := []*entities.Provider{
		{ID: "p1", Name: "First", Availabilities: []entities.Availability{
			{Date: "2024-02-05", BothSlots: []entities.SlotTime{"14:00"}},
		}},
		{ID: "p2", Name: "Second", Availabilities: []entities.Availability{
			{Date: "2024-02-05", BothSlots: []entities.SlotTime{"14"}},
		}},
	}

	idx, err := BuildIndex(providers)
	require.NoError(t, err)

	entry, ok := idx.Lookup("2024-02-05", "14:00")
	require.True(t, ok)
	assert.Equal(t, "p2", entry.ProviderID)
	assert.Equal(t, "Second (both)", entry.Title)
}

func TestBuildIndex_EntriesCarryCategoryAndTitle(t *testing.T) {
	providers := []*entities.Provider{
		{ID: "a", Name: "Dr. A", Availabilities: []entities.Availability{{
			Date:              "2024-02-05",
			OnlineBookedSlots: []entities.SlotTime{"9"},
			BlockedSlots:      []entities.BlockedSlot{{Slot: "11", Reason: "unwell"}},
		}}},
	}

	idx, err := BuildIndex(providers)
	require.NoError(t, err)

	assert.Equal(t, entities.IndexEntry{
		ProviderID:   "a",
		ProviderName: "Dr. A",
		Category:     entities.SlotCategoryOnlineBooked,
		Title:        "Dr. A (online Booked)",
	}, idx["2024-02-05"]["09:00"])

	assert.Equal(t, entities.IndexEntry{
		ProviderID:   "a",
		ProviderName: "Dr. A",
		Category:     entities.SlotCategoryBlocked,
		Reason:       "unwell",
		IsUnwell:     true,
		Title:        "Dr. A (Blocked: unwell)",
	}, idx["2024-02-05"]["11:00"])

	_, ok := idx.Lookup("2024-02-05", "10:00")
	assert.False(t, ok)
	_, ok = idx.Lookup("2024-02-05", "garbage")
	assert.False(t, ok)
}

func TestBuildIndex_RepeatedDateUsesFirstRecord(t *testing.T) {
	providers := []*entities.Provider{
		{Name: "Dr. A", Availabilities: []entities.Availability{
			{Date: "2024-02-05", OnlineSlots: []entities.SlotTime{"9"}},
			{Date: "2024-02-05", OfflineSlots: []entities.SlotTime{"9", "10"}},
		}},
	}

	idx, err := BuildIndex(providers)
	require.NoError(t, err)

	assert.Equal(t, entities.SlotCategoryOnline, idx["2024-02-05"]["09:00"].Category)
	assert.NotContains(t, idx["2024-02-05"], "10:00")
}

func TestBuildIndex_EmptyInputs(t *testing.T) {
	idx, err := BuildIndex(nil)
	require.NoError(t, err)
	assert.Empty(t, idx)

	idx, err = BuildIndex([]*entities.Provider{
		nil,
		{Name: "Idle", Availabilities: []entities.Availability{{Date: "2024-02-05"}}},
	})
	require.NoError(t, err)
	assert.NotContains(t, idx, "2024-02-05")
}

func TestBuildIndex_Errors(t *testing.T) {
	_, err := BuildIndex([]*entities.Provider{{Name: "No data"}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeMissingRequiredField))

	_, err = BuildIndex([]*entities.Provider{{Name: "Bad", Availabilities: []entities.Availability{
		{Date: "2024-02-05", OnlineSlots: []entities.SlotTime{"9:5"}},
	}}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeMalformedTimeLabel))
	assert.Contains(t, err.Error(), `"Bad"`)
}

func TestBuildIndexAt_BucketsByGranularity(t *testing.T) {
	providers := []*entities.Provider{
		{ID: "a", Name: "Dr. A", Availabilities: []entities.Availability{{
			Date:               "2024-02-05",
			OnlineSlots:        []entities.SlotTime{"10:00"},
			OfflineBookedSlots: []entities.SlotTime{"10:15"},
			OfflineSlots:       []entities.SlotTime{"11:45"},
		}}},
	}

	idx, err := BuildIndexAt(providers, CalendarGranularity)
	require.NoError(t, err)

	assert.Equal(t, entities.SlotCategoryOfflineBooked, idx["2024-02-05"]["10:00"].Category)
	assert.Equal(t, entities.SlotCategoryOffline, idx["2024-02-05"]["11:00"].Category)
	assert.Len(t, idx["2024-02-05"], 2)

	_, err = BuildIndexAt(providers, 45)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidGranularity))
}

func TestRestrict(t *testing.T) {
	idx := AvailabilityIndex{
		"2024-02-05": {"09:00": {ProviderName: "Dr. A"}},
		"2024-03-01": {"10:00": {ProviderName: "Dr. B"}},
	}

	week := idx.Restrict([]string{"2024-02-04", "2024-02-05"})
	assert.Len(t, week, 2)
	assert.Empty(t, week["2024-02-04"])
	assert.Equal(t, "Dr. A", week["2024-02-05"]["09:00"].ProviderName)

	week["2024-02-05"]["09:00"] = entities.IndexEntry{ProviderName: "changed"}
	assert.Equal(t, "Dr. A", idx["2024-02-05"]["09:00"].ProviderName)
}

func TestEndToEndSingleProvider(t *testing.T) {
	providers := []*entities.Provider{{
		Name:             "Dr. A",
		ProviderUsertype: "Doctor",
		IsInhouse:        true,
		ClinicDetails:    entities.ClinicDetails{Name: "Central"},
		Availabilities: []entities.Availability{{
			Date:         "2024-02-05",
			OnlineSlots:  []entities.SlotTime{"9", "10"},
			BlockedSlots: []entities.BlockedSlot{{Slot: "11", Reason: "unwell"}},
		}},
	}}

	filtered := FilterProviders(providers, "", entities.ProviderFilter{Type: entities.ProviderTypeInHouse})
	require.Len(t, filtered, 1)
	assert.Same(t, providers[0], filtered[0])

	day := &providers[0].Availabilities[0]

	got, err := Classify(day, "09:00")
	require.NoError(t, err)
	assert.Equal(t, entities.ResolvedSlot{Category: entities.SlotCategoryOnline}, got)

	got, err = Classify(day, "11:00")
	require.NoError(t, err)
	assert.Equal(t, entities.ResolvedSlot{Category: entities.SlotCategoryBlocked, Reason: "unwell", IsUnwell: true}, got)

	got, err = Classify(day, "12:00")
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultSlot, got)

	idx, err := BuildIndexAt(filtered, CalendarGranularity)
	require.NoError(t, err)
	assert.Len(t, idx["2024-02-05"], 3)
	assert.Equal(t, "Dr. A (online)", idx["2024-02-05"]["10:00"].Title)
}
