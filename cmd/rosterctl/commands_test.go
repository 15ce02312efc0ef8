package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLabels(t *testing.T) {
	out, err := run(t, "labels", "--granularity", "30")
	require.NoError(t, err)

	var labels []string
	require.NoError(t, json.Unmarshal([]byte(out), &labels))
	assert.Len(t, labels, 48)
	assert.Equal(t, "00:30", labels[1])
}

func TestLabels_RejectsNonDivisor(t *testing.T) {
	_, err := run(t, "labels", "--granularity", "25")
	assert.Error(t, err)
}

func TestList_FiltersByNameAndCentre(t *testing.T) {
	out, err := run(t, "list", "--date", "2024-02-05", "--q", "a", "--centre", "Bandra Wellness Centre")
	require.NoError(t, err)

	var view struct {
		Providers []struct {
			Provider struct {
				Name string `json:"name"`
			} `json:"provider"`
		} `json:"providers"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	require.Len(t, view.Providers, 2)
	assert.Equal(t, "Dr. Aditi Rao", view.Providers[0].Provider.Name)
	assert.Equal(t, "Natalia Fernandes", view.Providers[1].Provider.Name)
}

func TestList_UnknownType(t *testing.T) {
	_, err := run(t, "list", "--date", "2024-02-05", "--type", "contract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider type")
}

func TestCalendar_ProviderAndOffset(t *testing.T) {
	out, err := run(t, "calendar", "--date", "2024-01-31", "--offset", "1", "--provider", "5")
	require.NoError(t, err)

	var view struct {
		Anchor string `json:"anchor"`
		Cells  map[string]map[string]struct {
			Category string `json:"category"`
		} `json:"cells"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "2024-02-07", view.Anchor)
	assert.Equal(t, "online", view.Cells["2024-02-04"]["20:00"].Category)
	assert.Equal(t, "onlineBooked", view.Cells["2024-02-08"]["21:00"].Category)
}

func TestSuggest_ExcludesSelected(t *testing.T) {
	out, err := run(t, "suggest", "kh", "--exclude", "2")
	require.NoError(t, err)

	var suggestions []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &suggestions))
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Rohan Khalid", suggestions[0].Name)
}

func TestSuggest_RequiresTerm(t *testing.T) {
	_, err := run(t, "suggest")
	assert.Error(t, err)
}

func TestFacets_FromDatasetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"providers": [
		{"id": "a", "name": "Solo", "provider_usertype": "Dietician", "is_inhouse": false,
		 "clinic_details": {"name": "Juhu"}, "availabilities": []}
	]}`), 0o600))

	out, err := run(t, "facets", "--dataset", path)
	require.NoError(t, err)

	var facets struct {
		Services []string `json:"services"`
		Types    []string `json:"types"`
		Centres  []string `json:"centres"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &facets))
	assert.Equal(t, []string{"Dietician"}, facets.Services)
	assert.Equal(t, []string{"External"}, facets.Types)
	assert.Equal(t, []string{"Juhu"}, facets.Centres)
}

func TestFacets_MissingDataset(t *testing.T) {
	_, err := run(t, "facets", "--dataset", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
