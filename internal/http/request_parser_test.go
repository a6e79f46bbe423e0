package http

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"kassenbuch/internal/core"
)

func TestEntryUpdateRequest_CategoryPresence(t *testing.T) {
	tests := []struct {
		name         string
		payload      string
		wantSet      bool
		wantCategory *int64
	}{
		{"absent key leaves category alone", `{}`, false, nil},
		{"explicit null clears category", `{"category_id": null}`, true, nil},
		{"value sets category", `{"category_id": 7}`, true, ptrInt64(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req entryUpdateRequest
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &req))

			upd, err := req.toUpdate()
			require.NoError(t, err)
			require.Equal(t, tt.wantSet, upd.SetCategory)
			require.Equal(t, tt.wantCategory, upd.CategoryID)
		})
	}
}

func TestEntryUpdateRequest_NotesPresence(t *testing.T) {
	var req entryUpdateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"notes": null}`), &req))
	upd, err := req.toUpdate()
	require.NoError(t, err)
	require.True(t, upd.SetNotes)
	require.Nil(t, upd.Notes)

	req = entryUpdateRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"notes": "paid in cash"}`), &req))
	upd, err = req.toUpdate()
	require.NoError(t, err)
	require.True(t, upd.SetNotes)
	require.NotNil(t, upd.Notes)
	require.Equal(t, "paid in cash", *upd.Notes)
}

func TestEntryUpdateRequest_ProjectReplacement(t *testing.T) {
	var req entryUpdateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"project_ids": []}`), &req))
	upd, err := req.toUpdate()
	require.NoError(t, err)
	require.True(t, upd.SetProjects)
	require.Empty(t, upd.ProjectIDs)

	req = entryUpdateRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{}`), &req))
	upd, err = req.toUpdate()
	require.NoError(t, err)
	require.False(t, upd.SetProjects)
}

func TestEntryUpdateRequest_RejectsInvalidFields(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"bad date", `{"date": "garbage"}`},
		{"empty description", `{"description": "   "}`},
		{"negative amount", `{"amount": "-10"}`},
		{"bad type", `{"entry_type": "transfer"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req entryUpdateRequest
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &req))
			_, err := req.toUpdate()
			require.Error(t, err)
		})
	}
}

func TestEntryCreateRequest_TrimsDescription(t *testing.T) {
	var req entryCreateRequest
	payload := `{"date":"2024-06-01","description":"  Desk lamp  ","amount":"30","entry_type":"expense"}`
	require.NoError(t, json.Unmarshal([]byte(payload), &req))

	entry, err := req.toEntry()
	require.NoError(t, err)
	require.Equal(t, "Desk lamp", entry.Description)
}

func TestParseEntryFilter(t *testing.T) {
	query := url.Values{}
	query.Set("category_id", "3")
	query.Set("project_id", "5")
	query.Set("entry_type", "income")
	query.Set("date_from", "2024-01-01")
	query.Set("date_to", "2024-12-31")

	filter, err := parseEntryFilter(query)
	require.NoError(t, err)
	require.Equal(t, int64(3), *filter.CategoryID)
	require.Equal(t, int64(5), *filter.ProjectID)
	require.Equal(t, core.Income, *filter.Type)
	require.Equal(t, "2024-01-01", filter.DateFrom.String())
	require.Equal(t, "2024-12-31", filter.DateTo.String())

	empty, err := parseEntryFilter(url.Values{})
	require.NoError(t, err)
	require.Nil(t, empty.CategoryID)
	require.Nil(t, empty.ProjectID)
	require.Nil(t, empty.Type)
	require.Nil(t, empty.DateFrom)
	require.Nil(t, empty.DateTo)

	for _, bad := range []url.Values{
		{"category_id": {"abc"}},
		{"entry_type": {"transfer"}},
		{"date_from": {"2024-13-99"}},
	} {
		_, err := parseEntryFilter(bad)
		require.Error(t, err, "query: %v", bad)
	}
}

func ptrInt64(v int64) *int64 {
	return &v
}
