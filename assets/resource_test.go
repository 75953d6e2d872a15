package assets_test

import (
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-catalogue-editor/assets"
	"github.com/stretchr/testify/require"
)

func TestResource_KeepsUnknownFields(t *testing.T) {
	raw := `{
		"identifier": 42,
		"name": "AI Summit",
		"mode": "online",
		"start_date": "2026-05-01T09:00:00Z",
		"aiod_entry": {"editor": [7], "status": "draft"},
		"keyword": ["ai"],
		"has_part": [1, "2"]
	}`

	var r assets.Resource
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	require.Equal(t, assets.Identifier("42"), r.Identifier)
	require.Equal(t, assets.StatusDraft, r.Status())
	require.Equal(t, "online", r.ExtraString("mode"))
	require.Equal(t, []assets.Identifier{"1", "2"}, r.HasPart)
	require.NotContains(t, r.Extra, "name")

	out, err := json.Marshal(r)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"identifier": 42,
		"name": "AI Summit",
		"mode": "online",
		"start_date": "2026-05-01T09:00:00Z",
		"aiod_entry": {"editor": [7], "status": "draft"},
		"keyword": ["ai"],
		"has_part": [1, 2]
	}`, string(out))
}

func TestResource_TypedFieldsWinOverExtra(t *testing.T) {
	r := assets.Resource{Name: "typed"}
	require.NoError(t, r.SetExtra("name", "stale"))
	require.NoError(t, r.SetExtra("headline", "Breaking"))

	out, err := json.Marshal(r)
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"typed","headline":"Breaking"}`, string(out))

	require.NoError(t, r.SetExtra("headline", nil))
	require.Empty(t, r.ExtraString("headline"))
}

func TestMarshalForUpdate_StripsAIoDEntry(t *testing.T) {
	r := assets.Resource{
		Identifier: "9",
		Name:       "Dataset",
		AIoDEntry:  &assets.AIoDEntry{Status: assets.StatusPublished},
	}
	require.NoError(t, r.SetExtra("aiod_entry", map[string]string{"status": "published"}))

	out, err := assets.MarshalForUpdate(r)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(out, &fields))
	require.NotContains(t, fields, "aiod_entry")
	require.Equal(t, "Dataset", fields["name"])
	require.NotNil(t, r.AIoDEntry, "caller's copy is untouched")
}
