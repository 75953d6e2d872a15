package assets_test

import (
	"strings"
	"testing"

	"github.com/jrsteele09/go-catalogue-editor/assets"
	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/stretchr/testify/require"
)

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var verr *assets.ValidationError
	require.ErrorAs(t, err, &verr)
	require.ErrorIs(t, err, apperrors.ErrValidation)
	names := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		names = append(names, f.Field)
	}
	return names
}

func withExtra(t *testing.T, r assets.Resource, kv ...string) assets.Resource {
	t.Helper()
	for i := 0; i+1 < len(kv); i += 2 {
		require.NoError(t, r.SetExtra(kv[i], kv[i+1]))
	}
	return r
}

func TestValidate(t *testing.T) {
	trl := 12

	tests := []struct {
		name     string
		typ      assets.Type
		resource assets.Resource
		fields   []string
	}{
		{
			name:     "valid dataset",
			typ:      assets.Datasets,
			resource: assets.Resource{Name: "Iris"},
		},
		{
			name:     "name too short",
			typ:      assets.Datasets,
			resource: assets.Resource{Name: "x"},
			fields:   []string{"name"},
		},
		{
			name:     "name too long",
			typ:      assets.Projects,
			resource: assets.Resource{Name: strings.Repeat("n", 257)},
			fields:   []string{"name"},
		},
		{
			name:     "news needs headline and content",
			typ:      assets.News,
			resource: assets.Resource{Name: "Release"},
			fields:   []string{"headline", "content.plain"},
		},
		{
			name: "valid news",
			typ:  assets.News,
			resource: withExtra(t, assets.Resource{
				Name:    "Release",
				Content: &assets.Content{Plain: "Body"},
			}, "headline", "We shipped"),
		},
		{
			name:     "event needs mode",
			typ:      assets.Events,
			resource: assets.Resource{Name: "Summit"},
			fields:   []string{"mode"},
		},
		{
			name:     "publication identifiers",
			typ:      assets.Publications,
			resource: withExtra(t, assets.Resource{Name: "Paper"}, "isbn", "123", "issn", "1234"),
			fields:   []string{"isbn", "issn"},
		},
		{
			name:     "publication empty identifiers allowed",
			typ:      assets.Publications,
			resource: withExtra(t, assets.Resource{Name: "Paper"}, "isbn", "", "issn", ""),
		},
		{
			name: "nested rules",
			typ:  assets.Datasets,
			resource: assets.Resource{
				Name:     "Data",
				Note:     []string{strings.Repeat("a", 8001)},
				Location: []assets.Location{{Address: &assets.Address{Country: "DE"}}},
				Media:    []assets.Media{{TechnologyReadinessLevel: &trl}},
			},
			fields: []string{"note[0]", "location[0].address.country", "media[0].content_url", "media[0].technology_readiness_level"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assets.Validate(tt.typ, tt.resource)
			if len(tt.fields) == 0 {
				require.NoError(t, err)
				return
			}
			require.ElementsMatch(t, tt.fields, fieldNames(t, err))
		})
	}
}
