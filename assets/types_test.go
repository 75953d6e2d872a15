package assets_test

import (
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-catalogue-editor/assets"
	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	cases := map[string]assets.Type{
		"datasets":             assets.Datasets,
		"dataset":              assets.Datasets,
		"news":                 assets.News,
		"case_study":           assets.CaseStudies,
		"case_studies":         assets.CaseStudies,
		"Educational_Resource": assets.EducationalResources,
		" ml_models ":          assets.MLModels,
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			got, err := assets.ParseType(in)
			require.NoError(t, err)
			require.Equal(t, want, got)
		})
	}

	_, err := assets.ParseType("spaceships")
	require.ErrorIs(t, err, apperrors.ErrUnknownType)
}

func TestTypeTable(t *testing.T) {
	for _, typ := range assets.AllTypes() {
		info := typ.Info()
		require.NotEmpty(t, info.Tag, typ)
		require.NotEmpty(t, info.PathSegment, typ)
		require.NotEmpty(t, info.Label, typ)
		require.NotEmpty(t, info.SingularLabel, typ)

		parsed, err := assets.ParseType(info.Singular)
		require.NoError(t, err)
		require.Equal(t, typ, parsed)
	}

	require.Len(t, assets.EditableTypes(), 8)
	require.False(t, assets.Persons.Info().Editable)
	require.Equal(t, "News Item", assets.News.Info().SingularLabel)
}

func TestType_JSONMapKey(t *testing.T) {
	b, err := json.Marshal(map[assets.Type]int{assets.Events: 3})
	require.NoError(t, err)
	require.JSONEq(t, `{"events":3}`, string(b))

	var back map[assets.Type]int
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, 3, back[assets.Events])
}
