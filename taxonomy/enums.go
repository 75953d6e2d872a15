package taxonomy

import (
	"context"

	"github.com/jrsteele09/go-catalogue-editor/catalogue"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// EnumNames are the flat value lists served at /{name}/v1.
var EnumNames = []string{
	"event_modes",
	"event_status",
	"application_areas",
	"industrial_sectors",
	"research_areas",
	"scientific_domains",
	"publication_types",
	"edu_access_modes",
	"edu_educational_levels",
	"edu_paces",
	"edu_prerequisites",
	"edu_target_audiences",
	"educational_resource_types",
	"languages",
}

// FetchEnum returns the values of one enum. Failures are logged and read as an empty list.
func (s *Service) FetchEnum(ctx context.Context, name string) []string {
	values, err := catalogue.Fetch[[]string](ctx, s.client, "/"+name+"/v1", "", catalogue.Options{
		Revalidate: s.revalidate,
	})
	if err != nil {
		log.Error().Err(err).Str("enum", name).Msg("failed to fetch enum")
		return []string{}
	}
	if values == nil {
		return []string{}
	}
	return values
}

// FetchAllEnums loads every enum concurrently. Every name is present in the result.
func (s *Service) FetchAllEnums(ctx context.Context) map[string][]string {
	values := make([][]string, len(EnumNames))
	var g errgroup.Group
	for i, name := range EnumNames {
		g.Go(func() error {
			values[i] = s.FetchEnum(ctx, name)
			return nil
		})
	}
	_ = g.Wait() // FetchEnum absorbs failures

	out := make(map[string][]string, len(EnumNames))
	for i, name := range EnumNames {
		out[name] = values[i]
	}
	return out
}
