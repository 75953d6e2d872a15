package taxonomy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/go-catalogue-editor/catalogue"
	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Type names a controlled vocabulary served by the catalogue.
type Type string

const (
	IndustrialSectors        Type = "industrial_sectors"
	ResearchAreas            Type = "research_areas"
	ScientificDomains        Type = "scientific_domains"
	ApplicationAreas         Type = "application_areas"
	Licenses                 Type = "licenses"
	Countries                Type = "countries"
	Languages                Type = "languages"
	NewsCategories           Type = "news_categories"
	PublicationTypes         Type = "publication_types"
	EventModes               Type = "event_modes"
	EventStatus              Type = "event_status"
	EducationalResourceTypes Type = "educational_resource_types"
	EduAccessModes           Type = "edu_access_modes"
	EduEducationalLevels     Type = "edu_educational_levels"
	EduPaces                 Type = "edu_paces"
	EduPrerequisites         Type = "edu_prerequisites"
	EduTargetAudiences       Type = "edu_target_audiences"
)

var allTypes = []Type{
	IndustrialSectors, ResearchAreas, ScientificDomains, ApplicationAreas, Licenses, Countries,
	Languages, NewsCategories, PublicationTypes, EventModes, EventStatus, EducationalResourceTypes,
	EduAccessModes, EduEducationalLevels, EduPaces, EduPrerequisites, EduTargetAudiences,
}

func AllTypes() []Type {
	return append([]Type(nil), allTypes...)
}

func ParseType(s string) (Type, error) {
	for _, t := range allTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: taxonomy %q", apperrors.ErrUnknownType, s)
}

// Taxonomy is one term and its subtree. Internal terms are selectable too.
type Taxonomy struct {
	Term       string     `json:"term"`
	Definition string     `json:"definition"`
	Subterms   []Taxonomy `json:"subterms"`
}

// Entry is a term with the chain of ancestor terms above it.
type Entry struct {
	Term       string   `json:"term"`
	Definition string   `json:"definition"`
	Path       []string `json:"path"`
	Subterms   []Entry  `json:"subterms"`
}

func (e Entry) String() string { return e.Term }

// Entries converts a forest into entries carrying ancestor paths.
func Entries(forest []Taxonomy) []Entry {
	return entries(forest, nil)
}

func entries(forest []Taxonomy, path []string) []Entry {
	out := make([]Entry, 0, len(forest))
	for _, t := range forest {
		childPath := append(append([]string(nil), path...), t.Term)
		out = append(out, Entry{
			Term:       t.Term,
			Definition: t.Definition,
			Path:       append([]string(nil), path...),
			Subterms:   entries(t.Subterms, childPath),
		})
	}
	return out
}

// Find returns the first term matching term case-insensitively, depth first.
func Find(forest []Entry, term string) (Entry, bool) {
	for _, e := range forest {
		if strings.EqualFold(e.Term, term) {
			return e, true
		}
		if found, ok := Find(e.Subterms, term); ok {
			return found, true
		}
	}
	return Entry{}, false
}

// Service reads taxonomies anonymously. Responses are cached for the revalidate window.
type Service struct {
	client     *catalogue.Client
	revalidate time.Duration
}

func NewService(client *catalogue.Client, revalidate time.Duration) *Service {
	if revalidate <= 0 {
		revalidate = catalogue.TaxonomyRevalidate
	}
	return &Service{client: client, revalidate: revalidate}
}

func (s *Service) Fetch(ctx context.Context, t Type) ([]Taxonomy, error) {
	out, err := catalogue.Fetch[[]Taxonomy](ctx, s.client, "/v2/"+string(t), "", catalogue.Options{
		Revalidate: s.revalidate,
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, "fetch taxonomy %s", t)
	}
	if out == nil {
		out = []Taxonomy{}
	}
	return out, nil
}

// FetchMany loads several taxonomies concurrently; any failure fails the whole set.
func (s *Service) FetchMany(ctx context.Context, types ...Type) (map[Type][]Taxonomy, error) {
	results := make([][]Taxonomy, len(types))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range types {
		g.Go(func() error {
			tax, err := s.Fetch(gctx, t)
			if err != nil {
				return err
			}
			results[i] = tax
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("failed to fetch taxonomies")
		return nil, err
	}

	out := make(map[Type][]Taxonomy, len(types))
	for i, t := range types {
		out[t] = results[i]
	}
	return out, nil
}
