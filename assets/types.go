package assets

import (
	"fmt"
	"strings"

	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
)

// Type is the closed set of catalogue asset kinds.
type Type int

const (
	Unknown Type = iota
	Datasets
	Events
	Publications
	EducationalResources
	News
	Organisations
	Projects
	CaseStudies
	MLModels
	ComputationalAssets
	Services
	Experiments
	Persons
	Platforms
)

// TypeInfo is the single lookup row for an asset kind.
type TypeInfo struct {
	Tag           string // plural tag used in URLs and /user/resources keys
	Singular      string
	PathSegment   string // backend API noun
	Label         string
	SingularLabel string
	// Editable kinds have an editor form and may be created or updated.
	Editable bool
}

var typeTable = map[Type]TypeInfo{
	Datasets:             {Tag: "datasets", Singular: "dataset", PathSegment: "datasets", Label: "Data Sets", SingularLabel: "Data Set", Editable: true},
	Events:               {Tag: "events", Singular: "event", PathSegment: "events", Label: "Events", SingularLabel: "Event", Editable: true},
	Publications:         {Tag: "publications", Singular: "publication", PathSegment: "publications", Label: "Publications", SingularLabel: "Publication", Editable: true},
	EducationalResources: {Tag: "educational_resources", Singular: "educational_resource", PathSegment: "educational_resources", Label: "Educational Resources", SingularLabel: "Educational Resource", Editable: true},
	News:                 {Tag: "news", Singular: "news", PathSegment: "news", Label: "News", SingularLabel: "News Item", Editable: true},
	Organisations:        {Tag: "organisations", Singular: "organisation", PathSegment: "organisations", Label: "Organisations", SingularLabel: "Organisation", Editable: true},
	Projects:             {Tag: "projects", Singular: "project", PathSegment: "projects", Label: "Projects", SingularLabel: "Project", Editable: true},
	CaseStudies:          {Tag: "case_studies", Singular: "case_study", PathSegment: "case_studies", Label: "Case Studies", SingularLabel: "Case Study", Editable: true},
	MLModels:             {Tag: "ml_models", Singular: "ml_model", PathSegment: "ml_models", Label: "ML Models", SingularLabel: "ML Model"},
	ComputationalAssets:  {Tag: "computational_assets", Singular: "computational_asset", PathSegment: "computational_assets", Label: "Computational Assets", SingularLabel: "Computational Asset"},
	Services:             {Tag: "services", Singular: "service", PathSegment: "services", Label: "Services", SingularLabel: "Service"},
	Experiments:          {Tag: "experiments", Singular: "experiment", PathSegment: "experiments", Label: "Experiments", SingularLabel: "Experiment"},
	Persons:              {Tag: "persons", Singular: "person", PathSegment: "persons", Label: "Persons", SingularLabel: "Person"},
	Platforms:            {Tag: "platforms", Singular: "platform", PathSegment: "platforms", Label: "Platforms", SingularLabel: "Platform"},
}

var byTag = func() map[string]Type {
	m := make(map[string]Type, len(typeTable)*2)
	for t, info := range typeTable {
		m[info.Tag] = t
		m[info.Singular] = t
	}
	return m
}()

// AllTypes lists every known kind in display order.
func AllTypes() []Type {
	return []Type{
		Datasets, Events, Publications, EducationalResources, News, Organisations, Projects, CaseStudies,
		MLModels, ComputationalAssets, Services, Experiments, Persons, Platforms,
	}
}

// EditableTypes lists the kinds the editor can create and update.
func EditableTypes() []Type {
	var out []Type
	for _, t := range AllTypes() {
		if t.Info().Editable {
			out = append(out, t)
		}
	}
	return out
}

// ParseType accepts the plural or singular tag, case-insensitively.
func ParseType(s string) (Type, error) {
	if t, ok := byTag[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return Unknown, fmt.Errorf("%w: asset type %q", apperrors.ErrUnknownType, s)
}

func (t Type) Info() TypeInfo {
	return typeTable[t]
}

func (t Type) String() string {
	if info, ok := typeTable[t]; ok {
		return info.Tag
	}
	return "unknown"
}

func (t Type) Valid() bool {
	_, ok := typeTable[t]
	return ok
}

// MarshalText writes the plural tag so Type works as a JSON map key.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: asset type %d", apperrors.ErrUnknownType, int(t))
	}
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
