package assets

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
)

// ReviewStatus is the backend review workflow state held in aiod_entry.
type ReviewStatus string

const (
	StatusDraft     ReviewStatus = "draft"
	StatusSubmitted ReviewStatus = "submitted"
	StatusPublished ReviewStatus = "published"
	StatusRejected  ReviewStatus = "rejected"
)

// AIoDEntry is server-owned metadata; the editor reads it but never sends it.
type AIoDEntry struct {
	Editor       []Identifier `json:"editor,omitempty"`
	Status       ReviewStatus `json:"status,omitempty"`
	DateCreated  string       `json:"date_created,omitempty"`
	DateModified string       `json:"date_modified,omitempty"`
}

// Content is the plain/HTML text pair used for descriptions and bodies.
type Content struct {
	Plain string `json:"plain,omitempty"`
	HTML  string `json:"html,omitempty"`
}

type Address struct {
	Region     string `json:"region,omitempty"`
	Locality   string `json:"locality,omitempty"`
	Street     string `json:"street,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Address    string `json:"address,omitempty"`
	Country    string `json:"country,omitempty"`
}

type Geo struct {
	Latitude             float64 `json:"latitude"`
	Longitude            float64 `json:"longitude"`
	ElevationMillimeters *int64  `json:"elevation_millimeters,omitempty"`
}

type Location struct {
	Address *Address `json:"address,omitempty"`
	Geo     *Geo     `json:"geo,omitempty"`
}

// Media also describes publication distributions, which share its shape.
type Media struct {
	Platform                   string `json:"platform,omitempty"`
	PlatformResourceIdentifier string `json:"platform_resource_identifier,omitempty"`
	Checksum                   string `json:"checksum,omitempty"`
	ChecksumAlgorithm          string `json:"checksum_algorithm,omitempty"`
	Copyright                  string `json:"copyright,omitempty"`
	ContentURL                 string `json:"content_url"`
	ContentSizeKB              *int64 `json:"content_size_kb,omitempty"`
	DatePublished              string `json:"date_published,omitempty"`
	Description                string `json:"description,omitempty"`
	EncodingFormat             string `json:"encoding_format,omitempty"`
	Name                       string `json:"name,omitempty"`
	TechnologyReadinessLevel   *int   `json:"technology_readiness_level,omitempty"`
}

// Resource is one catalogue record of any kind. Fields shared by every kind are
// typed; kind-specific fields stay in Extra so they round-trip untouched.
type Resource struct {
	Identifier                 Identifier   `json:"identifier,omitempty"`
	Platform                   string       `json:"platform,omitempty"`
	PlatformResourceIdentifier string       `json:"platform_resource_identifier,omitempty"`
	Name                       string       `json:"name"`
	DatePublished              string       `json:"date_published,omitempty"`
	DateDeleted                string       `json:"date_deleted,omitempty"`
	SameAs                     string       `json:"same_as,omitempty"`
	AIoDEntry                  *AIoDEntry   `json:"aiod_entry,omitempty"`
	AlternateName              []string     `json:"alternate_name,omitempty"`
	ApplicationArea            []string     `json:"application_area,omitempty"`
	Contact                    []Identifier `json:"contact,omitempty"`
	Content                    *Content     `json:"content,omitempty"`
	Creator                    []Identifier `json:"creator,omitempty"`
	Description                *Content     `json:"description,omitempty"`
	HasPart                    []Identifier `json:"has_part,omitempty"`
	IndustrialSector           []string     `json:"industrial_sector,omitempty"`
	IsPartOf                   []Identifier `json:"is_part_of,omitempty"`
	Keyword                    []string     `json:"keyword,omitempty"`
	Location                   []Location   `json:"location,omitempty"`
	Media                      []Media      `json:"media,omitempty"`
	Note                       []string     `json:"note,omitempty"`
	RelevantLink               []string     `json:"relevant_link,omitempty"`
	RelevantResource           []Identifier `json:"relevant_resource,omitempty"`
	RelevantTo                 []Identifier `json:"relevant_to,omitempty"`
	ResearchArea               []string     `json:"research_area,omitempty"`
	ScientificDomain           []string     `json:"scientific_domain,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Status returns the review state, or "" when the backend has not sent one.
func (r Resource) Status() ReviewStatus {
	if r.AIoDEntry == nil {
		return ""
	}
	return r.AIoDEntry.Status
}

// ExtraString reads a kind-specific string field. Missing or non-string values read as "".
func (r Resource) ExtraString(key string) string {
	raw, ok := r.Extra[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// SetExtra stores v under key; a nil v removes the key.
func (r *Resource) SetExtra(key string, v any) error {
	if v == nil {
		delete(r.Extra, key)
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if r.Extra == nil {
		r.Extra = map[string]json.RawMessage{}
	}
	r.Extra[key] = b
	return nil
}

// type alias without methods so the standard encoder handles the typed fields
type resourceFields Resource

func (r Resource) MarshalJSON() ([]byte, error) {
	typed, err := json.Marshal(resourceFields(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return typed, nil
	}
	merged := make(map[string]json.RawMessage, len(r.Extra)+8)
	for k, v := range r.Extra {
		if _, known := knownKeys()[k]; !known {
			merged[k] = v
		}
	}
	if err := json.Unmarshal(typed, &merged); err != nil {
		return nil, err
	}
	return json.Marshal(merged)
}

func (r *Resource) UnmarshalJSON(b []byte) error {
	var typed resourceFields
	if err := json.Unmarshal(b, &typed); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	known := knownKeys()
	for k := range all {
		if _, ok := known[k]; ok {
			delete(all, k)
		}
	}
	if len(all) == 0 {
		all = nil
	}
	*r = Resource(typed)
	r.Extra = all
	return nil
}

var (
	knownKeysOnce sync.Once
	knownKeysSet  map[string]struct{}
)

func knownKeys() map[string]struct{} {
	knownKeysOnce.Do(func() {
		knownKeysSet = map[string]struct{}{}
		rt := reflect.TypeOf(resourceFields{})
		for i := range rt.NumField() {
			tag := rt.Field(i).Tag.Get("json")
			name, _, _ := strings.Cut(tag, ",")
			if name != "" && name != "-" {
				knownKeysSet[name] = struct{}{}
			}
		}
	})
	return knownKeysSet
}

// Contact is a person or organisation reachable for a resource.
type Contact struct {
	Identifier   Identifier  `json:"identifier,omitempty"`
	Name         string      `json:"name,omitempty"`
	Email        []string    `json:"email,omitempty"`
	Telephone    []string    `json:"telephone,omitempty"`
	Location     []Location  `json:"location,omitempty"`
	Person       *Identifier `json:"person,omitempty"`
	Organisation *Identifier `json:"organisation,omitempty"`
	AIoDEntry    *AIoDEntry  `json:"aiod_entry,omitempty"`
}
