package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jrsteele09/go-catalogue-editor/catalogue"
	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/jrsteele09/go-catalogue-editor/sessions"
	"github.com/rs/zerolog/log"
)

const (
	DefaultLimit      = 1000
	userResourcesPath = "/user/resources"
	contactsPath      = "/contacts"
	submissionsPath   = "/submissions"
	authTestPath      = "/authorization_test"
)

// Service is the asset-type agnostic read/write facade over the catalogue API.
// Every call uses the access token of the session carried in ctx.
type Service struct {
	client       *catalogue.Client
	defaultLimit int
}

type ServiceOption func(*Service)

func WithDefaultLimit(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.defaultLimit = n
		}
	}
}

func NewService(client *catalogue.Client, opts ...ServiceOption) *Service {
	s := &Service{client: client, defaultLimit: DefaultLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func collectionPath(t Type) string {
	return "/" + t.Info().PathSegment + "/v1"
}

func itemPath(t Type, id Identifier) string {
	return collectionPath(t) + "/" + url.PathEscape(id.String())
}

func accessToken(ctx context.Context) (string, error) {
	token, ok := sessions.AccessTokenFromContext(ctx)
	if !ok {
		return "", apperrors.ErrUnauthorized
	}
	return token, nil
}

func (s *Service) GetMyAssets(ctx context.Context) MyAssetsResult {
	token, err := accessToken(ctx)
	if err != nil {
		return MyAssetsResult{Error: Unauthorized, Err: err}
	}
	grouped, err := catalogue.Fetch[map[string][]Resource](ctx, s.client, userResourcesPath, token, catalogue.Options{})
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch user resources")
		return MyAssetsResult{Error: errorMessage("fetch your assets", err), Err: err}
	}
	if grouped == nil {
		grouped = map[string][]Resource{}
	}
	return MyAssetsResult{Assets: grouped}
}

// GetAssets reads one page. A non-positive limit uses the default, which is large
// enough to fetch a whole collection.
func (s *Service) GetAssets(ctx context.Context, t Type, limit, offset int) ListResult {
	if !t.Valid() {
		return ListResult{Error: "Unknown asset type", Err: apperrors.ErrUnknownType}
	}
	token, err := accessToken(ctx)
	if err != nil {
		return ListResult{Error: Unauthorized, Err: err}
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	path := collectionPath(t) + "/?" + q.Encode()

	items, err := catalogue.Fetch[[]Resource](ctx, s.client, path, token, catalogue.Options{})
	if err != nil {
		log.Error().Err(err).Str("type", t.String()).Msg("failed to fetch assets")
		return ListResult{Error: errorMessage("fetch "+t.String(), err), Err: err}
	}
	if items == nil {
		items = []Resource{}
	}
	return ListResult{Assets: items}
}

func (s *Service) GetProjects(ctx context.Context, limit int) ListResult {
	return s.GetAssets(ctx, Projects, limit, 0)
}

func (s *Service) GetAsset(ctx context.Context, t Type, id Identifier) Result {
	if !t.Valid() {
		return Result{Error: "Unknown asset type", Err: apperrors.ErrUnknownType}
	}
	token, err := accessToken(ctx)
	if err != nil {
		return Result{Error: Unauthorized, Err: err}
	}
	asset, err := catalogue.Fetch[Resource](ctx, s.client, itemPath(t, id), token, catalogue.Options{})
	if err != nil {
		log.Error().Err(err).Str("type", t.String()).Str("id", id.String()).Msg("failed to fetch asset")
		return Result{Error: errorMessage("fetch "+t.Info().Singular, err), Err: err}
	}
	return Result{Asset: &asset}
}

// CreateAsset posts a new draft and returns it with the identifier the backend assigned.
func (s *Service) CreateAsset(ctx context.Context, t Type, r Resource) Result {
	if err := checkEditable(t); err != nil {
		return Result{Error: errorMessage("create asset", err), Err: err}
	}
	token, err := accessToken(ctx)
	if err != nil {
		return Result{Error: Unauthorized, Err: err}
	}
	if err := Validate(t, r); err != nil {
		return Result{Error: errorMessage("create "+t.Info().Singular, err), Err: err}
	}

	r.Identifier = ""
	r.AIoDEntry = nil
	body, err := json.Marshal(r)
	if err != nil {
		return Result{Error: errorMessage("create "+t.Info().Singular, err), Err: err}
	}

	created, err := catalogue.Fetch[Resource](ctx, s.client, collectionPath(t), token, catalogue.Options{
		Method: http.MethodPost,
		Body:   body,
	})
	if err != nil {
		log.Error().Err(err).Str("type", t.String()).Msg("failed to create asset")
		return Result{Error: errorMessage("create "+t.Info().Singular, err), Err: err}
	}
	s.revalidate(t)
	out := mergeReturned(r, created)
	log.Info().Str("type", t.String()).Str("id", out.Identifier.String()).Msg("asset created")
	return Result{Asset: &out}
}

// UpdateAsset replaces the resource. aiod_entry is owned by the backend and is
// never sent.
func (s *Service) UpdateAsset(ctx context.Context, t Type, id Identifier, r Resource) Result {
	if err := checkEditable(t); err != nil {
		return Result{Error: errorMessage("update asset", err), Err: err}
	}
	token, err := accessToken(ctx)
	if err != nil {
		return Result{Error: Unauthorized, Err: err}
	}
	if id.IsZero() {
		err := fmt.Errorf("%w: identifier is required", apperrors.ErrBadRequest)
		return Result{Error: errorMessage("update asset", err), Err: err}
	}
	if !r.Identifier.IsZero() && r.Identifier != id {
		err := fmt.Errorf("%w: identifier %s does not match %s", apperrors.ErrBadRequest, r.Identifier, id)
		return Result{Error: errorMessage("update asset", err), Err: err}
	}
	if err := Validate(t, r); err != nil {
		return Result{Error: errorMessage("update "+t.Info().Singular, err), Err: err}
	}

	body, err := MarshalForUpdate(r)
	if err != nil {
		return Result{Error: errorMessage("update "+t.Info().Singular, err), Err: err}
	}
	updated, err := catalogue.Fetch[Resource](ctx, s.client, itemPath(t, id), token, catalogue.Options{
		Method: http.MethodPut,
		Body:   body,
	})
	if err != nil {
		log.Error().Err(err).Str("type", t.String()).Str("id", id.String()).Msg("failed to update asset")
		return Result{Error: errorMessage("update "+t.Info().Singular, err), Err: err}
	}
	s.revalidate(t)

	r.Identifier = id
	out := mergeReturned(r, updated)
	return Result{Asset: &out}
}

// MarshalForUpdate encodes r without the server-owned aiod_entry, including any
// copy of it that arrived through Extra.
func MarshalForUpdate(r Resource) ([]byte, error) {
	r.AIoDEntry = nil
	if _, ok := r.Extra["aiod_entry"]; ok {
		extra := make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			if k != "aiod_entry" {
				extra[k] = v
			}
		}
		r.Extra = extra
	}
	return json.Marshal(r)
}

// DeleteAsset issues exactly one DELETE. The backend decides whether that is a tombstone.
func (s *Service) DeleteAsset(ctx context.Context, t Type, id Identifier) Result {
	if err := checkEditable(t); err != nil {
		return Result{Error: errorMessage("delete asset", err), Err: err}
	}
	token, err := accessToken(ctx)
	if err != nil {
		return Result{Error: Unauthorized, Err: err}
	}
	if _, err := s.client.Do(ctx, itemPath(t, id), token, catalogue.Options{Method: http.MethodDelete}); err != nil {
		log.Error().Err(err).Str("type", t.String()).Str("id", id.String()).Msg("failed to delete asset")
		return Result{Error: errorMessage("delete "+t.Info().Singular, err), Err: err}
	}
	s.revalidate(t)
	log.Info().Str("type", t.String()).Str("id", id.String()).Msg("asset deleted")
	return Result{}
}

func (s *Service) GetContact(ctx context.Context, id Identifier) ContactResult {
	token, err := accessToken(ctx)
	if err != nil {
		return ContactResult{Error: Unauthorized, Err: err}
	}
	contact, err := catalogue.Fetch[Contact](ctx, s.client, contactsPath+"/"+url.PathEscape(id.String()), token, catalogue.Options{})
	if err != nil {
		log.Error().Err(err).Str("id", id.String()).Msg("failed to fetch contact")
		return ContactResult{Error: errorMessage("fetch contact", err), Err: err}
	}
	return ContactResult{Contact: &contact}
}

// SaveContact updates the contact when id is set and creates one otherwise.
func (s *Service) SaveContact(ctx context.Context, id Identifier, c Contact) SaveResult {
	token, err := accessToken(ctx)
	if err != nil {
		return SaveResult{Error: Unauthorized, Err: err}
	}
	c.AIoDEntry = nil
	body, err := json.Marshal(c)
	if err != nil {
		return SaveResult{Error: errorMessage("save contact", err), Err: err}
	}

	path, method := contactsPath, http.MethodPost
	if !id.IsZero() {
		path, method = contactsPath+"/"+url.PathEscape(id.String()), http.MethodPut
	}
	saved, err := catalogue.Fetch[struct {
		Identifier Identifier `json:"identifier"`
	}](ctx, s.client, path, token, catalogue.Options{Method: method, Body: body})
	if err != nil {
		log.Error().Err(err).Str("id", id.String()).Msg("failed to save contact")
		return SaveResult{Error: errorMessage("save contact", err), Err: err}
	}
	if saved.Identifier.IsZero() {
		saved.Identifier = id
	}
	return SaveResult{Identifier: saved.Identifier}
}

// SubmitForReview asks the backend to move the given drafts into review.
func (s *Service) SubmitForReview(ctx context.Context, comment string, ids []Identifier) SaveResult {
	token, err := accessToken(ctx)
	if err != nil {
		return SaveResult{Error: Unauthorized, Err: err}
	}
	if len(ids) == 0 {
		err := fmt.Errorf("%w: at least one asset identifier is required", apperrors.ErrBadRequest)
		return SaveResult{Error: errorMessage("submit for review", err), Err: err}
	}
	// the submissions endpoint expects string identifiers
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	body, err := json.Marshal(struct {
		Comment          string   `json:"comment"`
		AssetIdentifiers []string `json:"asset_identifiers"`
	}{comment, strIDs})
	if err != nil {
		return SaveResult{Error: errorMessage("submit for review", err), Err: err}
	}
	resp, err := catalogue.Fetch[struct {
		Identifier Identifier `json:"identifier"`
	}](ctx, s.client, submissionsPath, token, catalogue.Options{Method: http.MethodPost, Body: body})
	if err != nil {
		log.Error().Err(err).Msg("failed to submit for review")
		return SaveResult{Error: errorMessage("submit for review", err), Err: err}
	}
	s.client.Revalidate(userResourcesPath)
	return SaveResult{Identifier: resp.Identifier}
}

// TestAuth checks the token against the backend and returns the name it resolves to.
func (s *Service) TestAuth(ctx context.Context) AuthTestResult {
	token, err := accessToken(ctx)
	if err != nil {
		return AuthTestResult{Error: Unauthorized, Err: err}
	}
	resp, err := catalogue.Fetch[AuthTestResult](ctx, s.client, authTestPath, token, catalogue.Options{})
	if err != nil {
		return AuthTestResult{Error: errorMessage("test authorization", err), Err: err}
	}
	return resp
}

func (s *Service) revalidate(t Type) {
	s.client.Revalidate(collectionPath(t))
	s.client.Revalidate(userResourcesPath)
}

func checkEditable(t Type) error {
	if !t.Valid() {
		return fmt.Errorf("%w: asset type %d", apperrors.ErrUnknownType, int(t))
	}
	if !t.Info().Editable {
		return fmt.Errorf("%w: %s cannot be edited", apperrors.ErrBadRequest, t.Info().Label)
	}
	return nil
}

// mergeReturned prefers the backend's copy when it sent a full resource, and
// otherwise keeps what was sent plus the returned identifier.
func mergeReturned(sent, returned Resource) Resource {
	if returned.Name != "" {
		return returned
	}
	if !returned.Identifier.IsZero() {
		sent.Identifier = returned.Identifier
	}
	return sent
}
