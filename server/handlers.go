package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/jrsteele09/go-catalogue-editor/assets"
	"github.com/jrsteele09/go-catalogue-editor/catalogue"
	"github.com/jrsteele09/go-catalogue-editor/geocoding"
	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/jrsteele09/go-catalogue-editor/taxonomy"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
	maxJSONBody     = 2 << 20
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write json response")
	}
}

func writeError(w http.ResponseWriter, err error, msg string) {
	if msg == "" {
		msg = err.Error()
	}
	writeJSON(w, statusFor(err), errorBody{Error: msg})
}

// statusFor maps a service error to the HTTP status returned to the browser.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case apperrors.Is(err, apperrors.ErrUnauthorized), apperrors.Is(err, apperrors.ErrRefreshAccessToken):
		return http.StatusUnauthorized
	case apperrors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case apperrors.Is(err, apperrors.ErrValidation), apperrors.Is(err, apperrors.ErrBadRequest), apperrors.Is(err, apperrors.ErrUnknownType):
		return http.StatusBadRequest
	}
	if code := catalogue.StatusCode(err); code != 0 {
		if code >= http.StatusInternalServerError {
			return http.StatusBadGateway
		}
		return code
	}
	return http.StatusInternalServerError
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", apperrors.ErrBadRequest, err)
	}
	return nil
}

func assetTypeParam(r *http.Request) (assets.Type, error) {
	return assets.ParseType(r.PathValue("type"))
}

func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", apperrors.ErrBadRequest, name)
	}
	return n, nil
}

// MyAssetsHandler returns the user's resources grouped by type.
func (s *Server) MyAssetsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := s.assets.GetMyAssets(r.Context())
		writeJSON(w, statusFor(res.Err), res)
	}
}

func (s *Server) ListAssetsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := assetTypeParam(r)
		if err != nil {
			writeError(w, err, "Unknown asset type")
			return
		}
		limit, err := intQuery(r, "limit")
		if err != nil {
			writeError(w, err, "")
			return
		}
		offset, err := intQuery(r, "offset")
		if err != nil {
			writeError(w, err, "")
			return
		}
		res := s.assets.GetAssets(r.Context(), t, limit, offset)
		writeJSON(w, statusFor(res.Err), res)
	}
}

// ProjectsHandler lists projects for the project selector in the editor forms.
func (s *Server) ProjectsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := intQuery(r, "limit")
		if err != nil {
			writeError(w, err, "")
			return
		}
		res := s.assets.GetProjects(r.Context(), limit)
		writeJSON(w, statusFor(res.Err), res)
	}
}

func (s *Server) GetAssetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := assetTypeParam(r)
		if err != nil {
			writeError(w, err, "Unknown asset type")
			return
		}
		res := s.assets.GetAsset(r.Context(), t, assets.Identifier(r.PathValue("id")))
		writeJSON(w, statusFor(res.Err), res)
	}
}

func (s *Server) CreateAssetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := assetTypeParam(r)
		if err != nil {
			writeError(w, err, "Unknown asset type")
			return
		}
		var body assets.Resource
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err, "")
			return
		}
		res := s.assets.CreateAsset(r.Context(), t, body)
		status := statusFor(res.Err)
		if res.Err == nil {
			status = http.StatusCreated
		}
		writeJSON(w, status, res)
	}
}

func (s *Server) UpdateAssetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := assetTypeParam(r)
		if err != nil {
			writeError(w, err, "Unknown asset type")
			return
		}
		var body assets.Resource
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err, "")
			return
		}
		res := s.assets.UpdateAsset(r.Context(), t, assets.Identifier(r.PathValue("id")), body)
		writeJSON(w, statusFor(res.Err), res)
	}
}

func (s *Server) DeleteAssetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := assetTypeParam(r)
		if err != nil {
			writeError(w, err, "Unknown asset type")
			return
		}
		res := s.assets.DeleteAsset(r.Context(), t, assets.Identifier(r.PathValue("id")))
		writeJSON(w, statusFor(res.Err), res)
	}
}

func (s *Server) GetContactHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := s.assets.GetContact(r.Context(), assets.Identifier(r.PathValue("id")))
		writeJSON(w, statusFor(res.Err), res)
	}
}

// SaveContactHandler serves both POST /contacts and PUT /contacts/{id}.
func (s *Server) SaveContactHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body assets.Contact
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err, "")
			return
		}
		res := s.assets.SaveContact(r.Context(), assets.Identifier(r.PathValue("id")), body)
		writeJSON(w, statusFor(res.Err), res)
	}
}

type submissionRequest struct {
	Comment          string              `json:"comment"`
	AssetIdentifiers []assets.Identifier `json:"asset_identifiers"`
}

func (s *Server) SubmitForReviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body submissionRequest
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err, "")
			return
		}
		res := s.assets.SubmitForReview(r.Context(), body.Comment, body.AssetIdentifiers)
		writeJSON(w, statusFor(res.Err), res)
	}
}

func (s *Server) AuthTestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := s.assets.TestAuth(r.Context())
		writeJSON(w, statusFor(res.Err), res)
	}
}

// TaxonomyHandler returns one taxonomy tree. With ?term= it returns that term and its
// ancestor path instead; with ?entries=true the whole tree carries ancestor paths.
func (s *Server) TaxonomyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := taxonomy.ParseType(r.PathValue("type"))
		if err != nil {
			writeError(w, err, "Unknown taxonomy type")
			return
		}
		tax, err := s.taxonomies.Fetch(r.Context(), t)
		if err != nil {
			writeError(w, err, "Failed to fetch taxonomy")
			return
		}

		q := r.URL.Query()
		if term := q.Get("term"); term != "" {
			entry, ok := taxonomy.Find(taxonomy.Entries(tax), term)
			if !ok {
				writeJSON(w, http.StatusNotFound, errorBody{Error: "Term not found"})
				return
			}
			writeJSON(w, http.StatusOK, entry)
			return
		}
		if q.Get("entries") == "true" {
			writeJSON(w, http.StatusOK, taxonomy.Entries(tax))
			return
		}
		writeJSON(w, http.StatusOK, tax)
	}
}

// TaxonomiesHandler loads the taxonomies named by repeated ?type= parameters, or all
// of them, in one concurrent batch.
func (s *Server) TaxonomiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var types []taxonomy.Type
		for _, raw := range r.URL.Query()["type"] {
			t, err := taxonomy.ParseType(raw)
			if err != nil {
				writeError(w, err, "Unknown taxonomy type")
				return
			}
			types = append(types, t)
		}
		if len(types) == 0 {
			types = taxonomy.AllTypes()
		}

		set, err := s.taxonomies.FetchMany(r.Context(), types...)
		if err != nil {
			writeError(w, err, "Failed to fetch taxonomies")
			return
		}
		writeJSON(w, http.StatusOK, set)
	}
}

func (s *Server) EnumsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.taxonomies.FetchAllEnums(r.Context()))
	}
}

func (s *Server) GeocodingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		coords, err := s.geocoder.Lookup(r.Context(), geocoding.Address{
			Street:     q.Get("street"),
			Locality:   q.Get("locality"),
			PostalCode: q.Get("postal_code"),
		})
		if err != nil {
			writeError(w, err, "")
			return
		}
		writeJSON(w, http.StatusOK, coords)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
