package server

import (
	"errors"
	"net/http"

	"github.com/jrsteele09/go-catalogue-editor/assets"
	"github.com/jrsteele09/go-catalogue-editor/catalogue"
	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
)

// maxImageForm bounds the multipart form holding a base64 image; base64 is a third
// larger than the 1 MB image limit and the form adds a little framing.
const maxImageForm = 2 << 20

// ImageUploadHandler handles POST (add) and PUT (replace) of an asset image.
func (s *Server) ImageUploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := assetTypeParam(r)
		if err != nil {
			writeError(w, err, "Unknown asset type")
			return
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "Name parameter is required"})
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxImageForm)
		if err := r.ParseMultipartForm(maxImageForm); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid form data"})
			return
		}

		resp, err := s.images.Upload(r.Context(), r.Method, t, assets.Identifier(r.PathValue("id")), name, r.FormValue("file"))
		if err != nil {
			writeImageError(w, err)
			return
		}
		w.Header().Set("Content-Type", contentTypeJSON)
		_, _ = w.Write(resp)
	}
}

func (s *Server) ImageDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := assetTypeParam(r)
		if err != nil {
			writeError(w, err, "Unknown asset type")
			return
		}
		resp, err := s.images.Delete(r.Context(), t, assets.Identifier(r.PathValue("id")), r.URL.Query().Get("name"))
		if err != nil {
			writeImageError(w, err)
			return
		}
		w.Header().Set("Content-Type", contentTypeJSON)
		_, _ = w.Write(resp)
	}
}

// writeImageError relays backend failures with the backend's own status and text.
func writeImageError(w http.ResponseWriter, err error) {
	var apiErr *catalogue.APIError
	if apperrors.As(err, &apiErr) {
		msg := apiErr.Body
		if msg == "" {
			msg = "Backend request failed"
		}
		writeJSON(w, apiErr.StatusCode, errorBody{Error: msg})
		return
	}
	if apperrors.Is(err, apperrors.ErrUnauthorized) {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: assets.Unauthorized})
		return
	}
	if apperrors.Is(err, apperrors.ErrBadRequest) {
		writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
}
