package server

import (
	"html/template"
	"net/http"

	"github.com/jrsteele09/go-catalogue-editor/assets"
	"github.com/jrsteele09/go-catalogue-editor/sessions"
	"github.com/rs/zerolog/log"
)

// PageData is the template model shared by the HTML pages.
type PageData struct {
	AppName  string
	BasePath string
	User     *sessionUser
	Error    string

	Types     []assets.TypeInfo
	Type      *assets.TypeInfo
	Groups    []AssetGroup
	Resources []assets.Resource
}

// AssetGroup is one type section on the my-assets page.
type AssetGroup struct {
	Info      assets.TypeInfo
	Resources []assets.Resource
}

func mustParseTemplate(name string) *template.Template {
	tmpl, err := ParseTemplate(name)
	if err != nil {
		panic("Failed to parse " + name + " template: " + err.Error())
	}
	return tmpl
}

func (s *Server) pageData(r *http.Request) PageData {
	data := PageData{AppName: s.config.GetAppName(), BasePath: s.basePath}
	for _, t := range assets.EditableTypes() {
		data.Types = append(data.Types, t.Info())
	}
	if session, ok := sessions.FromContext(r.Context()); ok {
		data.User = &sessionUser{ID: session.UserID, Name: session.Name, Email: session.Email, Image: session.Image}
	}
	return data
}

func renderPage(w http.ResponseWriter, tmpl *template.Template, data PageData) {
	w.Header().Set("Content-Type", contentTypeHTML)
	if err := tmpl.Execute(w, data); err != nil {
		log.Error().Err(err).Str("template", tmpl.Name()).Msg("failed to render page")
	}
}

// IndexHandler renders the home page. A session is optional here; when present the
// page offers the user's assets instead of the sign-in link.
func (s *Server) IndexHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if session, err := s.tokens.ValidSession(r.Context(), s.sessionIDFromRequest(r)); err == nil {
			r = r.WithContext(sessions.NewContext(r.Context(), session))
		}
		renderPage(w, tmpl, s.pageData(r))
	}
}

// MyAssetsPageHandler lists every resource the user owns, grouped by type.
func (s *Server) MyAssetsPageHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("my_assets.html")

	return func(w http.ResponseWriter, r *http.Request) {
		res := s.assets.GetMyAssets(r.Context())
		if assets.IsUnauthorized(res.Error) {
			s.forceLogout(w, r)
			return
		}

		data := s.pageData(r)
		data.Error = res.Error
		for _, t := range assets.AllTypes() {
			if list := res.Assets[t.String()]; len(list) > 0 {
				data.Groups = append(data.Groups, AssetGroup{Info: t.Info(), Resources: list})
			}
		}
		renderPage(w, tmpl, data)
	}
}

// MyAssetsTypePageHandler lists the resources of one type.
func (s *Server) MyAssetsTypePageHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("asset_list.html")

	return func(w http.ResponseWriter, r *http.Request) {
		t, err := assets.ParseType(r.PathValue("type"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		res := s.assets.GetAssets(r.Context(), t, 0, 0)
		if assets.IsUnauthorized(res.Error) {
			s.forceLogout(w, r)
			return
		}

		info := t.Info()
		data := s.pageData(r)
		data.Type = &info
		data.Error = res.Error
		data.Resources = res.Assets
		renderPage(w, tmpl, data)
	}
}
