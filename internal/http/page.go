package http

import (
	_ "embed"
	"html/template"
	"net/http"

	"github.com/hackclub/driveup/internal/session"
)

//go:embed page.html
var pageHTML string

var pageTemplate = template.Must(template.New("page").Parse(pageHTML))

type pageData struct {
	AuthEnabled     bool
	User            *session.User
	StoreConfigured bool
	Backend         string
}

func (s *Server) HandlePage(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		AuthEnabled:     s.sessionManager != nil,
		StoreConfigured: s.uploader.Configured(),
		Backend:         s.config.StoreBackend,
	}
	if s.sessionManager != nil {
		user, err := s.sessionManager.GetUser(r)
		if err != nil {
			s.logger.Debug().Err(err).Msg("failed to read session")
		}
		data.User = user
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error().Err(err).Msg("failed to render page")
	}
}
