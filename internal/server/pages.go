package server

import (
	"net/http"

	"blogicum/web/static/html"
)

func (s *Server) GetAbout(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, html.About, s.data(r))
}

func (s *Server) GetRules(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, html.Rules, s.data(r))
}
