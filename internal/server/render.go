package server

import (
	"bytes"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"blogicum/internal/types"
	"blogicum/web/static/html"
)

type page func(w io.Writer, data *html.Data) error

// data starts the template data with what the layout needs.
func (s *Server) data(r *http.Request) *html.Data {
	actor := actorFrom(r.Context())
	return &html.Data{
		Actor:     actor,
		CSRFToken: s.csrfToken(actor),
		Location:  s.cfg.Location,
	}
}

// render executes into a buffer first so a failing template does not leave a
// half written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, p page, data *html.Data) {
	var buf bytes.Buffer
	if err := p(&buf, data); err != nil {
		s.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (s *Server) errorPage(w http.ResponseWriter, r *http.Request, se types.StatusError) {
	data := s.data(r)
	data.Error = se

	var buf bytes.Buffer
	if err := html.Error(&buf, data); err != nil {
		s.log.Error("render error page", zap.Error(err))
		http.Error(w, http.StatusText(se.Status), se.Status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(se.Status)
	buf.WriteTo(w)
}

// clientError renders a 4xx page, err is shown to the user.
func (s *Server) clientError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.errorPage(w, r, types.NewStatusError(err, status))
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.clientError(w, r, http.StatusNotFound, nil)
}

// serverError logs err and answers with a generic 500 page.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("internal error",
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())))
	s.errorPage(w, r, types.NewStatusError(nil, http.StatusInternalServerError))
}
