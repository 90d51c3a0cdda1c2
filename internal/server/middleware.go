package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/net/xsrftoken"

	"blogicum/internal/db"
)

type key int

const (
	actorKey key = iota
	postKey
	commentKey
)

const (
	csrfField  = "csrf_token"
	csrfAction = "form"

	// uploads included
	maxBodySize = 8 << 20
)

var (
	errBadCSRF  = errors.New("The form could not be verified. Reload the page and try again.")
	errTooLarge = errors.Errorf("The upload is too large, at most %d MB can be sent at once.", maxBodySize>>20)
)

// parseBody reads url encoded and multipart forms alike.
func parseBody(r *http.Request) error {
	err := r.ParseMultipartForm(maxBodySize)
	if errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	return err
}

// actorFrom returns the logged in user, nil for anonymous requests.
func actorFrom(ctx context.Context) *db.User {
	user, _ := ctx.Value(actorKey).(*db.User)
	return user
}

func postFrom(ctx context.Context) *db.Post {
	post, _ := ctx.Value(postKey).(*db.Post)
	return post
}

func commentFrom(ctx context.Context) *db.Comment {
	comment, _ := ctx.Value(commentKey).(*db.Comment)
	return comment
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		}()
		next.ServeHTTP(ww, r)
	})
}

func userIDClaim(claims map[string]interface{}) (int64, bool) {
	switch v := claims["user_id"].(type) {
	case float64:
		return int64(v), v > 0
	case int64:
		return v, v > 0
	case json.Number:
		id, err := v.Int64()
		return id, err == nil && id > 0
	}
	return 0, false
}

// loadActor resolves the verified jwt cookie to a user. Missing, invalid or
// stale tokens leave the request anonymous.
func (s *Server) loadActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			next.ServeHTTP(w, r)
			return
		}
		id, ok := userIDClaim(claims)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		user, err := s.store.GetUser(r.Context(), id)
		if err != nil {
			if !errors.Is(err, db.ErrNotFound) {
				s.log.Warn("load actor", zap.Int64("user_id", id), zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, user)))
	})
}

func noCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

// requireAuth sends anonymous users to the login page and back afterwards.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		noCache(w)
		if actorFrom(r.Context()) == nil {
			http.Redirect(w, r, "/auth/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := actorFrom(r.Context()); actor == nil || !actor.IsStaff {
			s.notFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) csrfUser(actor *db.User) string {
	if actor == nil {
		return ""
	}
	return strconv.FormatInt(actor.Id, 10)
}

func (s *Server) csrfToken(actor *db.User) string {
	return xsrftoken.Generate(string(s.cfg.SignKey), s.csrfUser(actor), csrfAction)
}

// verifyCSRF checks the token of every state changing request. It runs after
// loadActor because tokens are bound to the user.
func (s *Server) verifyCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		if err := parseBody(r); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				s.clientError(w, r, http.StatusRequestEntityTooLarge, errTooLarge)
				return
			}
			s.clientError(w, r, http.StatusBadRequest, nil)
			return
		}
		token := r.PostFormValue(csrfField)
		if !xsrftoken.Valid(token, string(s.cfg.SignKey), s.csrfUser(actorFrom(r.Context())), csrfAction) {
			s.clientError(w, r, http.StatusForbidden, errBadCSRF)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func urlID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// PostCtx adds the post named in the URL to the context, 404 if not found.
func (s *Server) PostCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "postID")
		if !ok {
			s.notFound(w, r)
			return
		}
		post, err := s.store.GetPost(r.Context(), id)
		if errors.Is(err, db.ErrNotFound) {
			s.notFound(w, r)
			return
		} else if err != nil {
			s.serverError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), postKey, post)))
	})
}

// CommentCtx needs PostCtx to run first, comments are only found within
// their own post.
func (s *Server) CommentCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		post := postFrom(r.Context())
		id, ok := urlID(r, "commentID")
		if post == nil || !ok {
			s.notFound(w, r)
			return
		}
		comment, err := s.store.GetComment(r.Context(), post.Id, id)
		if errors.Is(err, db.ErrNotFound) {
			s.notFound(w, r)
			return
		} else if err != nil {
			s.serverError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), commentKey, comment)))
	})
}
