package server

import (
	"context"
	"net/http"
	"time"

	"github.com/aarol/reload"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"blogicum/internal/config"
	"blogicum/internal/db"
	"blogicum/internal/media"
	"blogicum/web/static/html"
)

type Server struct {
	cfg       *config.Config
	store     *db.Store
	media     *media.Store
	log       *zap.Logger
	tokenAuth *jwtauth.JWTAuth
	now       func() time.Time
}

func New(cfg *config.Config, store *db.Store, mediaStore *media.Store, log *zap.Logger) *Server {
	html.Dev = cfg.IsDev
	return &Server{
		cfg:       cfg,
		store:     store,
		media:     mediaStore,
		log:       log,
		tokenAuth: jwtauth.New("HS256", cfg.SignKey, nil),
		now:       time.Now,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID) // add unique id to each request context
	r.Use(middleware.RealIP)    // add request RemoteAddr to X-Real-IP
	r.Use(s.requestLogger)      // log every request with zap
	r.Use(middleware.Recoverer) // recover and log from panic, return 500
	r.Use(jwtauth.Verify(s.tokenAuth, jwtauth.TokenFromCookie))
	r.Use(s.loadActor)
	r.Use(s.verifyCSRF)

	r.NotFound(s.notFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.clientError(w, r, http.StatusMethodNotAllowed, nil)
	})

	// handle static assets and uploads
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("./web/static"))))
	r.Handle("/media/*", http.StripPrefix("/media/", s.media.Handler()))

	// public routes
	r.Group(func(r chi.Router) {
		r.Get("/", s.GetIndex)
		r.Get("/category/{categorySlug}", s.GetCategory)
		r.Get("/profile/{username}", s.GetProfile)
		r.With(s.PostCtx).Get("/posts/{postID:[0-9]+}", s.GetPost)

		r.Get("/pages/about", s.GetAbout)
		r.Get("/pages/rules", s.GetRules)

		r.Get("/auth/login", s.GetLogin)
		r.Post("/auth/login", s.HandleLogin)
		r.Get("/auth/registration", s.GetRegistration)
		r.Post("/auth/registration", s.HandleRegistration)
		r.Get("/auth/logout", s.HandleLogout)
		r.Post("/auth/logout", s.HandleLogout)
	})

	// routes for logged in users
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/profile/edit", s.GetProfileEdit)
		r.Post("/profile/edit", s.HandleProfileEdit)

		r.Get("/posts/create", s.GetPostCreate)
		r.Post("/posts/create", s.HandlePostCreate)

		r.Group(func(r chi.Router) {
			r.Use(s.PostCtx)
			r.Get("/posts/{postID:[0-9]+}/edit", s.GetPostEdit)
			r.Post("/posts/{postID:[0-9]+}/edit", s.HandlePostEdit)
			r.Get("/posts/{postID:[0-9]+}/delete", s.GetPostDelete)
			r.Post("/posts/{postID:[0-9]+}/delete", s.HandlePostDelete)
			r.Post("/posts/{postID:[0-9]+}/comment", s.HandleAddComment)

			r.Group(func(r chi.Router) {
				r.Use(s.CommentCtx)
				r.Get("/posts/{postID:[0-9]+}/comments/{commentID:[0-9]+}/edit", s.GetCommentEdit)
				r.Post("/posts/{postID:[0-9]+}/comments/{commentID:[0-9]+}/edit", s.HandleCommentEdit)
				r.Get("/posts/{postID:[0-9]+}/comments/{commentID:[0-9]+}/delete", s.GetCommentDelete)
				r.Post("/posts/{postID:[0-9]+}/comments/{commentID:[0-9]+}/delete", s.HandleCommentDelete)
			})
		})
	})

	// staff only
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Use(s.requireStaff)

		r.Get("/admin", s.GetAdmin)
		r.Post("/admin/categories", s.HandleCategoryCreate)
		r.Post("/admin/categories/{categoryID:[0-9]+}/publish", s.HandleCategoryPublish)
		r.Post("/admin/categories/{categoryID:[0-9]+}/delete", s.HandleCategoryDelete)
		r.Post("/admin/locations", s.HandleLocationCreate)
		r.Post("/admin/locations/{locationID:[0-9]+}/publish", s.HandleLocationPublish)
		r.Post("/admin/locations/{locationID:[0-9]+}/delete", s.HandleLocationDelete)
		r.Post("/admin/posts/{postID:[0-9]+}/publish", s.HandlePostPublish)
	})

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	var handler http.Handler = s.Routes()

	if s.cfg.IsDev {
		// list of directories to recursively watch
		reloader := reload.New("web/static/html/", "web/static/css/")
		handler = reloader.Handle(handler)
	}

	srv := &http.Server{
		Addr:         s.cfg.ListenAddr(),
		Handler:      handler,
		ErrorLog:     zap.NewStdLog(s.log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", srv.Addr), zap.Bool("dev", s.cfg.IsDev))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutdown signal received")
	return srv.Shutdown(shutdownCtx)
}
