package server

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"blogicum/internal/db"
	"blogicum/internal/forms"
	"blogicum/web/static/html"
)

// GetProfile lists the author's posts. The author and staff see every post,
// everyone else only the visible ones.
func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.store.GetUserByUsername(r.Context(), chi.URLParam(r, "username"))
	if errors.Is(err, db.ErrNotFound) {
		s.notFound(w, r)
		return
	} else if err != nil {
		s.serverError(w, r, err)
		return
	}

	actor := actorFrom(r.Context())
	owner := actor != nil && actor.Id == profile.Id
	opts := []db.PostOption{db.ByAuthor(profile.Id)}
	if !owner && (actor == nil || !actor.IsStaff) {
		opts = append(opts, db.Visible(s.now()))
	}

	posts, page, err := s.listPosts(r, opts...)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data := s.data(r)
	data.Profile, data.Owner = profile, owner
	data.Posts, data.Page = posts, page
	s.render(w, r, http.StatusOK, html.Profile, data)
}

func (s *Server) GetProfileEdit(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	data := s.data(r)
	data.Form = forms.New(url.Values{
		"username":   {actor.Username},
		"first_name": {actor.FirstName},
		"last_name":  {actor.LastName},
		"email":      {actor.Email},
	})
	s.render(w, r, http.StatusOK, html.ProfileEdit, data)
}

func (s *Server) HandleProfileEdit(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	form := forms.New(r.PostForm)
	validateAccount(form)
	form.MaxLength("first_name", 150)
	form.MaxLength("last_name", 150)

	data := s.data(r)
	data.Form = form
	if !form.Valid() {
		s.render(w, r, http.StatusUnprocessableEntity, html.ProfileEdit, data)
		return
	}

	user := *actor
	user.Username = form.Value("username")
	user.FirstName = form.Value("first_name")
	user.LastName = form.Value("last_name")
	user.Email = form.Value("email")
	if err := s.store.UpdateProfile(r.Context(), &user); errors.Is(err, db.ErrDuplicate) {
		form.AddError("username", "A user with that username already exists.")
		s.render(w, r, http.StatusUnprocessableEntity, html.ProfileEdit, data)
		return
	} else if err != nil {
		s.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, profileURL(user.Username), http.StatusSeeOther)
}
