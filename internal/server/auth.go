package server

import (
	"net/http"
	"regexp"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"blogicum/internal/db"
	"blogicum/internal/forms"
	"blogicum/pkg/utils"
	"blogicum/web/static/html"
)

const jwtCookie = "jwt"

var (
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// reservedUsernames would collide with static routes under /profile/.
var reservedUsernames = map[string]bool{"edit": true}

const badLogin = "Please enter a correct username and password. Note that both fields may be case-sensitive."

// validateAccount checks the fields shared by registration and profile edit.
func validateAccount(form *forms.Form) {
	form.Required("username")
	form.MaxLength("username", 150)
	form.Matches("username", usernamePattern, "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	if reservedUsernames[form.Value("username")] {
		form.AddError("username", "This username is not available.")
	}
	form.MaxLength("email", 254)
	form.Matches("email", emailPattern, "Enter a valid email address.")
}

func (s *Server) setTokenCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     jwtCookie,
		Value:    token,
		HttpOnly: true,
		Secure:   !s.cfg.IsDev,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   maxAge,
	})
}

func (s *Server) GetLogin(w http.ResponseWriter, r *http.Request) {
	data := s.data(r)
	data.Next = r.URL.Query().Get("next")
	s.render(w, r, http.StatusOK, html.Login, data)
}

func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	form := forms.New(r.PostForm)
	form.Required("username", "password")

	data := s.data(r)
	data.Form = form
	data.Next = form.Value("next")
	if !form.Valid() {
		s.render(w, r, http.StatusUnprocessableEntity, html.Login, data)
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), form.Value("username"))
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		s.serverError(w, r, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(form.Get("password"))) != nil {
		form.AddError("", badLogin)
		s.render(w, r, http.StatusUnprocessableEntity, html.Login, data)
		return
	}

	token, err := utils.GenerateToken(s.cfg.SignKey, user.Id)
	if err != nil {
		s.serverError(w, r, errors.Wrap(err, "generate jwt"))
		return
	}
	s.setTokenCookie(w, token, int(utils.TokenTTL.Seconds()))
	s.log.Info("user logged in", zap.Int64("user_id", user.Id))
	http.Redirect(w, r, utils.SafeRedirect(data.Next, profileURL(user.Username)), http.StatusSeeOther)
}

func (s *Server) HandleLogout(w http.ResponseWriter, r *http.Request) {
	s.setTokenCookie(w, "", -1)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) GetRegistration(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, html.Registration, s.data(r))
}

func (s *Server) HandleRegistration(w http.ResponseWriter, r *http.Request) {
	form := forms.New(r.PostForm)
	validateAccount(form)
	form.Required("password1", "password2")
	form.MinLength("password1", 8)
	form.MaxLength("password1", 72)
	form.Equal("password1", "password2", "The two password fields didn't match.")

	data := s.data(r)
	data.Form = form
	if !form.Valid() {
		s.render(w, r, http.StatusUnprocessableEntity, html.Registration, data)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Get("password1")), bcrypt.DefaultCost)
	if err != nil {
		s.serverError(w, r, errors.Wrap(err, "hash password"))
		return
	}
	user := &db.User{
		Username:     form.Value("username"),
		Email:        form.Value("email"),
		PasswordHash: hash,
	}
	if _, err := s.store.CreateUser(r.Context(), user); errors.Is(err, db.ErrDuplicate) {
		form.AddError("username", "A user with that username already exists.")
		s.render(w, r, http.StatusUnprocessableEntity, html.Registration, data)
		return
	} else if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.log.Info("user registered", zap.Int64("user_id", user.Id))
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}
