package server

import (
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"blogicum/internal/db"
	"blogicum/internal/forms"
	"blogicum/pkg/utils"
	"blogicum/web/static/html"
)

func (s *Server) renderAdmin(w http.ResponseWriter, r *http.Request, status int, form *forms.Form) {
	data := s.data(r)
	data.Form = form

	var err error
	if data.Categories, err = s.store.ListCategories(r.Context()); err != nil {
		s.serverError(w, r, err)
		return
	}
	if data.Locations, err = s.store.ListLocations(r.Context()); err != nil {
		s.serverError(w, r, err)
		return
	}
	if data.Posts, data.Page, err = s.listPosts(r); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, status, html.Admin, data)
}

func (s *Server) GetAdmin(w http.ResponseWriter, r *http.Request) {
	s.renderAdmin(w, r, http.StatusOK, nil)
}

func (s *Server) HandleCategoryCreate(w http.ResponseWriter, r *http.Request) {
	form := forms.New(r.PostForm)
	form.Required("title")
	form.MaxLength("title", 256)

	slug := form.Value("slug")
	if slug == "" {
		slug = utils.TitleToSlug(form.Value("title"))
	}
	if !utils.ValidSlug(slug) {
		form.AddError("", "Slug may only contain latin letters, digits, hyphens and underscores.")
	}
	if !form.Valid() {
		if form.Error("title") != "" {
			form.AddError("", "Category title: "+form.Error("title"))
		}
		s.renderAdmin(w, r, http.StatusUnprocessableEntity, form)
		return
	}

	category := &db.Category{
		Title:       form.Value("title"),
		Description: form.Value("description"),
		Slug:        slug,
		IsPublished: true,
	}
	if _, err := s.store.CreateCategory(r.Context(), category); errors.Is(err, db.ErrDuplicate) {
		form.AddError("", "A category with this slug already exists.")
		s.renderAdmin(w, r, http.StatusUnprocessableEntity, form)
		return
	} else if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.log.Info("category created", zap.Int64("category_id", category.Id), zap.String("slug", slug))
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// adminUpdate runs a change on the entity named by param and returns to the
// admin page.
func (s *Server) adminUpdate(w http.ResponseWriter, r *http.Request, param string, update func(id int64) error) {
	id, ok := urlID(r, param)
	if !ok {
		s.notFound(w, r)
		return
	}
	err := update(id)
	if errors.Is(err, db.ErrNotFound) {
		s.notFound(w, r)
		return
	} else if err != nil {
		s.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, adminURL(r), http.StatusSeeOther)
}

func (s *Server) HandleCategoryPublish(w http.ResponseWriter, r *http.Request) {
	published := forms.New(r.PostForm).Bool("is_published")
	s.adminUpdate(w, r, "categoryID", func(id int64) error {
		return s.store.SetCategoryPublished(r.Context(), id, published)
	})
}

func (s *Server) HandleCategoryDelete(w http.ResponseWriter, r *http.Request) {
	s.adminUpdate(w, r, "categoryID", func(id int64) error {
		return s.store.DeleteCategory(r.Context(), id)
	})
}

func (s *Server) HandleLocationCreate(w http.ResponseWriter, r *http.Request) {
	form := forms.New(r.PostForm)
	form.Required("name")
	form.MaxLength("name", 256)
	if !form.Valid() {
		form.AddError("", "Location name: "+form.Error("name"))
		s.renderAdmin(w, r, http.StatusUnprocessableEntity, form)
		return
	}

	location := &db.Location{Name: form.Value("name"), IsPublished: true}
	if _, err := s.store.CreateLocation(r.Context(), location); err != nil {
		s.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) HandleLocationPublish(w http.ResponseWriter, r *http.Request) {
	published := forms.New(r.PostForm).Bool("is_published")
	s.adminUpdate(w, r, "locationID", func(id int64) error {
		return s.store.SetLocationPublished(r.Context(), id, published)
	})
}

func (s *Server) HandleLocationDelete(w http.ResponseWriter, r *http.Request) {
	s.adminUpdate(w, r, "locationID", func(id int64) error {
		return s.store.DeleteLocation(r.Context(), id)
	})
}
