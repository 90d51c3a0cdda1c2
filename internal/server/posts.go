package server

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"blogicum/internal/blog"
	"blogicum/internal/db"
	"blogicum/internal/forms"
	"blogicum/internal/media"
	"blogicum/web/static/html"
)

const formDateTime = "2006-01-02T15:04"

// listPosts counts the matching posts, picks the page from ?page= and loads
// only that window.
func (s *Server) listPosts(r *http.Request, opts ...db.PostOption) ([]*db.Post, blog.Page, error) {
	count, err := s.store.CountPosts(r.Context(), opts...)
	if err != nil {
		return nil, blog.Page{}, err
	}
	page := blog.Paginate(count, s.cfg.PostsPerPage, r.URL.Query().Get("page"))
	if page.Empty() {
		return nil, page, nil
	}
	opts = append(opts, db.WithLimit(page.Limit), db.WithOffset(page.Offset))
	posts, err := s.store.ListPosts(r.Context(), opts...)
	return posts, page, err
}

func (s *Server) GetIndex(w http.ResponseWriter, r *http.Request) {
	posts, page, err := s.listPosts(r, db.Visible(s.now()))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data := s.data(r)
	data.Posts, data.Page = posts, page
	s.render(w, r, http.StatusOK, html.Index, data)
}

func (s *Server) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := s.store.GetCategoryBySlug(r.Context(), chi.URLParam(r, "categorySlug"))
	if errors.Is(err, db.ErrNotFound) {
		s.notFound(w, r)
		return
	} else if err != nil {
		s.serverError(w, r, err)
		return
	}
	if !category.IsPublished {
		s.notFound(w, r)
		return
	}

	posts, page, err := s.listPosts(r, db.Visible(s.now()), db.InCategory(category.Id))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data := s.data(r)
	data.Category, data.Posts, data.Page = category, posts, page
	s.render(w, r, http.StatusOK, html.Category, data)
}

func (s *Server) GetPost(w http.ResponseWriter, r *http.Request) {
	post := postFrom(r.Context())
	actor := actorFrom(r.Context())
	if !blog.CanView(post, actor, s.now()) {
		s.notFound(w, r)
		return
	}

	var viewerID int64
	if actor != nil {
		viewerID = actor.Id
	}
	comments, err := s.store.ListComments(r.Context(), post.Id, viewerID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data := s.data(r)
	data.Post, data.Comments = post, comments
	s.render(w, r, http.StatusOK, html.Detail, data)
}

func postURL(id int64) string {
	return "/posts/" + strconv.FormatInt(id, 10)
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username)
}

// denyModify sends users without edit rights back to the post.
func (s *Server) denyModify(w http.ResponseWriter, r *http.Request, postID int64) {
	http.Redirect(w, r, postURL(postID), http.StatusSeeOther)
}

// postFormData loads the choices of the post form. Published categories and
// locations are offered, plus the ones the post already uses.
func (s *Server) postFormData(ctx context.Context, data *html.Data, post *db.Post) error {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return err
	}
	locations, err := s.store.ListLocations(ctx)
	if err != nil {
		return err
	}
	for _, c := range categories {
		if c.IsPublished || (post != nil && post.Category != nil && post.Category.Id == c.Id) {
			data.Categories = append(data.Categories, c)
		}
	}
	for _, l := range locations {
		if l.IsPublished || (post != nil && post.Location != nil && post.Location.Id == l.Id) {
			data.Locations = append(data.Locations, l)
		}
	}
	return nil
}

func postValues(post *db.Post, loc *time.Location) url.Values {
	v := url.Values{}
	v.Set("title", post.Title)
	v.Set("text", post.Text)
	v.Set("pub_date", post.PubDate.In(loc).Format(formDateTime))
	if post.Category != nil {
		v.Set("category", strconv.FormatInt(post.Category.Id, 10))
	}
	if post.Location != nil {
		v.Set("location", strconv.FormatInt(post.Location.Id, 10))
	}
	return v
}

// bindPost validates the submitted fields into post. current is the post
// being edited, nil on create.
func (s *Server) bindPost(ctx context.Context, form *forms.Form, post, current *db.Post) error {
	form.Required("title", "text", "category")
	form.MaxLength("title", 256)
	post.Title = form.Value("title")
	post.Text = form.Value("text")
	post.PubDate = form.DateTime("pub_date", s.cfg.Location)

	post.Category = nil
	if id := form.ID("category"); id != 0 {
		category, err := s.store.GetCategory(ctx, id)
		switch {
		case errors.Is(err, db.ErrNotFound):
			form.AddError("category", "Select a valid choice.")
		case err != nil:
			return err
		case !category.IsPublished && (current == nil || current.Category == nil || current.Category.Id != id):
			form.AddError("category", "Select a valid choice.")
		default:
			post.Category = category
		}
	}

	post.Location = nil
	if id := form.ID("location"); id != 0 {
		location, err := s.store.GetLocation(ctx, id)
		switch {
		case errors.Is(err, db.ErrNotFound):
			form.AddError("location", "Select a valid choice.")
		case err != nil:
			return err
		case !location.IsPublished && (current == nil || current.Location == nil || current.Location.Id != id):
			form.AddError("location", "Select a valid choice.")
		default:
			post.Location = location
		}
	}
	return nil
}

// uploadedImage returns the submitted image, nil when none was sent.
func uploadedImage(r *http.Request) (multipart.File, error) {
	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	return file, err
}

// saveImage stores the upload, reporting a bad file as a form error.
func (s *Server) saveImage(form *forms.Form, file io.Reader) (string, error) {
	name, err := s.media.Save(file)
	switch {
	case errors.Is(err, media.ErrNotImage):
		form.AddError("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
		return "", nil
	case errors.Is(err, media.ErrTooLarge):
		form.AddError("image", fmt.Sprintf("The image may be at most %d MB.", media.MaxImageSize>>20))
		return "", nil
	case err != nil:
		return "", err
	}
	return name, nil
}

func (s *Server) renderPostForm(w http.ResponseWriter, r *http.Request, status int, form *forms.Form, post *db.Post) {
	data := s.data(r)
	data.Form, data.Post = form, post
	if err := s.postFormData(r.Context(), data, post); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, status, html.PostForm, data)
}

func (s *Server) GetPostCreate(w http.ResponseWriter, r *http.Request) {
	form := forms.New(nil)
	form.Set("pub_date", s.now().In(s.cfg.Location).Format(formDateTime))
	s.renderPostForm(w, r, http.StatusOK, form, nil)
}

func (s *Server) HandlePostCreate(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	form := forms.New(r.PostForm)
	post := &db.Post{AuthorId: actor.Id, IsPublished: true}
	if err := s.bindPost(r.Context(), form, post, nil); err != nil {
		s.serverError(w, r, err)
		return
	}

	file, err := uploadedImage(r)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if file != nil {
		defer file.Close()
		if form.Valid() {
			if post.Image, err = s.saveImage(form, file); err != nil {
				s.serverError(w, r, err)
				return
			}
		}
	}
	if !form.Valid() {
		s.renderPostForm(w, r, http.StatusUnprocessableEntity, form, nil)
		return
	}

	if _, err := s.store.CreatePost(r.Context(), post); err != nil {
		s.removeImage(post.Image)
		s.serverError(w, r, err)
		return
	}
	s.log.Info("post created", zap.Int64("post_id", post.Id), zap.Int64("author_id", actor.Id))
	http.Redirect(w, r, profileURL(actor.Username), http.StatusSeeOther)
}

func (s *Server) removeImage(name string) {
	if err := s.media.Remove(name); err != nil {
		s.log.Warn("remove image", zap.String("image", name), zap.Error(err))
	}
}

func (s *Server) GetPostEdit(w http.ResponseWriter, r *http.Request) {
	post := postFrom(r.Context())
	if !blog.CanModify(post, actorFrom(r.Context())) {
		s.denyModify(w, r, post.Id)
		return
	}
	s.renderPostForm(w, r, http.StatusOK, forms.New(postValues(post, s.cfg.Location)), post)
}

func (s *Server) HandlePostEdit(w http.ResponseWriter, r *http.Request) {
	current := postFrom(r.Context())
	if !blog.CanModify(current, actorFrom(r.Context())) {
		s.denyModify(w, r, current.Id)
		return
	}

	form := forms.New(r.PostForm)
	post := *current
	if err := s.bindPost(r.Context(), form, &post, current); err != nil {
		s.serverError(w, r, err)
		return
	}
	if form.Bool("image_clear") {
		post.Image = ""
	}

	file, err := uploadedImage(r)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if file != nil {
		defer file.Close()
		if form.Valid() {
			if post.Image, err = s.saveImage(form, file); err != nil {
				s.serverError(w, r, err)
				return
			}
		}
	}
	if !form.Valid() {
		s.renderPostForm(w, r, http.StatusUnprocessableEntity, form, current)
		return
	}

	if err := s.store.EditPost(r.Context(), &post); err != nil {
		if post.Image != current.Image {
			s.removeImage(post.Image)
		}
		s.serverError(w, r, err)
		return
	}
	if current.Image != "" && post.Image != current.Image {
		s.removeImage(current.Image)
	}
	http.Redirect(w, r, postURL(post.Id), http.StatusSeeOther)
}

func (s *Server) GetPostDelete(w http.ResponseWriter, r *http.Request) {
	post := postFrom(r.Context())
	if !blog.CanModify(post, actorFrom(r.Context())) {
		s.denyModify(w, r, post.Id)
		return
	}
	data := s.data(r)
	data.Post = post
	s.render(w, r, http.StatusOK, html.PostDelete, data)
}

func (s *Server) HandlePostDelete(w http.ResponseWriter, r *http.Request) {
	post := postFrom(r.Context())
	actor := actorFrom(r.Context())
	if !blog.CanModify(post, actor) {
		s.denyModify(w, r, post.Id)
		return
	}
	if err := s.store.DeletePost(r.Context(), post.Id); err != nil && !errors.Is(err, db.ErrNotFound) {
		s.serverError(w, r, err)
		return
	}
	s.removeImage(post.Image)
	s.log.Info("post deleted", zap.Int64("post_id", post.Id), zap.Int64("author_id", actor.Id))
	http.Redirect(w, r, profileURL(actor.Username), http.StatusSeeOther)
}

// HandlePostPublish is the staff moderation switch for a post.
func (s *Server) HandlePostPublish(w http.ResponseWriter, r *http.Request) {
	published := forms.New(r.PostForm).Bool("is_published")
	s.adminUpdate(w, r, "postID", func(id int64) error {
		return s.store.SetPostPublished(r.Context(), id, published)
	})
}

// adminURL keeps the admin page the form was sent from.
func adminURL(r *http.Request) string {
	if page := r.URL.Query().Get("page"); page != "" {
		return fmt.Sprintf("/admin?page=%s", url.QueryEscape(page))
	}
	return "/admin"
}
