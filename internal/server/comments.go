package server

import (
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"blogicum/internal/blog"
	"blogicum/internal/db"
	"blogicum/internal/forms"
	"blogicum/web/static/html"
)

func validateComment(form *forms.Form) {
	form.Required("text")
}

// HandleAddComment attaches a comment to a post the actor is allowed to see.
func (s *Server) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	post := postFrom(r.Context())
	actor := actorFrom(r.Context())
	if !blog.CanView(post, actor, s.now()) {
		s.notFound(w, r)
		return
	}

	form := forms.New(r.PostForm)
	validateComment(form)
	if !form.Valid() {
		// the detail page carries the only comment form
		http.Redirect(w, r, postURL(post.Id), http.StatusSeeOther)
		return
	}

	comment := &db.Comment{
		PostId:      post.Id,
		AuthorId:    actor.Id,
		Text:        form.Value("text"),
		IsPublished: true,
	}
	if _, err := s.store.CreateComment(r.Context(), comment); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.log.Info("comment added", zap.Int64("post_id", post.Id), zap.Int64("comment_id", comment.Id))
	http.Redirect(w, r, postURL(post.Id), http.StatusSeeOther)
}

func (s *Server) renderComment(w http.ResponseWriter, r *http.Request, status int, form *forms.Form, confirm bool) {
	data := s.data(r)
	data.Post = postFrom(r.Context())
	data.Comment = commentFrom(r.Context())
	data.Form = form
	data.Confirm = confirm
	s.render(w, r, status, html.CommentForm, data)
}

func (s *Server) GetCommentEdit(w http.ResponseWriter, r *http.Request) {
	comment := commentFrom(r.Context())
	if !blog.CanModify(comment, actorFrom(r.Context())) {
		s.denyModify(w, r, comment.PostId)
		return
	}
	form := forms.New(nil)
	form.Set("text", comment.Text)
	s.renderComment(w, r, http.StatusOK, form, false)
}

func (s *Server) HandleCommentEdit(w http.ResponseWriter, r *http.Request) {
	comment := commentFrom(r.Context())
	if !blog.CanModify(comment, actorFrom(r.Context())) {
		s.denyModify(w, r, comment.PostId)
		return
	}

	form := forms.New(r.PostForm)
	validateComment(form)
	if !form.Valid() {
		s.renderComment(w, r, http.StatusUnprocessableEntity, form, false)
		return
	}
	if err := s.store.EditComment(r.Context(), comment.Id, form.Value("text")); err != nil {
		s.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, postURL(comment.PostId), http.StatusSeeOther)
}

func (s *Server) GetCommentDelete(w http.ResponseWriter, r *http.Request) {
	comment := commentFrom(r.Context())
	if !blog.CanModify(comment, actorFrom(r.Context())) {
		s.denyModify(w, r, comment.PostId)
		return
	}
	s.renderComment(w, r, http.StatusOK, nil, true)
}

func (s *Server) HandleCommentDelete(w http.ResponseWriter, r *http.Request) {
	comment := commentFrom(r.Context())
	if !blog.CanModify(comment, actorFrom(r.Context())) {
		s.denyModify(w, r, comment.PostId)
		return
	}
	err := s.store.DeleteComment(r.Context(), comment.Id)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		s.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, postURL(comment.PostId), http.StatusSeeOther)
}
