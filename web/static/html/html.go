package html

import (
	"embed"
	"html/template"
	"io"
	"strconv"
	"time"

	"blogicum/internal/blog"
	"blogicum/internal/db"
	"blogicum/internal/forms"
	"blogicum/internal/types"
	"blogicum/pkg/utils/markdown"
)

//go:embed *.html
var files embed.FS

// Dev makes templates load from disk on every render so edits show up
// without a rebuild.
var Dev bool

// Data is handed to every page. Handlers fill what the page needs.
type Data struct {
	Actor     *db.User
	CSRFToken string

	Post       *db.Post
	Posts      []*db.Post
	Page       blog.Page
	Comments   []*db.Comment
	Comment    *db.Comment
	Category   *db.Category
	Categories []*db.Category
	Locations  []*db.Location
	Profile    *db.User
	Owner      bool
	Confirm    bool
	Next       string

	Form  *forms.Form
	Error types.StatusError

	// Location dates are shown in, UTC when nil.
	Location *time.Location
}

func functions(loc *time.Location) template.FuncMap {
	return template.FuncMap{
		"markdown": markdown.Render,
		"date": func(t time.Time) string {
			return FormatDate(t, loc)
		},
		"owns": func(actor *db.User, entity blog.Owned) bool {
			return blog.CanModify(entity, actor)
		},
		"selected": func(id int64, form *forms.Form, field string) bool {
			return form != nil && form.Value(field) != "" && form.Value(field) == formatID(id)
		},
	}
}

// FormatDate prints t in loc the way every page shows dates.
func FormatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2 January 2006, 15:04")
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parse(file string, funcs template.FuncMap) *template.Template {
	if Dev {
		// dynamically read from files for dynamic template parsing
		return template.Must(
			template.New("layout.html").Funcs(funcs).ParseFiles("web/static/html/layout.html", "web/static/html/"+file))
	}
	// read from embedded file system in production
	return template.Must(
		template.New("layout.html").Funcs(funcs).ParseFS(files, "layout.html", file))
}

func execute(w io.Writer, file string, data *Data) error {
	if data.Form == nil {
		data.Form = forms.New(nil)
	}
	return parse(file, functions(data.Location)).Execute(w, data)
}

func Index(w io.Writer, data *Data) error {
	return execute(w, "index.html", data)
}

func Detail(w io.Writer, data *Data) error {
	return execute(w, "detail.html", data)
}

func Category(w io.Writer, data *Data) error {
	return execute(w, "category.html", data)
}

func Profile(w io.Writer, data *Data) error {
	return execute(w, "profile.html", data)
}

func ProfileEdit(w io.Writer, data *Data) error {
	return execute(w, "profile_edit.html", data)
}

func PostForm(w io.Writer, data *Data) error {
	return execute(w, "post_form.html", data)
}

func PostDelete(w io.Writer, data *Data) error {
	return execute(w, "post_delete.html", data)
}

func CommentForm(w io.Writer, data *Data) error {
	return execute(w, "comment.html", data)
}

func Login(w io.Writer, data *Data) error {
	return execute(w, "login.html", data)
}

func Registration(w io.Writer, data *Data) error {
	return execute(w, "registration.html", data)
}

func About(w io.Writer, data *Data) error {
	return execute(w, "about.html", data)
}

func Rules(w io.Writer, data *Data) error {
	return execute(w, "rules.html", data)
}

func Admin(w io.Writer, data *Data) error {
	return execute(w, "admin.html", data)
}

func Error(w io.Writer, data *Data) error {
	return execute(w, "error.html", data)
}
