package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"blogicum/internal/config"
	"blogicum/internal/db"
	"blogicum/internal/media"
	"blogicum/pkg/utils"
)

type testEnv struct {
	srv      *Server
	store    *db.Store
	handler  http.Handler
	author   *db.User
	stranger *db.User
	staff    *db.User
	category *db.Category
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	images, err := media.New(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		SignKey:      []byte("test-sign-key"),
		PostsPerPage: 10,
		Location:     time.UTC,
	}
	srv := New(cfg, store, images, zap.NewNop())

	env := &testEnv{srv: srv, store: store, handler: srv.Routes()}
	env.author = env.user(t, "author", false)
	env.stranger = env.user(t, "stranger", false)
	env.staff = env.user(t, "moderator", true)

	env.category = &db.Category{Title: "Travel", Slug: "travel", IsPublished: true}
	_, err = store.CreateCategory(ctx, env.category)
	require.NoError(t, err)
	return env
}

func (e *testEnv) user(t *testing.T, username string, staff bool) *db.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &db.User{Username: username, PasswordHash: hash, IsStaff: staff}
	_, err = e.store.CreateUser(context.Background(), u)
	require.NoError(t, err)
	return u
}

func (e *testEnv) post(t *testing.T, title string, published bool, pubDate time.Time) *db.Post {
	t.Helper()
	p := &db.Post{
		AuthorId:    e.author.Id,
		Title:       title,
		Text:        "text of " + title,
		PubDate:     pubDate,
		IsPublished: published,
		Category:    &db.Category{Id: e.category.Id},
	}
	_, err := e.store.CreatePost(context.Background(), p)
	require.NoError(t, err)
	return p
}

func (e *testEnv) comment(t *testing.T, postID int64, author *db.User) *db.Comment {
	t.Helper()
	c := &db.Comment{PostId: postID, AuthorId: author.Id, Text: "nice post", IsPublished: true}
	_, err := e.store.CreateComment(context.Background(), c)
	require.NoError(t, err)
	return c
}

func (e *testEnv) login(t *testing.T, r *http.Request, u *db.User) {
	t.Helper()
	if u == nil {
		return
	}
	token, err := utils.GenerateToken(e.srv.cfg.SignKey, u.Id)
	require.NoError(t, err)
	r.AddCookie(&http.Cookie{Name: jwtCookie, Value: token})
}

func (e *testEnv) get(t *testing.T, target string, u *db.User) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, target, nil)
	e.login(t, r, u)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

// postForm submits form with a valid csrf token for u.
func (e *testEnv) postForm(t *testing.T, target string, u *db.User, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set(csrfField, e.srv.csrfToken(u))
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	e.login(t, r, u)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func postPath(id int64, suffix string) string {
	return "/posts/" + strconv.FormatInt(id, 10) + suffix
}

func countPosts(body string) int {
	return strings.Count(body, `<article class="post">`)
}

func TestIndexPagination(t *testing.T) {
	e := newTestEnv(t)
	past := time.Now().Add(-time.Hour)
	for i := 0; i < 25; i++ {
		e.post(t, "post "+strconv.Itoa(i), true, past.Add(-time.Duration(i)*time.Minute))
	}
	e.post(t, "draft", false, past)
	e.post(t, "scheduled", true, time.Now().Add(time.Hour))

	tests := []struct {
		query string
		want  int
	}{
		{"", 10},
		{"?page=1", 10},
		{"?page=2", 10},
		{"?page=3", 5},
		{"?page=4", 0},
		{"?page=abc", 10},
		{"?page=-1", 10},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := e.get(t, "/"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, countPosts(w.Body.String()))
			assert.NotContains(t, w.Body.String(), "draft")
			assert.NotContains(t, w.Body.String(), "scheduled")
		})
	}

	assert.Contains(t, e.get(t, "/?page=2", nil).Body.String(), "11-20 of 25")
	assert.Contains(t, e.get(t, "/?page=4", nil).Body.String(), `href="?page=3"`, "empty page links back")

	body := e.get(t, "/", nil).Body.String()
	assert.Contains(t, body, "1-10 of 25")
	assert.Contains(t, body, "post 0", "newest first")
	assert.NotContains(t, body, "post 10<")
}

func TestPostDetailVisibility(t *testing.T) {
	e := newTestEnv(t)
	visible := e.post(t, "visible", true, time.Now().Add(-time.Hour))
	hidden := e.post(t, "hidden", false, time.Now().Add(-time.Hour))
	scheduled := e.post(t, "scheduled", true, time.Now().Add(time.Hour))

	for _, u := range []*db.User{nil, e.author, e.stranger, e.staff} {
		assert.Equal(t, http.StatusOK, e.get(t, postPath(visible.Id, ""), u).Code)
	}
	for _, p := range []*db.Post{hidden, scheduled} {
		assert.Equal(t, http.StatusNotFound, e.get(t, postPath(p.Id, ""), nil).Code, "anonymous")
		assert.Equal(t, http.StatusNotFound, e.get(t, postPath(p.Id, ""), e.stranger).Code, "stranger")
		assert.Equal(t, http.StatusOK, e.get(t, postPath(p.Id, ""), e.author).Code, "author")
		assert.Equal(t, http.StatusOK, e.get(t, postPath(p.Id, ""), e.staff).Code, "staff")
	}

	assert.Equal(t, http.StatusNotFound, e.get(t, "/posts/9999", nil).Code)
}

func TestPostInUnpublishedCategoryIsHidden(t *testing.T) {
	e := newTestEnv(t)
	p := e.post(t, "travel notes", true, time.Now().Add(-time.Hour))
	require.NoError(t, e.store.SetCategoryPublished(context.Background(), e.category.Id, false))

	assert.Equal(t, http.StatusNotFound, e.get(t, postPath(p.Id, ""), e.stranger).Code)
	assert.Equal(t, http.StatusOK, e.get(t, postPath(p.Id, ""), e.author).Code)
	assert.Equal(t, 0, countPosts(e.get(t, "/", nil).Body.String()))
}

func TestCategoryFeed(t *testing.T) {
	e := newTestEnv(t)
	e.post(t, "in travel", true, time.Now().Add(-time.Hour))

	other := &db.Category{Title: "Food", Slug: "food", IsPublished: true}
	_, err := e.store.CreateCategory(context.Background(), other)
	require.NoError(t, err)

	w := e.get(t, "/category/travel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, countPosts(w.Body.String()))

	w = e.get(t, "/category/food", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, countPosts(w.Body.String()))

	assert.Equal(t, http.StatusNotFound, e.get(t, "/category/missing", nil).Code)

	require.NoError(t, e.store.SetCategoryPublished(context.Background(), other.Id, false))
	assert.Equal(t, http.StatusNotFound, e.get(t, "/category/food", nil).Code)
}

func TestProfileListsHiddenPostsForOwnerOnly(t *testing.T) {
	e := newTestEnv(t)
	e.post(t, "public entry", true, time.Now().Add(-time.Hour))
	e.post(t, "secret draft", false, time.Now().Add(-time.Hour))

	w := e.get(t, "/profile/author", e.author)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, countPosts(w.Body.String()))
	assert.Contains(t, w.Body.String(), "/profile/edit")

	w = e.get(t, "/profile/author", e.stranger)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, countPosts(w.Body.String()))
	assert.NotContains(t, w.Body.String(), "secret draft")

	assert.Equal(t, 2, countPosts(e.get(t, "/profile/author", e.staff).Body.String()))
	assert.Equal(t, http.StatusNotFound, e.get(t, "/profile/nobody", nil).Code)
}

func TestRequireAuthRedirectsToLogin(t *testing.T) {
	e := newTestEnv(t)

	w := e.get(t, "/posts/create", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login?next=%2Fposts%2Fcreate", w.Header().Get("Location"))

	assert.Equal(t, http.StatusOK, e.get(t, "/posts/create", e.author).Code)
}

func TestCreatePost(t *testing.T) {
	e := newTestEnv(t)
	pubDate := time.Now().Add(-time.Hour).UTC().Format(formDateTime)

	w := e.postForm(t, "/posts/create", e.author, url.Values{
		"title":    {"Fresh"},
		"text":     {"Hello **world**"},
		"pub_date": {pubDate},
		"category": {strconv.FormatInt(e.category.Id, 10)},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/profile/author", w.Header().Get("Location"))

	posts, err := e.store.ListPosts(context.Background(), db.ByAuthor(e.author.Id))
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Fresh", posts[0].Title)
	assert.True(t, posts[0].IsPublished)
	assert.Nil(t, posts[0].Location)
}

func TestCreatePostInvalid(t *testing.T) {
	e := newTestEnv(t)

	w := e.postForm(t, "/posts/create", e.author, url.Values{
		"title":    {""},
		"pub_date": {"yesterday"},
		"category": {"999"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required.")
	assert.Contains(t, w.Body.String(), "Enter a valid date/time.")
	assert.Contains(t, w.Body.String(), "Select a valid choice.")

	n, err := e.store.CountPosts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

// postMultipart submits fields and an optional image as multipart form data.
func (e *testEnv) postMultipart(t *testing.T, target string, u *db.User, fields map[string]string, image []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField(csrfField, e.srv.csrfToken(u)))
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "pic.png")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, target, &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	e.login(t, r, u)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

const pngHeader = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01"

func (e *testEnv) postFields(title string) map[string]string {
	return map[string]string{
		"title":    title,
		"text":     "look",
		"pub_date": time.Now().UTC().Format(formDateTime),
		"category": strconv.FormatInt(e.category.Id, 10),
	}
}

func (e *testEnv) storedImages(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(e.srv.media.Dir, media.PostImages))
	require.NoError(t, err)
	return entries
}

func TestCreatePostWithImage(t *testing.T) {
	e := newTestEnv(t)

	w := e.postMultipart(t, "/posts/create", e.author, e.postFields("With picture"), []byte(pngHeader))
	require.Equal(t, http.StatusSeeOther, w.Code)

	posts, err := e.store.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.True(t, strings.HasPrefix(posts[0].Image, media.PostImages+"/"))
	assert.True(t, strings.HasSuffix(posts[0].Image, ".png"))

	_, err = os.Stat(filepath.Join(e.srv.media.Dir, filepath.FromSlash(posts[0].Image)))
	assert.NoError(t, err)
}

func TestCreatePostImageTooLarge(t *testing.T) {
	e := newTestEnv(t)

	image := append([]byte(pngHeader), make([]byte, 6<<20)...)
	w := e.postMultipart(t, "/posts/create", e.author, e.postFields("Huge picture"), image)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "The image may be at most 5 MB.")

	n, err := e.store.CountPosts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, e.storedImages(t))
}

func TestRequestBodyTooLarge(t *testing.T) {
	e := newTestEnv(t)

	image := append([]byte(pngHeader), make([]byte, maxBodySize)...)
	w := e.postMultipart(t, "/posts/create", e.author, e.postFields("Way too big"), image)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "The upload is too large")

	n, err := e.store.CountPosts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDatesFollowConfiguredZone(t *testing.T) {
	e := newTestEnv(t)
	moscow, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	e.srv.cfg.Location = moscow

	w := e.postForm(t, "/posts/create", e.author, url.Values{
		"title":    {"Red Square"},
		"text":     {"cold"},
		"pub_date": {"2020-01-02T12:00"},
		"category": {strconv.FormatInt(e.category.Id, 10)},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)

	posts, err := e.store.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, time.Date(2020, 1, 2, 9, 0, 0, 0, time.UTC), posts[0].PubDate.UTC())

	body := e.get(t, postPath(posts[0].Id, ""), nil).Body.String()
	assert.Contains(t, body, "2 January 2020, 12:00")
	assert.NotContains(t, body, "2 January 2020, 09:00")

	body = e.get(t, postPath(posts[0].Id, "/edit"), e.author).Body.String()
	assert.Contains(t, body, `value="2020-01-02T12:00"`)
}

func TestEditPostOwnerOnly(t *testing.T) {
	e := newTestEnv(t)
	p := e.post(t, "first version", false, time.Now().Add(-time.Hour))
	form := url.Values{
		"title":    {"changed"},
		"text":     {"new text"},
		"pub_date": {time.Now().UTC().Format(formDateTime)},
		"category": {strconv.FormatInt(e.category.Id, 10)},
	}

	for _, u := range []*db.User{e.stranger, e.staff} {
		w := e.get(t, postPath(p.Id, "/edit"), u)
		assert.Equal(t, http.StatusSeeOther, w.Code, u.Username)
		assert.Equal(t, postPath(p.Id, ""), w.Header().Get("Location"))

		w = e.postForm(t, postPath(p.Id, "/edit"), u, form)
		assert.Equal(t, http.StatusSeeOther, w.Code, u.Username)
		assert.Equal(t, postPath(p.Id, ""), w.Header().Get("Location"))
	}
	got, err := e.store.GetPost(context.Background(), p.Id)
	require.NoError(t, err)
	assert.Equal(t, "first version", got.Title)

	assert.Equal(t, http.StatusOK, e.get(t, postPath(p.Id, "/edit"), e.author).Code)
	w := e.postForm(t, postPath(p.Id, "/edit"), e.author, form)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, postPath(p.Id, ""), w.Header().Get("Location"))

	got, err = e.store.GetPost(context.Background(), p.Id)
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Title)
	assert.False(t, got.IsPublished, "editing does not publish")
}

func TestDeletePost(t *testing.T) {
	e := newTestEnv(t)
	p := e.post(t, "doomed", true, time.Now().Add(-time.Hour))
	c := e.comment(t, p.Id, e.stranger)

	w := e.postForm(t, postPath(p.Id, "/delete"), e.stranger, nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, postPath(p.Id, ""), w.Header().Get("Location"))
	_, err := e.store.GetPost(context.Background(), p.Id)
	require.NoError(t, err)

	w = e.get(t, postPath(p.Id, "/delete"), e.author)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "doomed")

	w = e.postForm(t, postPath(p.Id, "/delete"), e.author, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/profile/author", w.Header().Get("Location"))

	_, err = e.store.GetPost(context.Background(), p.Id)
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = e.store.GetComment(context.Background(), p.Id, c.Id)
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, e.get(t, postPath(p.Id, ""), e.author).Code)
}

func TestAddComment(t *testing.T) {
	e := newTestEnv(t)
	p := e.post(t, "talk", true, time.Now().Add(-time.Hour))

	w := e.postForm(t, postPath(p.Id, "/comment"), e.stranger, url.Values{"text": {"first!"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, postPath(p.Id, ""), w.Header().Get("Location"))

	body := e.get(t, postPath(p.Id, ""), nil).Body.String()
	assert.Contains(t, body, "first!")
	assert.Contains(t, body, "Comments (1)")

	assert.Equal(t, http.StatusFound, e.postForm(t, postPath(p.Id, "/comment"), nil, url.Values{"text": {"anon"}}).Code)
	assert.Equal(t, http.StatusNotFound, e.postForm(t, "/posts/9999/comment", e.stranger, url.Values{"text": {"x"}}).Code)
}

func TestAddCommentToHiddenPost(t *testing.T) {
	e := newTestEnv(t)
	p := e.post(t, "draft", false, time.Now().Add(-time.Hour))

	w := e.postForm(t, postPath(p.Id, "/comment"), e.stranger, url.Values{"text": {"sneaky"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	comments, err := e.store.ListComments(context.Background(), p.Id, 0)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestEditCommentOwnerOnly(t *testing.T) {
	e := newTestEnv(t)
	p := e.post(t, "talk", true, time.Now().Add(-time.Hour))
	c := e.comment(t, p.Id, e.stranger)
	editPath := postPath(p.Id, "/comments/"+strconv.FormatInt(c.Id, 10)+"/edit")

	for _, u := range []*db.User{e.author, e.staff} {
		w := e.postForm(t, editPath, u, url.Values{"text": {"rewritten"}})
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, postPath(p.Id, ""), w.Header().Get("Location"))
	}
	got, err := e.store.GetComment(context.Background(), p.Id, c.Id)
	require.NoError(t, err)
	assert.Equal(t, "nice post", got.Text)

	assert.Equal(t, http.StatusOK, e.get(t, editPath, e.stranger).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, e.postForm(t, editPath, e.stranger, url.Values{"text": {" "}}).Code)

	w := e.postForm(t, editPath, e.stranger, url.Values{"text": {"rewritten"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	got, err = e.store.GetComment(context.Background(), p.Id, c.Id)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", got.Text)
}

func TestCommentMustBelongToPost(t *testing.T) {
	e := newTestEnv(t)
	p1 := e.post(t, "one", true, time.Now().Add(-time.Hour))
	p2 := e.post(t, "two", true, time.Now().Add(-time.Hour))
	c := e.comment(t, p1.Id, e.stranger)

	w := e.get(t, postPath(p2.Id, "/comments/"+strconv.FormatInt(c.Id, 10)+"/delete"), e.stranger)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteComment(t *testing.T) {
	e := newTestEnv(t)
	p := e.post(t, "talk", true, time.Now().Add(-time.Hour))
	c := e.comment(t, p.Id, e.stranger)
	deletePath := postPath(p.Id, "/comments/"+strconv.FormatInt(c.Id, 10)+"/delete")

	assert.Equal(t, http.StatusSeeOther, e.postForm(t, deletePath, e.author, nil).Code)
	_, err := e.store.GetComment(context.Background(), p.Id, c.Id)
	require.NoError(t, err, "post author cannot delete other comments")

	assert.Equal(t, http.StatusOK, e.get(t, deletePath, e.stranger).Code)
	assert.Equal(t, http.StatusSeeOther, e.postForm(t, deletePath, e.stranger, nil).Code)
	_, err = e.store.GetComment(context.Background(), p.Id, c.Id)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestCSRFRequired(t *testing.T) {
	e := newTestEnv(t)
	p := e.post(t, "talk", true, time.Now().Add(-time.Hour))

	form := url.Values{"text": {"forged"}}
	r := httptest.NewRequest(http.MethodPost, postPath(p.Id, "/comment"), strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	e.login(t, r, e.stranger)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// a token issued to another user does not verify either
	form.Set(csrfField, e.srv.csrfToken(e.author))
	r = httptest.NewRequest(http.MethodPost, postPath(p.Id, "/comment"), strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	e.login(t, r, e.stranger)
	w = httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)

	comments, err := e.store.ListComments(context.Background(), p.Id, 0)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)

	w := e.postForm(t, "/auth/login", nil, url.Values{"username": {"author"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, w.Result().Cookies())

	w = e.postForm(t, "/auth/login", nil, url.Values{
		"username": {"author"},
		"password": {"secret-password"},
		"next":     {"/posts/create"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/posts/create", w.Header().Get("Location"))

	var jwt *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == jwtCookie {
			jwt = c
		}
	}
	require.NotNil(t, jwt)
	assert.True(t, jwt.HttpOnly)

	r := httptest.NewRequest(http.MethodGet, "/posts/create", nil)
	r.AddCookie(jwt)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRejectsOffsiteNext(t *testing.T) {
	e := newTestEnv(t)
	w := e.postForm(t, "/auth/login", nil, url.Values{
		"username": {"author"},
		"password": {"secret-password"},
		"next":     {"//evil.example.com"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/profile/author", w.Header().Get("Location"))
}

func TestRegistration(t *testing.T) {
	e := newTestEnv(t)
	form := url.Values{
		"username":  {"newbie"},
		"email":     {"newbie@example.com"},
		"password1": {"long-enough-1"},
		"password2": {"long-enough-1"},
	}

	w := e.postForm(t, "/auth/registration", nil, form)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/auth/login", w.Header().Get("Location"))

	u, err := e.store.GetUserByUsername(context.Background(), "newbie")
	require.NoError(t, err)
	assert.False(t, u.IsStaff)
	assert.NoError(t, bcrypt.CompareHashAndPassword(u.PasswordHash, []byte("long-enough-1")))

	w = e.postForm(t, "/auth/registration", nil, form)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")

	form.Set("username", "edit")
	assert.Equal(t, http.StatusUnprocessableEntity, e.postForm(t, "/auth/registration", nil, form).Code)

	form.Set("username", "other")
	form.Set("password2", "different")
	assert.Equal(t, http.StatusUnprocessableEntity, e.postForm(t, "/auth/registration", nil, form).Code)
}

func TestProfileEdit(t *testing.T) {
	e := newTestEnv(t)

	w := e.postForm(t, "/profile/edit", e.author, url.Values{
		"username":   {"writer"},
		"first_name": {"Ann"},
		"last_name":  {"Lee"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/profile/writer", w.Header().Get("Location"))

	u, err := e.store.GetUser(context.Background(), e.author.Id)
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", u.FullName())

	w = e.postForm(t, "/profile/edit", e.author, url.Values{"username": {"stranger"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAdminIsStaffOnly(t *testing.T) {
	e := newTestEnv(t)

	assert.Equal(t, http.StatusFound, e.get(t, "/admin", nil).Code)
	assert.Equal(t, http.StatusNotFound, e.get(t, "/admin", e.author).Code)
	assert.Equal(t, http.StatusOK, e.get(t, "/admin", e.staff).Code)

	w := e.postForm(t, "/admin/categories", e.author, url.Values{"title": {"Hack"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminModeration(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.post(t, "report", true, time.Now().Add(-time.Hour))

	w := e.postForm(t, "/admin/categories", e.staff, url.Values{"title": {"Big News"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	news, err := e.store.GetCategoryBySlug(ctx, "big-news")
	require.NoError(t, err)
	assert.True(t, news.IsPublished)

	w = e.postForm(t, "/admin/categories", e.staff, url.Values{"title": {"Again"}, "slug": {"big-news"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = e.postForm(t, postPath(p.Id, "/publish"), e.staff, url.Values{"is_published": {"false"}})
	assert.Equal(t, http.StatusNotFound, w.Code, "publish lives under /admin")

	w = e.postForm(t, "/admin"+postPath(p.Id, "/publish"), e.staff, url.Values{"is_published": {"false"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	got, err := e.store.GetPost(ctx, p.Id)
	require.NoError(t, err)
	assert.False(t, got.IsPublished)

	w = e.postForm(t, "/admin/locations", e.staff, url.Values{"name": {"Harbour"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	locations, err := e.store.ListLocations(ctx)
	require.NoError(t, err)
	require.Len(t, locations, 1)

	path := "/admin/locations/" + strconv.FormatInt(locations[0].Id, 10)
	require.Equal(t, http.StatusSeeOther, e.postForm(t, path+"/publish", e.staff, url.Values{"is_published": {"false"}}).Code)
	require.Equal(t, http.StatusSeeOther, e.postForm(t, path+"/delete", e.staff, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.postForm(t, path+"/delete", e.staff, nil).Code)

	path = "/admin/categories/" + strconv.FormatInt(e.category.Id, 10)
	require.Equal(t, http.StatusSeeOther, e.postForm(t, path+"/delete", e.staff, nil).Code)
	got, err = e.store.GetPost(ctx, p.Id)
	require.NoError(t, err)
	assert.Nil(t, got.Category)
}

func TestStaticPages(t *testing.T) {
	e := newTestEnv(t)
	assert.Equal(t, http.StatusOK, e.get(t, "/pages/about", nil).Code)
	assert.Equal(t, http.StatusOK, e.get(t, "/pages/rules", nil).Code)
	assert.Equal(t, http.StatusNotFound, e.get(t, "/pages/missing", nil).Code)
}

func TestLogout(t *testing.T) {
	e := newTestEnv(t)
	w := e.get(t, "/auth/logout", e.author)
	require.Equal(t, http.StatusSeeOther, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, jwtCookie, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}
