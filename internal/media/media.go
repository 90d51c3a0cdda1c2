// Package media stores images uploaded with posts.
package media

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// PostImages is the subdirectory post images are written to.
const PostImages = "posts_images"

// MaxImageSize bounds a single upload.
const MaxImageSize = 5 << 20

var (
	ErrNotImage = errors.New("upload a valid image")
	ErrTooLarge = errors.Errorf("image larger than %d bytes", MaxImageSize)
)

var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type Store struct {
	Dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, PostImages), 0o755); err != nil {
		return nil, errors.Wrap(err, "create media dir")
	}
	return &Store{Dir: dir}, nil
}

// Save sniffs the content type, writes the image under a random name and
// returns the name relative to Dir, e.g. "posts_images/<uuid>.png".
func (s *Store) Save(r io.Reader) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "read upload")
	}
	head = head[:n]

	ext, ok := allowed[http.DetectContentType(head)]
	if !ok {
		return "", ErrNotImage
	}

	name := path.Join(PostImages, uuid.NewString()+ext)
	f, err := os.Create(filepath.Join(s.Dir, filepath.FromSlash(name)))
	if err != nil {
		return "", errors.Wrap(err, "create image file")
	}
	defer f.Close()

	body := io.MultiReader(bytes.NewReader(head), r)
	written, err := io.Copy(f, io.LimitReader(body, MaxImageSize+1))
	if err != nil {
		discard(f)
		return "", errors.Wrap(err, "write image")
	}
	if written > MaxImageSize {
		discard(f)
		return "", ErrTooLarge
	}
	return name, nil
}

// discard drops a partly written upload.
func discard(f *os.File) {
	f.Close()
	os.Remove(f.Name())
}

// Remove deletes a stored image. Unknown or empty names are ignored.
func (s *Store) Remove(name string) error {
	if name == "" || !strings.HasPrefix(name, PostImages+"/") || strings.Contains(name, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, filepath.FromSlash(name)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove image")
	}
	return nil
}

// Handler serves the stored files.
func (s *Store) Handler() http.Handler {
	return http.FileServer(http.Dir(s.Dir))
}
