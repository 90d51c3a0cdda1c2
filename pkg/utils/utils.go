package utils

import (
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long a login stays valid.
const TokenTTL = 24 * time.Hour

// GenerateToken signs a login token for the user. jwtauth reads the user_id
// claim back on every request.
func GenerateToken(signKey []byte, userID int64) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(TokenTTL).Unix(),
	})
	return t.SignedString(signKey)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9_ -]+`)

// TitleToSlug lowercases the title, drops everything that is not allowed in
// a URL slug and joins the words with hyphens.
func TitleToSlug(title string) string {
	cleansed := nonSlug.ReplaceAllString(strings.ToLower(title), "")
	return strings.Join(strings.Fields(cleansed), "-")
}

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

func ValidSlug(slug string) bool {
	return slugPattern.MatchString(slug)
}

// SafeRedirect only accepts local absolute paths, anything else becomes fallback.
func SafeRedirect(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}
