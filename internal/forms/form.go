// Package forms validates submitted HTML forms and keeps the entered values
// so a rejected form can be rendered again.
package forms

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// DateTimeLayouts are accepted for datetime fields, the first one is what
// an <input type="datetime-local"> submits.
var DateTimeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

type Form struct {
	url.Values
	Errors map[string][]string
}

func New(data url.Values) *Form {
	if data == nil {
		data = url.Values{}
	}
	return &Form{Values: data, Errors: map[string][]string{}}
}

// Value returns the trimmed field value.
func (f *Form) Value(field string) string {
	return strings.TrimSpace(f.Get(field))
}

func (f *Form) AddError(field, message string) {
	f.Errors[field] = append(f.Errors[field], message)
}

// Error returns the first message for field, or "".
func (f *Form) Error(field string) string {
	if errs := f.Errors[field]; len(errs) > 0 {
		return errs[0]
	}
	return ""
}

// NonFieldError is the message not tied to any input.
func (f *Form) NonFieldError() string {
	return f.Error("")
}

func (f *Form) Valid() bool {
	return len(f.Errors) == 0
}

func (f *Form) Required(fields ...string) {
	for _, field := range fields {
		if f.Value(field) == "" {
			f.AddError(field, "This field is required.")
		}
	}
}

func (f *Form) MaxLength(field string, n int) {
	if utf8.RuneCountInString(f.Value(field)) > n {
		f.AddError(field, fmt.Sprintf("Ensure this value has at most %d characters.", n))
	}
}

func (f *Form) MinLength(field string, n int) {
	if v := f.Get(field); v != "" && utf8.RuneCountInString(v) < n {
		f.AddError(field, fmt.Sprintf("Ensure this value has at least %d characters.", n))
	}
}

func (f *Form) Matches(field string, pattern *regexp.Regexp, message string) {
	if v := f.Value(field); v != "" && !pattern.MatchString(v) {
		f.AddError(field, message)
	}
}

func (f *Form) Equal(field, other, message string) {
	if f.Get(field) != f.Get(other) {
		f.AddError(other, message)
	}
}

// ID parses an optional numeric id field. Empty yields 0.
func (f *Form) ID(field string) int64 {
	v := f.Value(field)
	if v == "" {
		return 0
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 1 {
		f.AddError(field, "Select a valid choice.")
		return 0
	}
	return id
}

// DateTime parses a required datetime field in loc.
func (f *Form) DateTime(field string, loc *time.Location) time.Time {
	v := f.Value(field)
	if v == "" {
		f.AddError(field, "This field is required.")
		return time.Time{}
	}
	for _, layout := range DateTimeLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t
		}
	}
	f.AddError(field, "Enter a valid date/time.")
	return time.Time{}
}

// Bool reads a checkbox.
func (f *Form) Bool(field string) bool {
	switch strings.ToLower(f.Value(field)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
