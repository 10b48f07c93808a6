// Package validate classifies user input as a downloadable video URL.
package validate

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ReasonInvalidURL is reported for non-empty input that is not a video URL
const ReasonInvalidURL = "invalid URL"

// TagVideoURL is the struct tag name registered with the validator
const TagVideoURL = "video_url"

// videoURLPattern accepts watch pages, short links and shorts, each followed by
// an 11 character video id. Anything after the id (query, playlist) is ignored.
var videoURLPattern = regexp.MustCompile(
	`^(https?://)?(www\.)?(youtube\.com/(watch\?v=|shorts/)|youtu\.be/)[a-zA-Z0-9_-]{11}`,
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = Register(validate)
}

// URL reports whether raw is an acceptable video URL. Blank input is not an
// error yet (nothing submitted) but is never valid.
func URL(raw string) (bool, string) {
	if strings.TrimSpace(raw) == "" {
		return false, ""
	}
	if !videoURLPattern.MatchString(raw) {
		return false, ReasonInvalidURL
	}
	return true, ""
}

// IsValid is URL without the reason
func IsValid(raw string) bool {
	ok, _ := URL(raw)
	return ok
}

// Register adds the video_url tag to v
func Register(v *validator.Validate) error {
	return v.RegisterValidation(TagVideoURL, func(fl validator.FieldLevel) bool {
		return IsValid(fl.Field().String())
	})
}

// Var validates a single value against a tag expression such as "required,video_url"
func Var(value interface{}, tag string) error {
	return validate.Var(value, tag)
}

// Struct validates s using the shared validator with video_url registered
func Struct(s interface{}) error {
	return validate.Struct(s)
}
