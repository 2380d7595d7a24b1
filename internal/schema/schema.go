// Package schema declares the write payloads of the marketplace once, for the
// API handlers and the client library alike, together with their validation.
package schema

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Issue is one failed constraint. Path uses JSON field names joined by dots,
// e.g. "product.price" or "farmImages[2]".
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError carries every issue found in a payload.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		if is.Path == "" {
			parts = append(parts, is.Message)
			continue
		}
		parts = append(parts, is.Path+": "+is.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Result is the non-throwing outcome of SafeParse.
type Result struct {
	Success bool
	Errors  []Issue
}

// Normalizer is implemented by payloads that canonicalize themselves (trim
// whitespace, lowercase emails) before validation.
type Normalizer interface {
	Normalize()
}

var (
	validateOnce sync.Once
	validate     *validator.Validate

	phonePattern    = regexp.MustCompile(`^[0-9+\-() ]+$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
		mustRegister(v, "username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
		mustRegister(v, "image_ref", func(fl validator.FieldLevel) bool {
			return IsImageRef(fl.Field().String())
		})
		v.RegisterStructValidation(farmRefinement, FarmProfile{})
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("schema: register %s: %v", tag, err))
	}
}

// Parse normalizes v when it implements Normalizer and validates it. It
// returns nil or a *ValidationError. v is usually a pointer to a payload.
func Parse(v any) error {
	if rv := reflect.ValueOf(v); !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return &ValidationError{Issues: []Issue{{Message: "payload is required"}}}
	}
	if n, ok := v.(Normalizer); ok {
		n.Normalize()
	}
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: programming mistake such as a nil pointer.
		return &ValidationError{Issues: []Issue{{Message: err.Error()}}}
	}
	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, Issue{Path: fieldPath(fe.Namespace()), Message: message(fe)})
	}
	return &ValidationError{Issues: issues}
}

// SafeParse is Parse without the error value.
func SafeParse(v any) Result {
	err := Parse(v)
	if err == nil {
		return Result{Success: true}
	}
	var verr *ValidationError
	errors.As(err, &verr)
	return Result{Errors: verr.Issues}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		return ""
	}
	return rest
}

func message(fe validator.FieldError) string {
	param := fe.Param()
	isString := fe.Kind() == reflect.String
	isList := fe.Kind() == reflect.Slice
	switch fe.Tag() {
	case "required":
		return "is required"
	case "cooperative":
		return "is required when belongsToCooperative is true"
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters", param)
		}
		return fmt.Sprintf("must be at least %s", param)
	case "max":
		switch {
		case isString:
			return fmt.Sprintf("must be at most %s characters", param)
		case isList:
			return fmt.Sprintf("must contain at most %s items", param)
		}
		return fmt.Sprintf("must be at most %s", param)
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", param)
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", param)
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "phone":
		return "must contain only digits, spaces and + - ( )"
	case "username":
		return "may contain only letters, digits, underscores and dots"
	case "image_ref":
		return "must be an http(s) URL or a base64 image data URI"
	case "iso4217":
		return "must be an ISO 4217 currency code"
	case "datetime":
		return fmt.Sprintf("must be a date in the form %s", param)
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// IsImageRef reports whether s is an http(s) URL or a base64 image data URI.
// The media offloader applies the size and content checks.
func IsImageRef(s string) bool {
	if strings.HasPrefix(s, "data:") {
		return strings.HasPrefix(s, "data:image/") && strings.Contains(s, ";base64,")
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func trim(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

// trimAll returns the trimmed, non-blank entries of list in a new slice.
func trimAll(list []string) []string {
	if len(list) == 0 {
		return list
	}
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
