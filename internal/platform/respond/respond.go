// Package respond owns the single error body shape of the API. Every error,
// whether produced by huma, a handler, the router or a recovered panic, is
// rendered as {error, details, status, traceId}.
package respond

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/harvestbridge/harvest-bridge/internal/platform/logging"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

const (
	msgNotFound         = "resource not found"
	msgMethodNotAllowed = "method not allowed"
	msgInternal         = "internal server error"
	msgValidation       = "validation failed"

	contentTypeJSON = "application/json"
	contentTypeCBOR = "application/cbor"
)

// Detail locates one problem in the request.
type Detail struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ErrorBody is the error response of every endpoint.
type ErrorBody struct {
	Message string   `json:"error"`
	Details []Detail `json:"details,omitempty"`
	Status  int      `json:"status"`
	TraceID string   `json:"traceId,omitempty"`
}

// Error implements huma.StatusError.
func (e *ErrorBody) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *ErrorBody) GetStatus() int {
	return e.Status
}

var installOnce sync.Once

// Install replaces huma's error constructors so generated validation errors
// and handler errors share ErrorBody. Safe to call more than once.
func Install() {
	installOnce.Do(func() {
		huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
			return newError(context.Background(), status, msg, errs...)
		}
		huma.NewErrorWithContext = func(hctx huma.Context, status int, msg string, errs ...error) huma.StatusError {
			ctx := context.Background()
			if hctx != nil {
				ctx = hctx.Context()
			}
			return newError(ctx, status, msg, errs...)
		}
	})
}

// Error builds a logged ErrorBody for handlers.
func Error(ctx context.Context, status int, msg string, errs ...error) huma.StatusError {
	return newError(ctx, status, msg, errs...)
}

// Invalid converts a schema validation failure into a 400 with one detail per
// issue. Other errors become a plain 400 carrying err's message.
func Invalid(ctx context.Context, err error) huma.StatusError {
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		details := make([]Detail, 0, len(verr.Issues))
		for _, is := range verr.Issues {
			details = append(details, Detail{Path: is.Path, Message: is.Message})
		}
		return build(ctx, http.StatusBadRequest, msgValidation, details, err)
	}
	return newError(ctx, http.StatusBadRequest, err.Error())
}

// Unavailable is a 503 telling the caller when to come back.
func Unavailable(ctx context.Context, msg string, retryAfterSeconds int, err error) error {
	se := newError(ctx, http.StatusServiceUnavailable, msg, err)
	return huma.ErrorWithHeaders(se, http.Header{
		"Retry-After": []string{fmt.Sprint(retryAfterSeconds)},
	})
}

func newError(ctx context.Context, status int, msg string, errs ...error) *ErrorBody {
	// huma reports request validation as 422; the API contract uses 400.
	if status == http.StatusUnprocessableEntity {
		status = http.StatusBadRequest
	}
	var details []Detail
	if status < http.StatusInternalServerError {
		details = detailsFromErrors(errs)
	}
	return build(ctx, status, msg, details, errs...)
}

func build(ctx context.Context, status int, msg string, details []Detail, errs ...error) *ErrorBody {
	if status >= http.StatusInternalServerError {
		// Raw causes go to the log only.
		msg = messageOrDefault(status, "")
		if status == http.StatusInternalServerError {
			msg = msgInternal
		}
	} else {
		msg = messageOrDefault(status, msg)
	}
	body := &ErrorBody{Message: msg, Details: details, Status: status, TraceID: logging.TraceIDFromContext(ctx)}
	logWithStatus(ctx, body, errors.Join(errs...))
	return body
}

func detailsFromErrors(errs []error) []Detail {
	var details []Detail
	for _, err := range errs {
		if err == nil {
			continue
		}
		d := Detail{Message: err.Error()}
		var detailer huma.ErrorDetailer
		if errors.As(err, &detailer) {
			if ed := detailer.ErrorDetail(); ed != nil {
				d.Message = ed.Message
				d.Path = fieldPath(ed.Location)
				if name := missingProperty(ed.Message); name != "" && !strings.HasSuffix(d.Path, name) {
					d.Path = strings.TrimPrefix(d.Path+"."+name, ".")
				}
			}
		}
		details = append(details, d)
	}
	return details
}

// fieldPath turns huma locations like "body.product.price" into the bare
// document path "product.price".
func fieldPath(location string) string {
	for _, prefix := range []string{"body.", "query.", "path.", "header."} {
		if rest, ok := strings.CutPrefix(location, prefix); ok {
			return rest
		}
	}
	if location == "body" {
		return ""
	}
	return location
}

// missingProperty extracts the property name from huma's "expected required
// property X to be present" message, reported at the parent location.
func missingProperty(msg string) string {
	rest, ok := strings.CutPrefix(msg, "expected required property ")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, " ")
	return name
}

func messageOrDefault(status int, msg string) string {
	if strings.TrimSpace(msg) != "" {
		return msg
	}
	if text := http.StatusText(status); text != "" {
		return strings.ToLower(text)
	}
	return fmt.Sprintf("HTTP %d", status)
}

func logWithStatus(ctx context.Context, body *ErrorBody, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	fields := []zap.Field{zap.Int("status", body.Status)}
	if len(body.Details) > 0 {
		fields = append(fields, zap.Any("details", body.Details))
	}
	switch {
	case body.Status >= http.StatusInternalServerError:
		logging.LogError(ctx, body.Message, err, fields...)
	case body.Status >= http.StatusBadRequest:
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		logging.LogWarn(ctx, body.Message, fields...)
	default:
		logging.LogInfo(ctx, body.Message, fields...)
	}
}

// WriteError renders an ErrorBody outside huma, honoring Accept for CBOR.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string, errs ...error) {
	body := newError(r.Context(), status, msg, errs...)
	if err := write(w, r, body.Status, body); err != nil {
		logging.LogError(r.Context(), "failed to render error", err)
	}
}

func write(w http.ResponseWriter, r *http.Request, status int, v any) error {
	if wantsCBOR(r) {
		data, err := cbor.Marshal(v)
		if err != nil {
			return err
		}
		w.Header().Set("Content-Type", contentTypeCBOR)
		w.WriteHeader(status)
		_, err = w.Write(data)
		return err
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func wantsCBOR(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, contentTypeCBOR) && !strings.Contains(accept, contentTypeJSON)
}

// NotFoundHandler renders 404 for unknown routes.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, msgNotFound)
	}
}

// MethodNotAllowedHandler renders 405 with an Allow header.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allow := allowedMethods(r); len(allow) > 0 {
			w.Header().Set("Allow", strings.Join(allow, ", "))
		}
		WriteError(w, r, http.StatusMethodNotAllowed, fmt.Sprintf("%s: %s", msgMethodNotAllowed, r.Method))
	}
}

// Recoverer converts panics into 500 responses. http.ErrAbortHandler is
// re-raised so net/http can abort the connection.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity
					panic(rec)
				}
				var err error
				switch v := rec.(type) {
				case error:
					err = v
				default:
					err = fmt.Errorf("%v", v)
				}
				err = fmt.Errorf("panic: %w\n%s", err, debug.Stack())
				if rw.wroteHeader {
					// Too late for an error body; keep what the client already has.
					logging.LogError(r.Context(), "panic after response started", err)
					return
				}
				WriteError(rw, r, http.StatusInternalServerError, "", err)
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

// responseWriter remembers whether the status line has been sent.
type responseWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// allowedMethods inspects chi's routing tree for methods matching the path.
func allowedMethods(r *http.Request) []string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return nil
	}
	routePath := rctx.RoutePath
	if routePath == "" {
		routePath = r.URL.RawPath
		if routePath == "" {
			routePath = r.URL.Path
		}
		if routePath == "" {
			routePath = "/"
		}
	}
	methods := []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}
	allowed := make([]string, 0, len(methods))
	for _, method := range methods {
		if rctx.Routes.Match(chi.NewRouteContext(), method, routePath) {
			allowed = append(allowed, method)
		}
	}
	return allowed
}
