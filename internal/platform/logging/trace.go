package logging

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	traceparentHeader = "traceparent"
	// Sent by Cloud Run and the Google front end: TRACE_ID/SPAN_ID;o=OPTIONS
	// with a decimal span id.
	cloudTraceHeader = "X-Cloud-Trace-Context"
)

// W3C: {version}-{trace-id}-{parent-id}-{trace-flags}
var (
	traceparentRe = regexp.MustCompile(`^([0-9a-fA-F]{2})-([0-9a-fA-F]{32})-([0-9a-fA-F]{16})-([0-9a-fA-F]{2})$`)
	cloudTraceRe  = regexp.MustCompile(`^([0-9a-fA-F]{32})(?:/([0-9]+))?(?:;o=([01]))?$`)
)

var projectID = sync.OnceValue(func() string {
	for _, key := range []string{"FIREBASE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT", "GCP_PROJECT"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
})

// span is the trace position of one request.
type span struct {
	traceID string
	spanID  string
	sampled bool
}

// spanFromHeaders prefers traceparent and falls back to the Cloud Trace
// header. ok is false when neither parses.
func spanFromHeaders(traceparent, cloudTrace string) (s span, ok bool) {
	if m := traceparentRe.FindStringSubmatch(traceparent); m != nil {
		return span{traceID: strings.ToLower(m[2]), spanID: strings.ToLower(m[3]), sampled: m[4] == "01"}, true
	}
	if m := cloudTraceRe.FindStringSubmatch(cloudTrace); m != nil {
		s = span{traceID: strings.ToLower(m[1]), sampled: m[3] == "1"}
		if m[2] != "" {
			if id, err := strconv.ParseUint(m[2], 10, 64); err == nil {
				s.spanID = strconv.FormatUint(id, 16)
			}
		}
		return s, true
	}
	return span{}, false
}

// resource is the Cloud Logging trace name, e.g. projects/p/traces/abc.
func (s span) resource(project string) string {
	return "projects/" + project + "/traces/" + s.traceID
}

// fields are the Cloud Logging special fields that group a request's entries.
func (s span) fields(project string) []zap.Field {
	fields := []zap.Field{zap.String("logging.googleapis.com/trace", s.resource(project))}
	if s.spanID != "" {
		fields = append(fields, zap.String("logging.googleapis.com/spanId", s.spanID))
	}
	return append(fields, zap.Bool("logging.googleapis.com/trace_sampled", s.sampled))
}
