package media

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	applog "github.com/harvestbridge/harvest-bridge/internal/platform/logging"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

// Offloader swaps data URIs in image lists for stored URLs.
type Offloader struct {
	store    Store
	maxBytes int
}

// NewOffloader returns an Offloader writing to store.
func NewOffloader(store Store) *Offloader {
	return &Offloader{store: store, maxBytes: MaxImageBytes}
}

// Resolve returns refs with every data URI uploaded and replaced by its URL.
// http(s) URLs pass through unchanged. field names the payload field for
// validation issues, e.g. "farmImages". Uploads already made are removed
// again when a later one fails.
func (o *Offloader) Resolve(ctx context.Context, owner string, kind Kind, field string, refs []string) ([]string, error) {
	if len(refs) == 0 {
		return refs, nil
	}
	out := make([]string, len(refs))
	var uploaded []string
	var issues []schema.Issue
	for i, ref := range refs {
		p := fmt.Sprintf("%s[%d]", field, i)
		if !IsDataURI(ref) {
			if !schema.IsImageRef(ref) {
				issues = append(issues, schema.Issue{Path: p, Message: "must be an http(s) URL or a base64 image data URI"})
			}
			out[i] = ref
			continue
		}
		contentType, data, err := Decode(ref, o.maxBytes)
		if err != nil {
			issues = append(issues, schema.Issue{Path: p, Message: issueMessage(err)})
			continue
		}
		if len(issues) > 0 {
			// Keep validating, but stop uploading once the payload is known bad.
			continue
		}
		url, err := o.store.Put(ctx, Object{
			Key:         objectKey(kind, owner, contentType),
			ContentType: contentType,
			Data:        data,
		})
		if err != nil {
			o.cleanup(ctx, uploaded)
			return nil, fmt.Errorf("store %s: %w", p, err)
		}
		uploaded = append(uploaded, url)
		out[i] = url
	}
	if len(issues) > 0 {
		o.cleanup(ctx, uploaded)
		return nil, &schema.ValidationError{Issues: issues}
	}
	return out, nil
}

// ResolveOne is Resolve for a single optional image.
func (o *Offloader) ResolveOne(ctx context.Context, owner string, kind Kind, field, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	out, err := o.Resolve(ctx, owner, kind, field, []string{ref})
	if err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			for i := range verr.Issues {
				verr.Issues[i].Path = field
			}
		}
		return "", err
	}
	return out[0], nil
}

// Release deletes stored images that are no longer referenced. Only objects
// stored for owner under kind are touched: documents may reference any URL,
// including another user's upload, and dropping that reference must not
// delete it. Failures are logged; orphaned objects are harmless.
func (o *Offloader) Release(ctx context.Context, kind Kind, owner string, urls ...string) {
	if owner == "" || strings.Contains(owner, "/") {
		return
	}
	prefix := string(kind) + "/" + owner + "/"
	owned := make([]string, 0, len(urls))
	for _, u := range urls {
		if key, ok := o.store.Key(u); ok && strings.HasPrefix(key, prefix) {
			owned = append(owned, u)
		} else if u != "" {
			applog.LogInfo(ctx, "not releasing image outside owner's prefix", zap.String("url", u), zap.String("prefix", prefix))
		}
	}
	o.cleanup(ctx, owned)
}

// Removed lists the entries of before missing from after.
func Removed(before, after []string) []string {
	keep := make(map[string]struct{}, len(after))
	for _, u := range after {
		keep[u] = struct{}{}
	}
	var out []string
	for _, u := range before {
		if _, ok := keep[u]; !ok {
			out = append(out, u)
		}
	}
	return out
}

func (o *Offloader) cleanup(ctx context.Context, urls []string) {
	for _, u := range urls {
		if err := o.store.Delete(ctx, u); err != nil {
			applog.LogWarn(ctx, "failed to delete stored image", zap.String("url", u), zap.Error(err))
		}
	}
}

func objectKey(kind Kind, owner, contentType string) string {
	return path.Join(string(kind), owner, uuid.NewString()+extension(contentType))
}

func issueMessage(err error) string {
	switch {
	case errors.Is(err, ErrTooLarge):
		return "image must be at most 5 MiB"
	case errors.Is(err, ErrNotImage):
		return "content is not an image"
	default:
		return "is not a valid base64 data URI"
	}
}
