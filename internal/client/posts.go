package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

// ListPosts returns a page of posts, newest first.
func (c *Client) ListPosts(ctx context.Context, q PostQuery) (*PostPage, error) {
	query := url.Values{}
	setString(query, "userId", q.UserID)
	setString(query, "farmId", q.FarmID)
	setString(query, "status", string(q.Status))
	if q.Pinned != nil {
		query.Set("pinned", strconv.FormatBool(*q.Pinned))
	}
	setInt(query, "skip", q.Skip)
	setInt(query, "limit", q.Limit)

	var page PostPage
	if _, err := c.call(ctx, http.MethodGet, postsPath, query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPost fetches one post.
func (c *Client) GetPost(ctx context.Context, id string) (*Post, error) {
	var post Post
	if _, err := c.call(ctx, http.MethodGet, postsPath+"/"+url.PathEscape(id), nil, nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// CreatePost validates and creates a post owned by the caller.
func (c *Client) CreatePost(ctx context.Context, in *schema.Post) (*Post, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	var post Post
	if _, err := c.call(ctx, http.MethodPost, postsPath, nil, in, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// ReplacePost validates and replaces one of the caller's posts. Flags are
// kept by the server.
func (c *Client) ReplacePost(ctx context.Context, id string, in *schema.Post) (*Post, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	var post Post
	if _, err := c.call(ctx, http.MethodPut, postsPath+"/"+url.PathEscape(id), nil, in, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// TogglePostFlag flips one flag and returns the updated post.
func (c *Client) TogglePostFlag(ctx context.Context, id string, flag schema.Flag) (*Post, error) {
	in := &schema.FlagToggle{Flag: flag}
	if err := validate(in); err != nil {
		return nil, err
	}
	var post Post
	if _, err := c.call(ctx, http.MethodPatch, postsPath+"/"+url.PathEscape(id), nil, in, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost deletes one of the caller's posts.
func (c *Client) DeletePost(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, postsPath+"/"+url.PathEscape(id), nil, nil, nil)
	return err
}
