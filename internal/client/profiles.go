package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

// ListProfiles returns one keyset page of profiles.
func (c *Client) ListProfiles(ctx context.Context, q ProfileQuery) (*ProfilePage, error) {
	query := url.Values{}
	setString(query, "userId", q.UserID)
	setString(query, "username", q.Username)
	setString(query, "email", q.Email)
	setString(query, "cursor", q.Cursor)
	setInt(query, "limit", q.Limit)

	var page ProfilePage
	header, err := c.call(ctx, http.MethodGet, profilesPath, query, nil, &page)
	if err != nil {
		return nil, err
	}
	page.NextCursor = parseLinkHeader(strings.Join(header.Values("Link"), ", "))
	return &page, nil
}

// GetProfile fetches the profile of a user.
func (c *Client) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	if _, err := c.call(ctx, http.MethodGet, profilesPath+"/"+url.PathEscape(userID), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProfile creates the caller's profile.
func (c *Client) CreateProfile(ctx context.Context, in *schema.UserProfile) (*Profile, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	var p Profile
	if _, err := c.call(ctx, http.MethodPost, profilesPath, nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile replaces the caller's editable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, userID string, in *schema.UserProfile) (*Profile, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	var p Profile
	if _, err := c.call(ctx, http.MethodPut, profilesPath+"/"+url.PathEscape(userID), nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// RateProfile appends the caller's rating to another user's profile.
func (c *Client) RateProfile(ctx context.Context, userID string, in *schema.Rating) (*Profile, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	var p Profile
	if _, err := c.call(ctx, http.MethodPost, profilesPath+"/"+url.PathEscape(userID), nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UploadPicture replaces the caller's profile picture with a data URI or URL.
func (c *Client) UploadPicture(ctx context.Context, userID, picture string) (*Profile, error) {
	in := &schema.PictureUpload{ProfilePicture: picture}
	if err := validate(in); err != nil {
		return nil, err
	}
	var p Profile
	path := profilesPath + "/" + url.PathEscape(userID) + "/picture"
	if _, err := c.call(ctx, http.MethodPut, path, nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProfile deletes the caller's profile.
func (c *Client) DeleteProfile(ctx context.Context, userID string) error {
	_, err := c.call(ctx, http.MethodDelete, profilesPath+"/"+url.PathEscape(userID), nil, nil, nil)
	return err
}

// Users returns a 1-based page of the page-numbered profile listing.
func (c *Client) Users(ctx context.Context, page, limit int) (*UsersPage, error) {
	query := url.Values{}
	setInt(query, "limit", limit)

	var out UsersPage
	if _, err := c.call(ctx, http.MethodGet, usersPath+"/"+strconv.Itoa(page), query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
