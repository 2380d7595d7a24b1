package store

import (
	"context"
	"net/url"
	"strconv"

	"github.com/harvestbridge/harvest-bridge/internal/client"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

// Farms binds the farm endpoints to a Slice.
type Farms struct {
	*Slice[client.Farm]
	api *client.Client
}

// NewFarms returns an empty farm slice backed by api.
func NewFarms(api *client.Client) *Farms {
	return &Farms{Slice: NewSlice[client.Farm](), api: api}
}

// Fetch replaces the list with the farms matching q.
func (f *Farms) Fetch(ctx context.Context, q client.FarmQuery) error {
	key := url.Values{
		"userId": {q.UserID},
		"mine":   {strconv.FormatBool(q.Mine)},
		"skip":   {strconv.Itoa(q.Skip)},
		"limit":  {strconv.Itoa(q.Limit)},
	}.Encode()
	return f.Load(ctx, key, func(ctx context.Context) ([]client.Farm, error) {
		page, err := f.api.ListFarms(ctx, q)
		if err != nil {
			return nil, err
		}
		return page.FarmData, nil
	})
}

// FetchOne loads a farm into Current.
func (f *Farms) FetchOne(ctx context.Context, id string) (*client.Farm, error) {
	return f.LoadOne(ctx, id, func(ctx context.Context) (*client.Farm, error) {
		return f.api.GetFarm(ctx, id)
	})
}

// Create adds a farm.
func (f *Farms) Create(ctx context.Context, in *schema.FarmProfile) (*client.Farm, error) {
	return f.Add(ctx, func(ctx context.Context) (*client.Farm, error) {
		return f.api.CreateFarm(ctx, in)
	})
}

// Update replaces a farm.
func (f *Farms) Update(ctx context.Context, id string, in *schema.FarmProfile) (*client.Farm, error) {
	return f.Replace(ctx, func(ctx context.Context) (*client.Farm, error) {
		return f.api.ReplaceFarm(ctx, id, in)
	})
}

// Delete removes a farm.
func (f *Farms) Delete(ctx context.Context, id string) error {
	return f.Remove(ctx, id, func(ctx context.Context) error {
		return f.api.DeleteFarm(ctx, id)
	})
}

// Posts binds the post endpoints to a Slice.
type Posts struct {
	*Slice[client.Post]
	api *client.Client
}

// NewPosts returns an empty post slice backed by api.
func NewPosts(api *client.Client) *Posts {
	return &Posts{Slice: NewSlice[client.Post](), api: api}
}

// Fetch replaces the list with the posts matching q.
func (p *Posts) Fetch(ctx context.Context, q client.PostQuery) error {
	pinned := ""
	if q.Pinned != nil {
		pinned = strconv.FormatBool(*q.Pinned)
	}
	key := url.Values{
		"userId": {q.UserID},
		"farmId": {q.FarmID},
		"status": {string(q.Status)},
		"pinned": {pinned},
		"skip":   {strconv.Itoa(q.Skip)},
		"limit":  {strconv.Itoa(q.Limit)},
	}.Encode()
	return p.Load(ctx, key, func(ctx context.Context) ([]client.Post, error) {
		page, err := p.api.ListPosts(ctx, q)
		if err != nil {
			return nil, err
		}
		return page.PostData, nil
	})
}

// FetchOne loads a post into Current.
func (p *Posts) FetchOne(ctx context.Context, id string) (*client.Post, error) {
	return p.LoadOne(ctx, id, func(ctx context.Context) (*client.Post, error) {
		return p.api.GetPost(ctx, id)
	})
}

// Create adds a post.
func (p *Posts) Create(ctx context.Context, in *schema.Post) (*client.Post, error) {
	return p.Add(ctx, func(ctx context.Context) (*client.Post, error) {
		return p.api.CreatePost(ctx, in)
	})
}

// Update replaces a post.
func (p *Posts) Update(ctx context.Context, id string, in *schema.Post) (*client.Post, error) {
	return p.Replace(ctx, func(ctx context.Context) (*client.Post, error) {
		return p.api.ReplacePost(ctx, id, in)
	})
}

// ToggleFlag flips one flag and splices the server's copy in.
func (p *Posts) ToggleFlag(ctx context.Context, id string, flag schema.Flag) (*client.Post, error) {
	return p.Replace(ctx, func(ctx context.Context) (*client.Post, error) {
		return p.api.TogglePostFlag(ctx, id, flag)
	})
}

// Delete removes a post.
func (p *Posts) Delete(ctx context.Context, id string) error {
	return p.Remove(ctx, id, func(ctx context.Context) error {
		return p.api.DeletePost(ctx, id)
	})
}

// Profiles binds the profile endpoints to a Slice. Documents are keyed by
// user id.
type Profiles struct {
	*Slice[client.Profile]
	api *client.Client
}

// NewProfiles returns an empty profile slice backed by api.
func NewProfiles(api *client.Client) *Profiles {
	return &Profiles{Slice: NewSlice[client.Profile](), api: api}
}

// Fetch replaces the list with one page of profiles and returns the cursor
// of the next page.
func (p *Profiles) Fetch(ctx context.Context, q client.ProfileQuery) (string, error) {
	key := url.Values{
		"userId":   {q.UserID},
		"username": {q.Username},
		"email":    {q.Email},
		"cursor":   {q.Cursor},
		"limit":    {strconv.Itoa(q.Limit)},
	}.Encode()
	return loadPage(ctx, p.Slice, key, func(ctx context.Context) ([]client.Profile, string, error) {
		page, err := p.api.ListProfiles(ctx, q)
		if err != nil {
			return nil, "", err
		}
		return page.Profiles, page.NextCursor, nil
	})
}

// FetchOne loads a user's profile into Current.
func (p *Profiles) FetchOne(ctx context.Context, userID string) (*client.Profile, error) {
	return p.LoadOne(ctx, userID, func(ctx context.Context) (*client.Profile, error) {
		return p.api.GetProfile(ctx, userID)
	})
}

// Create adds the caller's profile.
func (p *Profiles) Create(ctx context.Context, in *schema.UserProfile) (*client.Profile, error) {
	return p.Add(ctx, func(ctx context.Context) (*client.Profile, error) {
		return p.api.CreateProfile(ctx, in)
	})
}

// Update replaces the caller's profile fields.
func (p *Profiles) Update(ctx context.Context, userID string, in *schema.UserProfile) (*client.Profile, error) {
	return p.Replace(ctx, func(ctx context.Context) (*client.Profile, error) {
		return p.api.UpdateProfile(ctx, userID, in)
	})
}

// Rate appends a rating to another user's profile.
func (p *Profiles) Rate(ctx context.Context, userID string, in *schema.Rating) (*client.Profile, error) {
	return p.Replace(ctx, func(ctx context.Context) (*client.Profile, error) {
		return p.api.RateProfile(ctx, userID, in)
	})
}

// Delete removes the caller's profile.
func (p *Profiles) Delete(ctx context.Context, userID string) error {
	return p.Remove(ctx, userID, func(ctx context.Context) error {
		return p.api.DeleteProfile(ctx, userID)
	})
}
