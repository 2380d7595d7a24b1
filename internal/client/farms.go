package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

// ListFarms returns a page of farms. Mine requires a token.
func (c *Client) ListFarms(ctx context.Context, q FarmQuery) (*FarmPage, error) {
	query := url.Values{}
	setString(query, "userId", q.UserID)
	if q.Mine {
		query.Set("mine", "true")
	}
	setInt(query, "skip", q.Skip)
	setInt(query, "limit", q.Limit)

	var page FarmPage
	if _, err := c.call(ctx, http.MethodGet, farmsPath, query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetFarm fetches one farm.
func (c *Client) GetFarm(ctx context.Context, id string) (*Farm, error) {
	var farm Farm
	if _, err := c.call(ctx, http.MethodGet, farmsPath+"/"+url.PathEscape(id), nil, nil, &farm); err != nil {
		return nil, err
	}
	return &farm, nil
}

// CreateFarm validates and creates a farm owned by the caller.
func (c *Client) CreateFarm(ctx context.Context, in *schema.FarmProfile) (*Farm, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	var farm Farm
	if _, err := c.call(ctx, http.MethodPost, farmsPath, nil, in, &farm); err != nil {
		return nil, err
	}
	return &farm, nil
}

// ReplaceFarm validates and replaces one of the caller's farms.
func (c *Client) ReplaceFarm(ctx context.Context, id string, in *schema.FarmProfile) (*Farm, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	var farm Farm
	if _, err := c.call(ctx, http.MethodPut, farmsPath+"/"+url.PathEscape(id), nil, in, &farm); err != nil {
		return nil, err
	}
	return &farm, nil
}

// DeleteFarm deletes one of the caller's farms.
func (c *Client) DeleteFarm(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, farmsPath+"/"+url.PathEscape(id), nil, nil, nil)
	return err
}
