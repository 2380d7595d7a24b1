package wizard

import (
	"context"

	"github.com/harvestbridge/harvest-bridge/internal/client"
	"github.com/harvestbridge/harvest-bridge/internal/client/store"
	"github.com/harvestbridge/harvest-bridge/internal/media"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

// FarmSections are the pages of the farm form.
var FarmSections = []Section{
	{Name: "farm", Fields: []string{"farmName", "farmLocation", "farmSize", "gpsAddress"}},
	{Name: "owner", Fields: []string{"fullName", "contactPhone", "email", "gender"}},
	{Name: "classification", Fields: []string{"productionScale", "ownershipStatus", "farmType", "cropsGrown", "livestockProduced"}},
	{Name: "cooperative", Fields: []string{"belongsToCooperative", "cooperativeName", "cooperativeExecutive"}},
	{Name: "images", Fields: []string{"farmImages"}},
}

// PostSections are the pages of the post form.
var PostSections = []Section{
	{Name: "product", Fields: []string{"product", "farmId", "farm_name", "farm_location", "description"}},
	{Name: "harvest", Fields: []string{"harvest_details"}},
	{Name: "pricing", Fields: []string{"pricing"}},
	{Name: "logistics", Fields: []string{"logistics"}},
	{Name: "images", Fields: []string{"add_images"}},
}

// NewFarm starts an empty farm form.
func NewFarm() *Wizard[schema.FarmProfile] {
	return New(schema.FarmProfile{}, FarmSections...)
}

// NewPost starts an empty post form.
func NewPost() *Wizard[schema.Post] {
	return New(schema.Post{}, PostSections...)
}

// AddFarmImage attaches raw image bytes to the farm draft as a data URI.
func AddFarmImage(w *Wizard[schema.FarmProfile], data []byte) error {
	uri, err := media.Encode(data)
	if err != nil {
		return err
	}
	w.Apply(func(f *schema.FarmProfile) { f.FarmImages = append(f.FarmImages, uri) })
	return nil
}

// AddPostImage attaches raw image bytes to the post draft as a data URI.
func AddPostImage(w *Wizard[schema.Post], data []byte) error {
	uri, err := media.Encode(data)
	if err != nil {
		return err
	}
	w.Apply(func(p *schema.Post) { p.AddImages = append(p.AddImages, uri) })
	return nil
}

// SubmitFarm validates the farm draft and creates it through the farm slice.
func SubmitFarm(ctx context.Context, w *Wizard[schema.FarmProfile], farms *store.Farms) (*client.Farm, error) {
	var created *client.Farm
	err := w.Submit(ctx, func(ctx context.Context, f *schema.FarmProfile) error {
		var err error
		created, err = farms.Create(ctx, f)
		return err
	})
	return created, err
}

// SubmitPost validates the post draft and creates it through the post slice.
func SubmitPost(ctx context.Context, w *Wizard[schema.Post], posts *store.Posts) (*client.Post, error) {
	var created *client.Post
	err := w.Submit(ctx, func(ctx context.Context, p *schema.Post) error {
		var err error
		created, err = posts.Create(ctx, p)
		return err
	})
	return created, err
}
