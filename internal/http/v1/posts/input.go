package posts

import "github.com/harvestbridge/harvest-bridge/internal/schema"

// PostListInput for GET /api/posts.api
type PostListInput struct {
	UserID string `query:"userId" doc:"Only posts owned by this user"`
	FarmID string `query:"farmId" doc:"Only posts created for this farm"`
	Status string `query:"status" doc:"Only posts with this product status" enum:"available,pending,sold"`
	Pinned string `query:"pinned" doc:"Only pinned (true) or unpinned (false) posts" enum:"true,false"`
	Skip   int    `query:"skip"   doc:"Posts to skip"                                    minimum:"0"`
	Limit  int    `query:"limit"  doc:"Maximum posts per page"                            minimum:"0" maximum:"100" default:"20"`
}

// PostCreateInput for POST /api/posts.api
type PostCreateInput struct {
	Body schema.Post
}

// PostGetInput for GET /api/posts.api/{id}
type PostGetInput struct {
	ID string `path:"id" doc:"Post id"`
}

// PostReplaceInput for PUT /api/posts.api/{id}
type PostReplaceInput struct {
	ID   string `path:"id" doc:"Post id"`
	Body schema.Post
}

// PostToggleInput for PATCH /api/posts.api/{id}
type PostToggleInput struct {
	ID   string `path:"id" doc:"Post id"`
	Body schema.FlagToggle
}

// PostDeleteInput for DELETE /api/posts.api/{id}
type PostDeleteInput struct {
	ID string `path:"id" doc:"Post id"`
}
