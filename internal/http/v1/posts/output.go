package posts

// PostListBody wraps one page of posts.
type PostListBody struct {
	PostData []Post `json:"postData"`
	Total    int64  `json:"total"    doc:"Posts matching the filter"`
}

// PostListOutput for GET /api/posts.api
type PostListOutput struct {
	Body PostListBody
}

// PostCreateOutput for POST /api/posts.api (201 Created)
type PostCreateOutput struct {
	Location string `header:"Location" doc:"URL of the created post"`
	Body     Post
}

// PostOutput for GET, PUT and PATCH /api/posts.api/{id}
type PostOutput struct {
	Body Post
}

// DeleteBody confirms a deletion.
type DeleteBody struct {
	Message string `json:"message" example:"post deleted"`
	ID      string `json:"_id"`
}

// PostDeleteOutput for DELETE /api/posts.api/{id}
type PostDeleteOutput struct {
	Body DeleteBody
}
