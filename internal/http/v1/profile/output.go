package profile

// ProfileListBody is one page of profiles.
type ProfileListBody struct {
	Profiles []Profile `json:"profiles"`
}

// ProfileListOutput for GET /api/profileApi
type ProfileListOutput struct {
	Link string `header:"Link" doc:"RFC 8288 pagination links"`
	Body ProfileListBody
}

// ProfileCreateOutput for POST /api/profileApi (201 Created)
type ProfileCreateOutput struct {
	Location string `header:"Location" doc:"URL of the created profile"`
	Body     Profile
}

// ProfileOutput for the single-profile endpoints
type ProfileOutput struct {
	Body Profile
}

// DeleteBody confirms a deletion.
type DeleteBody struct {
	Message string `json:"message" example:"profile deleted"`
	ID      string `json:"_id"`
}

// ProfileDeleteOutput for DELETE /api/profileApi/{id}
type ProfileDeleteOutput struct {
	Body DeleteBody
}
