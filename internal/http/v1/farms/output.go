package farms

// FarmListBody wraps one page of farms.
type FarmListBody struct {
	FarmData []Farm `json:"farmData"`
	Total    int64  `json:"total"    doc:"Farms matching the filter"`
}

// FarmListOutput for GET /api/farmdataapi
type FarmListOutput struct {
	Body FarmListBody
}

// FarmCreateOutput for POST /api/farmdataapi (201 Created)
type FarmCreateOutput struct {
	Location string `header:"Location" doc:"URL of the created farm"`
	Body     Farm
}

// FarmOutput for GET and PUT /api/farmdataapi/{id}
type FarmOutput struct {
	Body Farm
}

// DeleteBody confirms a deletion.
type DeleteBody struct {
	Message string `json:"message" example:"farm deleted"`
	ID      string `json:"_id"`
}

// FarmDeleteOutput for DELETE /api/farmdataapi/{id}
type FarmDeleteOutput struct {
	Body DeleteBody
}
