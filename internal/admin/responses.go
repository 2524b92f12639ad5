package admin

import regmodels "leaddesk/internal/registration/models"

// UsersListResponse is the body of GET /admin/users. Total counts every
// stored lead, ignoring the search filter.
type UsersListResponse struct {
	Success bool                       `json:"success"`
	Data    []regmodels.RecordResponse `json:"data"`
	Total   int                        `json:"total"`
}

// DeleteUserResponse is the body of DELETE /admin/users/{id}.
type DeleteUserResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
