package dto

// PendingFilter is bound from the query string of GET /v1/pendings.
type PendingFilter struct {
	BusinessID string `form:"business_id" validate:"omitempty,uuid"`
	BranchID   string `form:"branch_id"   validate:"omitempty,uuid"`
	UserID     string `form:"user_id"     validate:"omitempty,uuid"`
	Page       int    `form:"page,default=1"       validate:"min=1"`
	PageSize   int    `form:"page_size,default=10" validate:"min=1,max=200"`
}

type PendingResponse struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Message      string  `json:"message"`
	LinkedUserID string  `json:"linked_user_id"`
	BranchID     *string `json:"branch_id,omitempty"`
	EventDate    *string `json:"event_date,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

type PendingListResponse struct {
	Data       []PendingResponse `json:"data"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}
