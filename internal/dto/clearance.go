package dto

// RespondClearanceRequest is the body of PUT /clearances/:id.
type RespondClearanceRequest struct {
	Status  string   `json:"status" validate:"required,oneof=pending approved rejected"`
	Message *string  `json:"message,omitempty"`
	Modules []string `json:"modules,omitempty"`
}

// ClearanceQueueQuery binds the query string of the department queue endpoints.
type ClearanceQueueQuery struct {
	Department string `form:"department"`
	TermID     string `form:"termId"`
	Status     string `form:"status" validate:"omitempty,oneof=pending approved rejected partial registered"`
	Page       int    `form:"page"`
	PageSize   int    `form:"pageSize"`
}

// ClearanceQueueCount is the count payload.
type ClearanceQueueCount struct {
	Department string `json:"department"`
	Count      int    `json:"count"`
}
