package dto

// ListRequest carries the paging query parameters
type ListRequest struct {
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=500"`
	OrderBy  string `form:"order_by" validate:"omitempty,max=32"`
	OrderDir string `form:"order_dir" validate:"omitempty,oneof=asc desc ASC DESC"`
}

// DefaultListRequest returns a list request with defaults
func DefaultListRequest() ListRequest {
	return ListRequest{
		Page:     1,
		PageSize: 50,
	}
}

// PeriodQuery selects the accounting period of a report
type PeriodQuery struct {
	Period string `form:"period" json:"period" validate:"required,len=7"`
}

// TokenResponse is returned when a token is issued
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// StatusResponse acknowledges an operation without a richer result
type StatusResponse struct {
	Status string `json:"status"`
}
