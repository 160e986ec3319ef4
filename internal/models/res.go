package models

// ApiResponse is the envelope every endpoint writes.
type ApiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Field   string      `json:"field,omitempty"`
	Page    *PageMeta   `json:"page,omitempty"`
}

// PageMeta describes one offset page. HasMore is a hint: a full page may be
// followed by an empty one.
type PageMeta struct {
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	Count   int  `json:"count"`
	HasMore bool `json:"has_more"`
}

func SuccessResponse(data interface{}, message string) ApiResponse {
	return ApiResponse{
		Success: true,
		Data:    data,
		Message: message,
	}
}

func ErrorResponse(err string) ApiResponse {
	return ApiResponse{
		Success: false,
		Error:   err,
	}
}

// FieldErrorResponse reports a validation failure on one request field.
func FieldErrorResponse(field, err string) ApiResponse {
	return ApiResponse{
		Success: false,
		Error:   err,
		Field:   field,
	}
}

func PaginatedResponse(data interface{}, offset, limit, count int) ApiResponse {
	return ApiResponse{
		Success: true,
		Data:    data,
		Page: &PageMeta{
			Offset:  offset,
			Limit:   limit,
			Count:   count,
			HasMore: count == limit,
		},
	}
}
