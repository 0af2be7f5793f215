package serverutils

type SuccessResponseBody struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(message string, data interface{}) SuccessResponseBody {
	return SuccessResponseBody{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}
