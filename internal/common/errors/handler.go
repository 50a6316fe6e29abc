// internal/common/errors/handler.go
package errors

// ErrorResponse is the JSON body returned to API callers.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      ErrorCode `json:"code"`
	Retryable bool      `json:"retryable,omitempty"`
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// ErrorHandler turns pipeline errors into API responses.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err and returns the status and body to send. Internal errors are
// reduced to a generic message; their details only reach the log.
func (h *ErrorHandler) Handle(route string, err error) (int, ErrorResponse) {
	stdErr := Normalize(err)
	status := HTTPStatus(stdErr.Code)

	h.logger.Error("request failed", map[string]interface{}{
		"route":         route,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
		"status":        status,
	})

	resp := ErrorResponse{
		Error:     stdErr.Message,
		Code:      stdErr.Code,
		Retryable: stdErr.Retryable,
	}
	if stdErr.Code == ErrCodeInternal {
		resp.Error = "An internal server error occurred."
	} else if stdErr.Details != "" && GetErrorCategory(stdErr.Code) == "CLIENT" {
		resp.Error = stdErr.Message + ": " + stdErr.Details
	}
	return status, resp
}
