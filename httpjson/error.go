package httpjson

// Error creates a JSON error response carrying a stable error code
// alongside the human-readable message. Every error surfaced on the
// API is presented in this shape rather than as a bare 500.
func Error(status int, code string, err error) *Response {
	return &Response{
		Status: status,
		Body: M{
			"code":    code,
			"message": err.Error(),
		},
	}
}
