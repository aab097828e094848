package entrypoint

import (
	"encoding/json"
	"net/http"
)

const (
	msgNoBody      = "No request body provided"
	msgInvalidJSON = "Invalid JSON in request body"
	msgForbidden   = "Not authorized"
)

// Request is one synchronous invocation.
type Request struct {
	Body string
}

// Response is what the host sends back to the caller.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// CORSHeaders are set on every response.
func CORSHeaders() map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type",
		"Access-Control-Allow-Methods": "POST, OPTIONS",
	}
}

func jsonResponse(status int, v any) Response {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}
	return Response{StatusCode: status, Headers: CORSHeaders(), Body: string(body)}
}

// OK is the success response; its body is the JSON empty string.
func OK() Response {
	return jsonResponse(http.StatusOK, "")
}

func BadRequest(msg string) Response {
	return jsonResponse(http.StatusBadRequest, map[string]string{"error": msg})
}

func Forbidden() Response {
	return jsonResponse(http.StatusForbidden, map[string]string{"message": msgForbidden})
}

func InternalError(err error) Response {
	return jsonResponse(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
