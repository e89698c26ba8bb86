package response

import (
	"encoding/json"
	"net/http"
)

// V is the envelope for all API responses
type V struct {
	Result   interface{} `json:"result"`
	Messages []string    `json:"messages"`
}

// WriteResponse will write the result to the client as JSON with a 200 status
func WriteResponse(w http.ResponseWriter, r *http.Request, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(V{
		Result:   result,
		Messages: []string{},
	})
}

// WriteError will write the Error envelope to the client with its status code
func WriteError(w http.ResponseWriter, r *http.Request, e *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	json.NewEncoder(w).Encode(V{
		Result:   e.Result,
		Messages: append([]string{e.Message}, e.Messages...),
	})
}
