package handlers

import (
	"context"
	"encoding/json"

	"github.com/vitalvas/wire/httpwire"
)

type echoPayload struct {
	Received string `json:"received"`
	Path     string `json:"path"`
}

// Echo answers with a JSON document holding the request body and path.
// Invalid UTF-8 in the body is replaced with U+FFFD.
var Echo Handler = HandlerFunc(func(_ context.Context, req *httpwire.Request) (*httpwire.Response, error) {
	body, err := json.Marshal(echoPayload{
		Received: string(req.Body),
		Path:     req.Path,
	})
	if err != nil {
		return nil, err
	}

	return httpwire.OK().WithJSON(body), nil
})
