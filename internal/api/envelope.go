package api

import (
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/legado-reader/legado-client/internal/remote"
)

// successMessage is the envelope message of every successful response.
const successMessage = "success"

// EnvelopeTransformer wraps successful response bodies in the envelope the
// legado server uses. Errors already carry the envelope shape and pass
// through unchanged.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	if _, ok := v.(huma.StatusError); ok {
		return v, nil
	}
	return remote.Envelope[any]{
		Code:      remote.SuccessCode,
		Message:   successMessage,
		Data:      v,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// MessageResponse is the body of commands with nothing else to return.
type MessageResponse struct {
	Message string `json:"message" doc:"What happened"`
}

// MessageOutput wraps a message for Huma.
type MessageOutput struct {
	Body MessageResponse
}

func message(msg string) *MessageOutput {
	return &MessageOutput{Body: MessageResponse{Message: msg}}
}
