// Package answer talks to the remote answer-generation service. The default
// implementation is the HTTP chat-completions client; a Vertex Gemini
// provider exists for deployments on Google Cloud.
package answer

import (
	"context"
	"errors"
	"fmt"

	"github.com/davigonia/mr-learning/internal/models"
)

// Request is the external-service contract for one question.
type Request struct {
	Question         string             `json:"question"`
	Language         models.Language    `json:"language"`
	ContentFiltering models.FilterLevel `json:"contentFiltering"`
	TimeLimit        int                `json:"timeLimit"`
	BannedWords      []string           `json:"bannedWords"`
}

type Provider interface {
	Ask(ctx context.Context, req Request) (string, error)
	Close() error
}

// Kind classifies a service failure so the session can pick the right
// localized message. None of these are retried.
type Kind string

const (
	KindAuth        Kind = "auth"
	KindRateLimited Kind = "rate_limited"
	KindServer      Kind = "server"
	KindNetwork     Kind = "network"
	KindMalformed   Kind = "malformed"
)

type ServiceError struct {
	Kind       Kind
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("answer service %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("answer service %s (status %d)", e.Kind, e.HTTPStatus)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Classify extracts the failure kind, defaulting to a network problem for
// errors that did not come from the service itself (timeouts, DNS, refused
// connections).
func Classify(err error) Kind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindNetwork
}
