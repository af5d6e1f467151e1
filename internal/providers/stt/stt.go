package stt

import "context"

// Provider transcribes a complete recorded clip. Clients that lack on-device
// recognition stream raw audio to the server and get transcripts back.
type Provider interface {
	Transcribe(ctx context.Context, audio []byte, locale string) (text string, confidence float64, err error)
	Close() error
}
