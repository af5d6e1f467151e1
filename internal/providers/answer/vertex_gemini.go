package answer

import (
	"context"
	"fmt"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"
)

// VertexGemini answers through Vertex AI instead of the HTTP chat endpoint.
// The filtering level still arrives as a system instruction; responses stream
// but are collected into one answer since playback needs full text for
// chunking.
type VertexGemini struct {
	client *vertexgenai.Client
	model  string
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &VertexGemini{client: c, model: modelName}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) Ask(ctx context.Context, req Request) (string, error) {
	m := v.client.GenerativeModel(v.model)
	m.SystemInstruction = &vertexgenai.Content{
		Parts: []vertexgenai.Part{vertexgenai.Text(SystemPrompt(req.Language, req.ContentFiltering))},
	}

	var answer string
	it := m.GenerateContentStream(ctx, vertexgenai.Text(req.Question))
	for {
		resp, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return "", &ServiceError{Kind: KindServer, Err: err}
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if t, ok := part.(vertexgenai.Text); ok {
					answer += string(t)
				}
			}
		}
	}

	if answer == "" {
		return "", &ServiceError{Kind: KindMalformed, Err: fmt.Errorf("empty completion")}
	}
	return answer, nil
}
