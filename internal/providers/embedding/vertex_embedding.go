// Package embedding produces journal search vectors with a Vertex AI text
// embedding model.
package embedding

import (
	"context"
	"errors"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

const DefaultModel = "text-embedding-004"

var ErrEmptyPrediction = errors.New("embedding model returned no prediction")

type VertexEmbedder struct {
	client   *aiplatform.PredictionClient
	endpoint string
	dims     int
}

// NewVertexEmbedder calls the publisher model in location and asks for dims
// output dimensions, which must match the vector column.
func NewVertexEmbedder(ctx context.Context, projectID, location, model string, dims int) (*VertexEmbedder, error) {
	if model == "" {
		model = DefaultModel
	}
	c, err := aiplatform.NewPredictionClient(ctx,
		option.WithEndpoint(fmt.Sprintf("%s-aiplatform.googleapis.com:443", location)))
	if err != nil {
		return nil, err
	}
	return &VertexEmbedder{
		client:   c,
		endpoint: fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", projectID, location, model),
		dims:     dims,
	}, nil
}

func (v *VertexEmbedder) Close() error { return v.client.Close() }

func (v *VertexEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	instance, err := structpb.NewValue(map[string]any{"content": text})
	if err != nil {
		return nil, err
	}
	params, err := structpb.NewValue(map[string]any{"outputDimensionality": v.dims})
	if err != nil {
		return nil, err
	}

	resp, err := v.client.Predict(ctx, &aiplatformpb.PredictRequest{
		Endpoint:   v.endpoint,
		Instances:  []*structpb.Value{instance},
		Parameters: params,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.GetPredictions()) == 0 {
		return nil, ErrEmptyPrediction
	}
	return parsePrediction(resp.GetPredictions()[0], v.dims)
}

// parsePrediction reads {"embeddings": {"values": [...]}}.
func parsePrediction(p *structpb.Value, dims int) ([]float32, error) {
	values := p.GetStructValue().GetFields()["embeddings"].
		GetStructValue().GetFields()["values"].
		GetListValue().GetValues()
	if len(values) == 0 {
		return nil, ErrEmptyPrediction
	}
	if len(values) != dims {
		return nil, fmt.Errorf("embedding has %d dimensions, want %d", len(values), dims)
	}

	out := make([]float32, len(values))
	for i, x := range values {
		out[i] = float32(x.GetNumberValue())
	}
	return out, nil
}
