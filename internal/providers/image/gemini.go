package image

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gabriel-vasile/mimetype"

	"materials/internal/providers/genai"
)

type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(client *genai.Client) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	paths := req.References()
	refs := make([]genai.Reference, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read reference %s: %w", p, err)
		}
		refs = append(refs, genai.Reference{Data: data, MimeType: mimetype.Detect(data).String()})
	}

	asset, err := g.client.GenerateImage(ctx, genai.ImageRequest{
		Prompt:      req.Prompt,
		References:  refs,
		AspectRatio: req.AspectRatio,
		Resolution:  req.Resolution,
	})
	if errors.Is(err, genai.ErrNoImage) {
		return nil, ErrNoImage
	}
	if err != nil {
		return nil, err
	}
	if asset == nil || len(asset.Data) == 0 {
		return nil, ErrNoImage
	}
	return asset.Data, nil
}

var _ Generator = (*GeminiGenerator)(nil)
