package image

import (
	"context"
	"errors"
)

// ErrNoImage reports that the provider finished without producing an image.
var ErrNoImage = errors.New("image: provider returned no image")

// GenerateRequest describes a normalized request passed to any image provider.
// Reference paths point at files staged on local disk by the caller.
type GenerateRequest struct {
	Prompt               string
	ReferenceImage       string
	AdditionalReferences []string
	AspectRatio          string
	Resolution           string
}

// References returns the primary reference followed by the additional ones,
// skipping blanks.
func (r GenerateRequest) References() []string {
	out := make([]string, 0, len(r.AdditionalReferences)+1)
	if r.ReferenceImage != "" {
		out = append(out, r.ReferenceImage)
	}
	for _, p := range r.AdditionalReferences {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Generator is the contract implemented by all image providers.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]byte, error)
}
