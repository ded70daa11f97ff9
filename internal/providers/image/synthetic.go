package image

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	stdimage "image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"
)

// syntheticLongEdge bounds the placeholder size so local runs stay fast.
const syntheticLongEdge = 512

// SyntheticGenerator renders a deterministic striped PNG derived from the
// request. It is used when no Gemini key is configured.
type SyntheticGenerator struct{}

func NewSyntheticGenerator() *SyntheticGenerator {
	return &SyntheticGenerator{}
}

func (SyntheticGenerator) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	width, height := dimensionsFor(req.AspectRatio)
	seed := deterministicSeed(req.Prompt, req.AspectRatio, req.Resolution, len(req.References()))
	data, err := renderSyntheticImage(width, height, seed)
	if err != nil {
		return nil, err
	}
	return data, nil
}

var _ Generator = SyntheticGenerator{}

func renderSyntheticImage(width, height int, seed string) ([]byte, error) {
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, width, height))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &stdimage.Uniform{base}, stdimage.Point{}, draw.Src)

	stripeHeight := max(16, height/12)
	for y := 0; y < height; y += stripeHeight * 2 {
		stripe := stdimage.Rect(0, y, width, min(height, y+stripeHeight))
		draw.Draw(img, stripe, &stdimage.Uniform{accent}, stdimage.Point{}, draw.Over)
	}

	diagonal := colorFromSeed(seed, 2)
	step := max(16, width/32)
	for x := 0; x < max(width, height); x += step {
		for y := 0; y < height; y++ {
			xx := x + y
			if xx >= width {
				break
			}
			img.Set(xx, y, diagonal)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode synthetic png: %w", err)
	}
	return buf.Bytes(), nil
}

func colorFromSeed(seed string, shift int) color.RGBA {
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{R: parseHexByte(segment[0:2]), G: parseHexByte(segment[2:4]), B: parseHexByte(segment[4:6]), A: 255}
}

func parseHexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(hasher, "%v|", part)
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

// dimensionsFor maps an aspect ratio such as "16:9" onto a size whose long
// edge is syntheticLongEdge. Unparseable ratios fall back to a square.
func dimensionsFor(aspect string) (int, int) {
	parts := strings.Split(strings.TrimSpace(aspect), ":")
	if len(parts) != 2 {
		return syntheticLongEdge, syntheticLongEdge
	}
	a, errA := strconv.Atoi(strings.TrimSpace(parts[0]))
	b, errB := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errA != nil || errB != nil || a <= 0 || b <= 0 {
		return syntheticLongEdge, syntheticLongEdge
	}
	if a >= b {
		return syntheticLongEdge, max(1, syntheticLongEdge*b/a)
	}
	return max(1, syntheticLongEdge*a/b), syntheticLongEdge
}
