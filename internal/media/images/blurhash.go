// Package images computes BlurHash placeholders for book covers so the
// bookshelf can show something while the real cover loads.
package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// thumbEdge bounds the thumbnail the hash is computed from.
	thumbEdge = 48
	// Covers are portrait, so more vertical than horizontal components.
	xComponents = 3
	yComponents = 4
)

// ComputeBlurHash decodes a cover image and returns its BlurHash.
func ComputeBlurHash(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	hash, err := blurhash.Encode(xComponents, yComponents, thumbnail(img))
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, nil
}

// thumbnail scales img down to fit a thumbEdge square, keeping the aspect
// ratio. Smaller images are returned unchanged.
func thumbnail(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= thumbEdge && h <= thumbEdge {
		return img
	}

	scale := float64(thumbEdge) / float64(max(w, h))
	dst := image.NewRGBA(image.Rect(0, 0, max(int(float64(w)*scale), 1), max(int(float64(h)*scale), 1)))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
