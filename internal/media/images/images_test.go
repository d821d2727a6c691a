package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legado-reader/legado-client/internal/logger"
	"github.com/legado-reader/legado-client/internal/store"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fakeFetcher struct {
	data  map[string][]byte
	calls atomic.Int32
}

func (f *fakeFetcher) FetchRaw(_ context.Context, url string) ([]byte, error) {
	f.calls.Add(1)
	data, ok := f.data[url]
	if !ok {
		return nil, errors.New("404")
	}
	return data, nil
}

func TestComputeBlurHash(t *testing.T) {
	hash, err := ComputeBlurHash(pngBytes(t, 300, 450))
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	_, err = ComputeBlurHash([]byte("not an image"))
	require.Error(t, err)
}

func TestThumbnail(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		wantW int
		wantH int
	}{
		{"small kept", 10, 10, 10, 10},
		{"portrait cover", 200, 400, 24, 48},
		{"landscape", 480, 120, 48, 12},
		{"very thin", 1000, 5, 48, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := thumbnail(image.NewRGBA(image.Rect(0, 0, tt.w, tt.h)))
			assert.Equal(t, tt.wantW, got.Bounds().Dx())
			assert.Equal(t, tt.wantH, got.Bounds().Dy())
		})
	}
}

func TestPlaceholders_CachesInStore(t *testing.T) {
	kv := store.NewMemory()
	fetcher := &fakeFetcher{data: map[string][]byte{"https://img/1.png": pngBytes(t, 80, 120)}}
	p := NewPlaceholders(fetcher, kv, logger.Discard())

	first, err := p.Get(context.Background(), "https://img/1.png")
	require.NoError(t, err)
	second, err := p.Get(context.Background(), "https://img/1.png")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), fetcher.calls.Load())

	cached, err := kv.Get(context.Background(), store.CoverHashKey("https://img/1.png"))
	require.NoError(t, err)
	assert.Equal(t, first, string(cached))
}

func TestPlaceholders_Many(t *testing.T) {
	fetcher := &fakeFetcher{data: map[string][]byte{
		"a": pngBytes(t, 20, 30),
		"b": pngBytes(t, 30, 20),
	}}
	p := NewPlaceholders(fetcher, store.NewMemory(), nil)

	got := p.Many(context.Background(), []string{"a", "", "missing", "b"})
	assert.Len(t, got, 2)
	assert.Contains(t, got, "a")
	assert.Contains(t, got, "b")
}
