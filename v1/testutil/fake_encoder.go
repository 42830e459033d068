package testutil

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/face"
)

// FakeEncoder maps image bytes to preset encodings
type FakeEncoder struct {
	mu        sync.Mutex
	encodings map[string]face.Encoding
	calls     int

	// Err, when set, is returned by Encode
	Err error
}

// NewFakeEncoder creates an encoder that knows no faces
func NewFakeEncoder() *FakeEncoder {
	return &FakeEncoder{encodings: make(map[string]face.Encoding)}
}

// Add registers the encoding returned for an image
func (f *FakeEncoder) Add(img []byte, enc face.Encoding) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.encodings[string(img)] = enc
}

// Encode returns the registered encoding or face.ErrNoFace
func (f *FakeEncoder) Encode(ctx context.Context, img []byte) (face.Encoding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.Err != nil {
		return nil, f.Err
	}
	enc, ok := f.encodings[string(img)]
	if !ok {
		return nil, face.ErrNoFace
	}
	return enc, nil
}

// Calls returns how many times Encode ran
func (f *FakeEncoder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// TestImage returns a small PNG; different seeds give different bytes
func TestImage(t *testing.T, seed uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: seed, G: 255 - seed, B: 7, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// TestImageBase64 returns TestImage as a data URL
func TestImageBase64(t *testing.T, seed uint8) string {
	t.Helper()
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(TestImage(t, seed))
}

// ConstantEncoding returns an encoding with every component set to v
func ConstantEncoding(v float64) face.Encoding {
	enc := make(face.Encoding, face.Dimension)
	for i := range enc {
		enc[i] = v
	}
	return enc
}
