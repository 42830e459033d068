package face

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeImage(t *testing.T) {
	raw := testPNG(t)
	std := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "plain base64", input: std},
		{name: "data URL", input: "data:image/png;base64," + std},
		{name: "raw url-safe base64", input: base64.RawURLEncoding.EncodeToString(raw)},
		{name: "surrounding whitespace", input: "  " + std + "\n"},
		{name: "empty", input: "", wantErr: ErrNoFace},
		{name: "data URL without payload", input: "data:image/png;base64,", wantErr: ErrNoFace},
		{name: "not base64", input: "%%%not-base64%%%", wantErr: ErrNoFace},
		{name: "base64 of text", input: base64.StdEncoding.EncodeToString([]byte("hello world")), wantErr: ErrNoFace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := DecodeImage(tt.input, 0)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, raw, data)
		})
	}
}

func TestDecodeImage_SizeLimit(t *testing.T) {
	raw := testPNG(t)
	encoded := base64.StdEncoding.EncodeToString(raw)

	_, err := DecodeImage(encoded, len(raw)-1)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	data, err := DecodeImage(encoded, len(raw))
	require.NoError(t, err)
	assert.Len(t, data, len(raw))
}
