package face

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	// Registered decoders for image.DecodeConfig
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	// ErrNoFace is returned when an image cannot be decoded or contains no face
	ErrNoFace = errors.New("face not detected")

	// ErrImageTooLarge is returned when the decoded image exceeds the configured limit
	ErrImageTooLarge = errors.New("image too large")
)

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// DecodeImage turns a base64 image, optionally a data URL such as
// "data:image/jpeg;base64,...", into raw image bytes. Everything up to the
// last comma is discarded. maxBytes <= 0 disables the size check.
func DecodeImage(encoded string, maxBytes int) ([]byte, error) {
	payload := encoded
	if idx := strings.LastIndex(payload, ","); idx >= 0 {
		payload = payload[idx+1:]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty image", ErrNoFace)
	}

	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+3 {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrImageTooLarge, maxBytes)
	}

	var data []byte
	var err error
	for _, enc := range base64Encodings {
		data, err = enc.DecodeString(payload)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrNoFace, err)
	}

	if maxBytes > 0 && len(data) > maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrImageTooLarge, maxBytes)
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: undecodable image: %v", ErrNoFace, err)
	}

	return data, nil
}
