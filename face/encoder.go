package face

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/monitoring"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrEncoderUnavailable is returned when the encoder service cannot produce an answer
var ErrEncoderUnavailable = errors.New("face encoder unavailable")

// Encoder turns an image into a face encoding
type Encoder interface {
	// Encode returns the encoding of the first face in the image, or ErrNoFace
	Encode(ctx context.Context, image []byte) (Encoding, error)
}

// HTTPEncoderConfig configures the client for the external embedding service
type HTTPEncoderConfig struct {
	BaseURL string
	Timeout time.Duration

	// OAuth2 client credentials; leave ClientID empty for unauthenticated calls
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// HTTPEncoder calls POST {BaseURL}/encode on an embedding service
type HTTPEncoder struct {
	endpoint   string
	httpClient *http.Client
}

type encodeRequest struct {
	Image string `json:"image"`
}

type encodeResponse struct {
	Encodings []Encoding `json:"encodings"`
}

// NewHTTPEncoder creates an encoder client
func NewHTTPEncoder(cfg HTTPEncoderConfig) (*HTTPEncoder, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("face encoder base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}

	if cfg.ClientID != "" {
		if cfg.TokenURL == "" {
			return nil, fmt.Errorf("token URL is required when a client ID is configured")
		}
		oauthConfig := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		// Token requests reuse the timeout-bound client
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: cfg.Timeout})
		httpClient = oauthConfig.Client(ctx)
		httpClient.Timeout = cfg.Timeout
	}

	return &HTTPEncoder{
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/encode",
		httpClient: httpClient,
	}, nil
}

// Encode sends the image to the embedding service
func (e *HTTPEncoder) Encode(ctx context.Context, image []byte) (enc Encoding, err error) {
	start := time.Now()
	defer func() {
		// A face-less image is a valid answer, not a failed call
		callErr := err
		if errors.Is(err, ErrNoFace) {
			callErr = nil
		}
		monitoring.RecordExternalCall(ctx, "face-encoder", "encode", time.Since(start), callErr)
	}()

	body, err := json.Marshal(encodeRequest{Image: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create encode request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: encoder rejected image (status %d)", ErrNoFace, resp.StatusCode)
	case resp.StatusCode >= 300:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		slog.Warn("Face encoder returned error",
			"status", resp.StatusCode,
			"response", string(respBody))
		return nil, fmt.Errorf("%w: status %d", ErrEncoderUnavailable, resp.StatusCode)
	}

	var decoded encodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %v", ErrEncoderUnavailable, err)
	}

	if len(decoded.Encodings) == 0 {
		return nil, ErrNoFace
	}
	if len(decoded.Encodings) > 1 {
		slog.Debug("Multiple faces found, using the first", "faces", len(decoded.Encodings))
	}

	first := decoded.Encodings[0]
	if err := first.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoderUnavailable, err)
	}
	return first, nil
}
