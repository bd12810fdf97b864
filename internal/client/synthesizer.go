package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/babelroom/babelroom/internal/utils"
)

// HTTPSynthesizer fetches synthesized audio from the service's /synthesize
// endpoint, which handles caching by content+voice key.
type HTTPSynthesizer struct {
	BaseURL string
	UserID  string
	Client  *http.Client
}

func NewHTTPSynthesizer(baseURL, userID string) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		BaseURL: baseURL,
		UserID:  userID,
		Client:  &http.Client{Timeout: 20 * time.Second},
	}
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	const op = "HTTPSynthesizer.Synthesize"

	body, err := json.Marshal(map[string]string{
		"text":     text,
		"language": lang,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.UserID != "" {
		req.Header.Set("X-User-Id", s.UserID)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "synthesis request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, utils.E(utils.CodeUnavailable, op, "synthesis returned "+resp.Status, nil)
	}

	const maxAudio = 10 << 20
	return io.ReadAll(io.LimitReader(resp.Body, maxAudio))
}
