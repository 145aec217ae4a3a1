// SPDX-License-Identifier: MIT
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pocket/internal/log"
	"pocket/internal/midi"
)

// maxResponseBytes bounds how much of a service response is read.
const maxResponseBytes = 8 << 20

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transcription service returned %d: %s", e.Code, e.Body)
}

// HTTPClient calls a transcription service over HTTP.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

var _ Transcriber = (*HTTPClient)(nil)

// NewHTTPClient returns a client posting clips to endpoint. timeout bounds
// each request in addition to any context deadline.
func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Transcribe posts the clip and decodes the note list.
func (c *HTTPClient) Transcribe(ctx context.Context, clip Clip) (midi.Sequence, error) {
	if len(clip.Data) == 0 {
		return midi.Sequence{}, ErrEmptyClip
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(clip.Data))
	if err != nil {
		return midi.Sequence{}, fmt.Errorf("building transcription request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/wav")
	req.Header.Set("Accept", "application/json")
	if clip.Name != "" {
		req.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", clip.Name))
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return midi.Sequence{}, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxResponseBytes)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(body, 512))
		return midi.Sequence{}, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}

	var seq midi.Sequence
	if err := json.NewDecoder(body).Decode(&seq); err != nil {
		return midi.Sequence{}, fmt.Errorf("decoding transcription response: %w", err)
	}

	log.Debugf("Transcriber: %s -> %d notes in %s", clip.Name, len(seq.Notes), time.Since(start).Round(time.Millisecond))
	return seq, nil
}
