package parakeet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/voxroute/voxroute/internal/provider"
)

// Descriptor returns the provider descriptor for a locally hosted Parakeet
// model server. The runtime is reached over loopback HTTP, so health is a
// cheap GET against its health endpoint.
func Descriptor(current provider.SettingsFunc) *provider.Descriptor {
	return &provider.Descriptor{
		Name:         "parakeet",
		PriorityRank: 4,
		Features: provider.FeatureSet{
			provider.FeatureTimestamps,
		},
		RequiredKeys: []string{"endpoint"},
		Probe:        probe(current),
		Construct:    construct,
	}
}

func probe(current provider.SettingsFunc) provider.Probe {
	return func(ctx context.Context) (bool, string, error) {
		endpoint := current()["endpoint"]
		if endpoint == "" {
			return false, "endpoint not configured", nil
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/health", nil)
		if err != nil {
			return false, "", err
		}

		res, err := http.DefaultClient.Do(req)
		if err != nil {
			return false, fmt.Sprintf("model server unreachable: %v", err), nil
		}
		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			return false, fmt.Sprintf("model server returned status %d", res.StatusCode), nil
		}
		return true, "model server ready", nil
	}
}

func construct(settings provider.Settings, logger *slog.Logger) (provider.Transcriber, error) {
	return &Client{
		endpoint: settings["endpoint"],
		http:     &http.Client{Timeout: 10 * time.Minute},
		logger:   logger,
	}, nil
}

// Client talks to the Parakeet model server over loopback HTTP.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

func (c *Client) Name() string { return "parakeet" }

type serverResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (c *Client) Transcribe(ctx context.Context, audioPath string, opts provider.TranscribeOptions) (*provider.Transcript, error) {
	audio, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("parakeet: open audio: %w", err)
	}
	defer audio.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("parakeet: create form file: %w", err)
	}
	if _, err := io.Copy(fileWriter, audio); err != nil {
		return nil, fmt.Errorf("parakeet: write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("parakeet: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/transcribe", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parakeet: request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("parakeet: status %d: %s", res.StatusCode, string(body))
	}

	var parsed serverResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parakeet: decode response: %w", err)
	}

	transcript := &provider.Transcript{
		Text:     parsed.Text,
		Language: parsed.Language,
		Provider: c.Name(),
	}
	for _, seg := range parsed.Segments {
		transcript.Segments = append(transcript.Segments, provider.Segment{
			Start: time.Duration(seg.Start * float64(time.Second)),
			End:   time.Duration(seg.End * float64(time.Second)),
			Text:  seg.Text,
		})
	}
	return transcript, nil
}
