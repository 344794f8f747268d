package elevenlabs

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

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModel   = "scribe_v1"

	// maxInputBytes is the ElevenLabs speech-to-text upload cap (1 GB).
	maxInputBytes = 1_000_000_000
)

// Descriptor returns the provider descriptor for ElevenLabs Scribe.
func Descriptor(current provider.SettingsFunc) *provider.Descriptor {
	return &provider.Descriptor{
		Name:          "elevenlabs",
		PriorityRank:  2,
		MaxInputBytes: maxInputBytes,
		Features: provider.FeatureSet{
			provider.FeatureTimestamps,
			provider.FeatureLanguageDetection,
			provider.FeatureDiarization,
		},
		RequiredKeys: []string{"api_key"},
		Defaults:     provider.Settings{"model": defaultModel, "base_url": defaultBaseURL},
		Probe:        probe(current),
		Construct:    construct,
	}
}

func probe(current provider.SettingsFunc) provider.Probe {
	return func(ctx context.Context) (bool, string, error) {
		settings := current()
		apiKey := settings["api_key"]
		if apiKey == "" {
			return false, "missing API key", nil
		}

		baseURL := settings["base_url"]
		if baseURL == "" {
			baseURL = defaultBaseURL
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/user", nil)
		if err != nil {
			return false, "", err
		}
		req.Header.Set("xi-api-key", apiKey)

		res, err := http.DefaultClient.Do(req)
		if err != nil {
			return false, "", err
		}
		defer res.Body.Close()

		switch {
		case res.StatusCode == http.StatusOK:
			return true, "authenticated", nil
		case res.StatusCode == http.StatusUnauthorized:
			return false, "invalid API key", nil
		default:
			return false, fmt.Sprintf("unexpected status %d", res.StatusCode), nil
		}
	}
}

func construct(settings provider.Settings, logger *slog.Logger) (provider.Transcriber, error) {
	baseURL := settings["base_url"]
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:  settings["api_key"],
		model:   settings["model"],
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Minute},
		logger:  logger,
	}, nil
}

// Client calls the ElevenLabs speech-to-text API.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func (c *Client) Name() string { return "elevenlabs" }

type scribeResponse struct {
	LanguageCode string `json:"language_code"`
	Text         string `json:"text"`
	Words        []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

// Transcribe uploads the audio as multipart form data with the model_id
// field, the shape the speech-to-text endpoint expects.
func (c *Client) Transcribe(ctx context.Context, audioPath string, opts provider.TranscribeOptions) (*provider.Transcript, error) {
	audio, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: open audio: %w", err)
	}
	defer audio.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	model := c.model
	if opts.Model != "" {
		model = opts.Model
	}
	if err := writer.WriteField("model_id", model); err != nil {
		return nil, fmt.Errorf("elevenlabs: write model_id field: %w", err)
	}
	if opts.Language != "" {
		if err := writer.WriteField("language_code", opts.Language); err != nil {
			return nil, fmt.Errorf("elevenlabs: write language_code field: %w", err)
		}
	}

	fileWriter, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: create form file: %w", err)
	}
	if _, err := io.Copy(fileWriter, audio); err != nil {
		return nil, fmt.Errorf("elevenlabs: write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("elevenlabs: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/speech-to-text", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("elevenlabs: status %d: %s", res.StatusCode, string(body))
	}

	var parsed scribeResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("elevenlabs: decode response: %w", err)
	}

	transcript := &provider.Transcript{
		Text:     parsed.Text,
		Language: parsed.LanguageCode,
		Provider: c.Name(),
	}
	for _, w := range parsed.Words {
		transcript.Segments = append(transcript.Segments, provider.Segment{
			Start: time.Duration(w.Start * float64(time.Second)),
			End:   time.Duration(w.End * float64(time.Second)),
			Text:  w.Text,
		})
	}
	return transcript, nil
}
