package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/voxroute/voxroute/internal/provider"
)

const (
	defaultBaseURL = "https://api.deepgram.com"
	defaultModel   = "nova-3"

	// maxInputBytes is Deepgram's documented 2 GB upload cap.
	maxInputBytes = 2_000_000_000
)

// Descriptor returns the provider descriptor for Deepgram. current supplies
// the live configured settings for the probe, which runs outside the
// resolver path.
func Descriptor(current provider.SettingsFunc) *provider.Descriptor {
	return &provider.Descriptor{
		Name:          "deepgram",
		PriorityRank:  1,
		MaxInputBytes: maxInputBytes,
		Features: provider.FeatureSet{
			provider.FeatureDiarization,
			provider.FeatureTimestamps,
			provider.FeatureTopicDetection,
			provider.FeatureSentiment,
			provider.FeatureLanguageDetection,
		},
		RequiredKeys: []string{"api_key"},
		Defaults:     provider.Settings{"model": defaultModel, "base_url": defaultBaseURL},
		Probe:        probe(current),
		Construct:    construct,
	}
}

// probe verifies the API key against the projects endpoint, the cheapest
// authenticated call Deepgram offers.
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

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/projects", nil)
		if err != nil {
			return false, "", err
		}
		req.Header.Set("Authorization", "Token "+apiKey)

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

// Client calls Deepgram's pre-recorded transcription API.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func (c *Client) Name() string { return "deepgram" }

type listenResponse struct {
	Results struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string `json:"transcript"`
				Words      []struct {
					Word  string  `json:"word"`
					Start float64 `json:"start"`
					End   float64 `json:"end"`
				} `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe uploads the audio file body to the listen endpoint. Deepgram
// takes raw audio, not multipart.
func (c *Client) Transcribe(ctx context.Context, audioPath string, opts provider.TranscribeOptions) (*provider.Transcript, error) {
	audio, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("deepgram: open audio: %w", err)
	}
	defer audio.Close()

	query := url.Values{}
	query.Set("model", c.resolveModel(opts))
	query.Set("punctuate", "true")
	if opts.Language != "" {
		query.Set("language", opts.Language)
	} else {
		query.Set("detect_language", "true")
	}
	if opts.Timestamps {
		query.Set("utterances", "true")
	}

	endpoint := c.baseURL + "/v1/listen?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, audio)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "audio/wav")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram: request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("deepgram: status %d: %s", res.StatusCode, string(body))
	}

	var parsed listenResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("deepgram: decode response: %w", err)
	}

	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return nil, fmt.Errorf("deepgram: empty transcription result")
	}

	channel := parsed.Results.Channels[0]
	alt := channel.Alternatives[0]

	transcript := &provider.Transcript{
		Text:     alt.Transcript,
		Language: channel.DetectedLanguage,
		Provider: c.Name(),
	}
	for _, w := range alt.Words {
		transcript.Segments = append(transcript.Segments, provider.Segment{
			Start: floatSeconds(w.Start),
			End:   floatSeconds(w.End),
			Text:  w.Word,
		})
	}
	return transcript, nil
}

func (c *Client) resolveModel(opts provider.TranscribeOptions) string {
	if opts.Model != "" {
		return opts.Model
	}
	if c.model != "" {
		return c.model
	}
	return defaultModel
}

func floatSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
