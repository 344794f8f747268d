package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/voxroute/voxroute/internal/provider"
)

const defaultBinary = "whisper-cli"

// Descriptor returns the provider descriptor for the local whisper.cpp
// runtime. No input size cap: local transcription is bounded by disk, not
// an API limit.
func Descriptor(current provider.SettingsFunc) *provider.Descriptor {
	return &provider.Descriptor{
		Name:         "whisper",
		PriorityRank: 3,
		Features: provider.FeatureSet{
			provider.FeatureTimestamps,
			provider.FeatureTranslation,
			provider.FeatureLanguageDetection,
		},
		RequiredKeys: []string{"model_path"},
		Defaults:     provider.Settings{"binary": defaultBinary},
		Probe:        probe(current),
		Construct:    construct,
	}
}

// probe checks that the CLI binary is resolvable and the model file exists.
// No subprocess is spawned; loading a whisper model just to health-check it
// would cost seconds of CPU.
func probe(current provider.SettingsFunc) provider.Probe {
	return func(ctx context.Context) (bool, string, error) {
		settings := current()

		binary := settings["binary"]
		if binary == "" {
			binary = defaultBinary
		}
		if _, err := exec.LookPath(binary); err != nil {
			return false, fmt.Sprintf("binary %q not found in PATH", binary), nil
		}

		modelPath := settings["model_path"]
		if modelPath == "" {
			return false, "model_path not configured", nil
		}
		if _, err := os.Stat(modelPath); err != nil {
			return false, fmt.Sprintf("model file missing: %s", modelPath), nil
		}

		return true, "binary and model present", nil
	}
}

func construct(settings provider.Settings, logger *slog.Logger) (provider.Transcriber, error) {
	binary := settings["binary"]
	if binary == "" {
		binary = defaultBinary
	}

	threads := 0
	if t := settings["threads"]; t != "" {
		parsed, err := strconv.Atoi(t)
		if err != nil {
			return nil, fmt.Errorf("whisper: invalid threads setting %q: %w", t, err)
		}
		threads = parsed
	}

	return &Runtime{
		binary:    binary,
		modelPath: settings["model_path"],
		threads:   threads,
		logger:    logger,
	}, nil
}

// Runtime shells out to a whisper CLI binary for local transcription.
type Runtime struct {
	binary    string
	modelPath string
	threads   int
	logger    *slog.Logger
}

func (r *Runtime) Name() string { return "whisper" }

type cliSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type cliOutput struct {
	Segments []cliSegment `json:"segments"`
	Language string       `json:"language"`
}

// Transcribe runs the CLI subprocess and parses its JSON stdout. The
// context bounds the subprocess lifetime; CommandContext kills it on
// cancellation.
func (r *Runtime) Transcribe(ctx context.Context, audioPath string, opts provider.TranscribeOptions) (*provider.Transcript, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("whisper: audio file not found: %w", err)
	}

	args := []string{"-m", r.modelPath, "-f", audioPath, "--output-json"}
	if opts.Language != "" {
		args = append(args, "-l", opts.Language)
	}
	if r.threads > 0 {
		args = append(args, "-t", strconv.Itoa(r.threads))
	}

	cmd := exec.CommandContext(ctx, r.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("whisper: transcription cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("whisper: subprocess failed: %w: %s", err, stderr.String())
	}
	r.logger.Debug("whisper subprocess finished",
		slog.Duration("elapsed", time.Since(start)),
		slog.String("audio", audioPath))

	var output cliOutput
	if err := json.Unmarshal(stdout.Bytes(), &output); err != nil {
		return nil, fmt.Errorf("whisper: parse JSON output: %w", err)
	}

	transcript := &provider.Transcript{
		Language: output.Language,
		Provider: r.Name(),
	}
	var text bytes.Buffer
	for _, seg := range output.Segments {
		transcript.Segments = append(transcript.Segments, provider.Segment{
			Start: time.Duration(seg.Start * float64(time.Second)),
			End:   time.Duration(seg.End * float64(time.Second)),
			Text:  seg.Text,
		})
		text.WriteString(seg.Text)
	}
	transcript.Text = text.String()

	return transcript, nil
}
