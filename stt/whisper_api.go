package stt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// WhisperAPI implements Provider using OpenAI's hosted Whisper.
type WhisperAPI struct {
	apiKey string
	model  string
	client openai.Client
}

// WhisperAPIConfig holds configuration for WhisperAPI.
type WhisperAPIConfig struct {
	APIKey  string
	BaseURL string // optional, for OpenAI-compatible endpoints
	Model   string // optional, defaults to "whisper-1"
}

// NewWhisperAPI creates a new WhisperAPI provider.
func NewWhisperAPI(cfg WhisperAPIConfig) *WhisperAPI {
	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &WhisperAPI{
		apiKey: cfg.APIKey,
		model:  model,
		client: openai.NewClient(opts...),
	}
}

func (w *WhisperAPI) Name() string        { return "whisper-api" }
func (w *WhisperAPI) DisplayName() string { return "OpenAI Whisper API" }
func (w *WhisperAPI) IsLocal() bool       { return false }
func (w *WhisperAPI) IsReady() bool       { return w.apiKey != "" }

// Transcribe uploads the audio and returns the recognized text.
func (w *WhisperAPI) Transcribe(ctx context.Context, samples []float32, language string) (*Result, error) {
	if !w.IsReady() {
		return nil, fmt.Errorf("%w: api key not configured", ErrUnavailable)
	}

	audioPath := filepath.Join(os.TempDir(), fmt.Sprintf("superwhisper_%s.wav", uuid.New().String()[:8]))
	if err := writeWAVFile(audioPath, samples, 16000); err != nil {
		return nil, fmt.Errorf("write audio file: %w", err)
	}
	defer os.Remove(audioPath)

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(w.model),
		File:  openai.File(f, "audio.wav", "audio/wav"),
	}
	if language != "" && language != "auto" {
		params.Language = openai.String(language)
	}

	start := time.Now()
	resp, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &Result{
		Text:     resp.Text,
		Language: language,
		Duration: time.Since(start),
	}, nil
}

func (w *WhisperAPI) Close() error { return nil }
