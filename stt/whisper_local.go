package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WhisperLocal implements Provider using the whisper.cpp CLI.
type WhisperLocal struct {
	modelPath string
	modelSize string
	binPath   string
	device    string // compute preference: auto, cuda, cpu
}

// WhisperLocalConfig holds configuration for WhisperLocal.
type WhisperLocalConfig struct {
	ModelSize string // "tiny", "base", "small", "medium", "large-v3"
	ModelDir  string // directory holding ggml model files
	BinPath   string // path to whisper-cli binary (optional, discovered if unset)
	Device    string // compute preference passed through from config
}

var knownModelSizes = map[string]bool{
	"tiny": true, "base": true, "small": true, "medium": true,
	"large-v2": true, "large-v3": true,
}

// NewWhisperLocal creates a new WhisperLocal provider. The model file and
// binary are external collaborators; readiness just reflects their presence.
func NewWhisperLocal(cfg WhisperLocalConfig) (*WhisperLocal, error) {
	if cfg.ModelSize == "" {
		cfg.ModelSize = "tiny"
	}
	if !knownModelSizes[cfg.ModelSize] {
		return nil, fmt.Errorf("invalid model size: %s", cfg.ModelSize)
	}

	if cfg.ModelDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		cfg.ModelDir = filepath.Join(homeDir, ".superwhisper", "models")
	}

	w := &WhisperLocal{
		modelSize: cfg.ModelSize,
		modelPath: filepath.Join(cfg.ModelDir, fmt.Sprintf("ggml-%s.bin", cfg.ModelSize)),
		binPath:   cfg.BinPath,
		device:    cfg.Device,
	}
	if w.binPath == "" {
		w.binPath = findWhisperBinary()
	}
	return w, nil
}

func (w *WhisperLocal) Name() string { return "whisper-local" }

func (w *WhisperLocal) DisplayName() string {
	return fmt.Sprintf("Whisper Local (%s)", w.modelSize)
}

func (w *WhisperLocal) IsLocal() bool { return true }

func (w *WhisperLocal) IsReady() bool {
	if w.binPath == "" {
		return false
	}
	_, err := os.Stat(w.modelPath)
	return err == nil
}

// Transcribe converts audio samples to text using the whisper.cpp CLI.
func (w *WhisperLocal) Transcribe(ctx context.Context, samples []float32, language string) (*Result, error) {
	if !w.IsReady() {
		return nil, fmt.Errorf("%w: whisper-cli binary or model %s missing", ErrUnavailable, w.modelPath)
	}

	audioPath := filepath.Join(os.TempDir(), fmt.Sprintf("superwhisper_%s.wav", uuid.New().String()[:8]))
	if err := writeWAVFile(audioPath, samples, 16000); err != nil {
		return nil, fmt.Errorf("write audio file: %w", err)
	}
	defer os.Remove(audioPath)

	args := []string{
		"-m", w.modelPath,
		"-f", audioPath,
		"-oj", // JSON to stdout
		"--no-prints",
	}
	if language != "" && language != "auto" {
		args = append(args, "-l", language)
	}
	if w.device == "cpu" {
		args = append(args, "-ng")
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, w.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: whisper-cli: %v, stderr: %s", ErrUnavailable, err, stderr.String())
	}

	res, err := parseWhisperOutput(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	if res.Language == "" {
		res.Language = language
	}
	return res, nil
}

func (w *WhisperLocal) Close() error { return nil }

// whisperCppOutput represents the JSON output from whisper.cpp.
type whisperCppOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Text string `json:"text"`
	} `json:"transcription"`
}

func parseWhisperOutput(data []byte) (*Result, error) {
	var out whisperCppOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse whisper output: %w", err)
	}

	parts := make([]string, 0, len(out.Transcription))
	for _, seg := range out.Transcription {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return &Result{
		Text:     strings.Join(parts, " "),
		Language: out.Result.Language,
	}, nil
}

func findWhisperBinary() string {
	// whisper-cli is the current name; older packages shipped whisper-cpp.
	names := []string{"whisper-cli", "whisper-cpp", "whisper"}

	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	homeDir, _ := os.UserHomeDir()
	locations := []string{
		"/usr/local/bin",
		"/usr/bin",
		filepath.Join(homeDir, ".local", "bin"),
		filepath.Join(homeDir, "whisper.cpp", "build", "bin"),
	}
	for _, loc := range locations {
		for _, name := range names {
			path := filepath.Join(loc, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}
