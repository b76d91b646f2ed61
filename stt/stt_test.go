package stt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type fakeProvider struct {
	name  string
	ready bool
}

func (f *fakeProvider) Name() string        { return f.name }
func (f *fakeProvider) DisplayName() string { return f.name }
func (f *fakeProvider) IsLocal() bool       { return true }
func (f *fakeProvider) IsReady() bool       { return f.ready }
func (f *fakeProvider) Close() error        { return nil }
func (f *fakeProvider) Transcribe(context.Context, []float32, string) (*Result, error) {
	return &Result{Text: "hello from " + f.name}, nil
}

func TestRegistryPick(t *testing.T) {
	tests := []struct {
		name      string
		providers []*fakeProvider
		want      string
		wantName  string
	}{
		{
			name:      "named_and_ready",
			providers: []*fakeProvider{{"whisper-local", true}, {"whisper-api", true}},
			want:      "whisper-api",
			wantName:  "whisper-api",
		},
		{
			name:      "named_not_ready_falls_back",
			providers: []*fakeProvider{{"whisper-local", true}, {"whisper-api", false}},
			want:      "whisper-api",
			wantName:  "whisper-local",
		},
		{
			name:      "nothing_ready",
			providers: []*fakeProvider{{"whisper-local", false}},
			want:      "whisper-local",
			wantName:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			for _, p := range tt.providers {
				r.Register(p)
			}

			got := r.Pick(tt.want)
			if tt.wantName == "" {
				if got != nil {
					t.Fatalf("Pick = %v, want nil", got.Name())
				}
				return
			}
			if got == nil || got.Name() != tt.wantName {
				t.Fatalf("Pick = %v, want %s", got, tt.wantName)
			}
		})
	}
}

func TestRegistryListOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeProvider{name: "b"})
	r.Register(&fakeProvider{name: "a"})
	r.Register(&fakeProvider{name: "c"})

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("len = %d", len(list))
	}
	for i, want := range []string{"b", "a", "c"} {
		if list[i].Name() != want {
			t.Errorf("list[%d] = %s, want %s", i, list[i].Name(), want)
		}
	}
}

type closableProvider struct {
	fakeProvider
	closeErr error
	closed   bool
}

func (c *closableProvider) Close() error {
	c.closed = true
	return c.closeErr
}

func TestRegistryCloseClosesAll(t *testing.T) {
	first := &closableProvider{fakeProvider: fakeProvider{name: "a"}, closeErr: errors.New("a failed")}
	second := &closableProvider{fakeProvider: fakeProvider{name: "b"}}

	r := NewRegistry()
	r.Register(first)
	r.Register(second)

	err := r.Close()
	if !errors.Is(err, first.closeErr) {
		t.Errorf("Close err = %v, want to wrap %v", err, first.closeErr)
	}
	if !first.closed || !second.closed {
		t.Errorf("closed = %v/%v, want both true", first.closed, second.closed)
	}
}

func TestParseWhisperOutput(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		wantText string
		wantLang string
		wantErr  bool
	}{
		{
			name: "segments_joined",
			json: `{"result":{"language":"en"},"transcription":[` +
				`{"text":" Hello"},{"text":" world."}]}`,
			wantText: "Hello world.",
			wantLang: "en",
		},
		{
			name:     "no_speech",
			json:     `{"result":{"language":"en"},"transcription":[]}`,
			wantText: "",
			wantLang: "en",
		},
		{
			name:     "blank_segments_skipped",
			json:     `{"result":{"language":"de"},"transcription":[{"text":"  "},{"text":" ja"}]}`,
			wantText: "ja",
			wantLang: "de",
		},
		{
			name:    "garbage",
			json:    `model loading failed`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWhisperOutput([]byte(tt.json))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", got.Text, tt.wantText)
			}
			if got.Language != tt.wantLang {
				t.Errorf("Language = %q, want %q", got.Language, tt.wantLang)
			}
		})
	}
}

func TestWhisperLocalNotReady(t *testing.T) {
	w, err := NewWhisperLocal(WhisperLocalConfig{
		ModelSize: "tiny",
		ModelDir:  t.TempDir(), // no model file
		BinPath:   "/nonexistent/whisper-cli",
	})
	if err != nil {
		t.Fatalf("NewWhisperLocal: %v", err)
	}

	// BinPath is set but model is missing.
	if w.IsReady() {
		t.Fatal("IsReady should be false without a model file")
	}
	_, err = w.Transcribe(context.Background(), []float32{0}, "en")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestWhisperLocalInvalidModelSize(t *testing.T) {
	if _, err := NewWhisperLocal(WhisperLocalConfig{ModelSize: "enormous"}); err == nil {
		t.Fatal("expected error for unknown model size")
	}
}

func TestWhisperAPINotReady(t *testing.T) {
	w := NewWhisperAPI(WhisperAPIConfig{})
	if w.IsReady() {
		t.Fatal("IsReady should be false without an api key")
	}
	_, err := w.Transcribe(context.Background(), []float32{0}, "en")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestWriteWAVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	samples := []float32{0, 0.5, -0.5, 1.5, -1.5} // out-of-range values clip

	if err := writeWAVFile(path, samples, 16000); err != nil {
		t.Fatalf("writeWAVFile: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	// 44-byte canonical header plus 2 bytes per sample.
	if info.Size() < 44+int64(len(samples))*2 {
		t.Errorf("file too small: %d bytes", info.Size())
	}
}
