package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeSynth struct {
	audio []byte
	err   error
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	return f.audio, f.err
}

func TestVoiceFor(t *testing.T) {
	if got := VoiceFor("world_agent"); got != "en-US-Neural2-D" {
		t.Errorf("world_agent voice = %s", got)
	}
	if got := VoiceFor("leader_A"); got != "en-US-Neural2-A" {
		t.Errorf("leader_A voice = %s", got)
	}
	if got := VoiceFor("leader_Z"); got != defaultVoice {
		t.Errorf("unknown slot voice = %s, want default", got)
	}
}

func TestBase64(t *testing.T) {
	audio := []byte{0x49, 0x44, 0x33}
	got := Base64(context.Background(), &fakeSynth{audio: audio}, "hello", "en-US-Neural2-A")
	if got != base64.StdEncoding.EncodeToString(audio) {
		t.Errorf("got %q", got)
	}
}

func TestBase64BestEffort(t *testing.T) {
	if got := Base64(context.Background(), nil, "hello", "v"); got != "" {
		t.Errorf("nil synthesizer returned %q", got)
	}
	if got := Base64(context.Background(), &fakeSynth{err: errors.New("quota")}, "hello", "v"); got != "" {
		t.Errorf("failing synthesizer returned %q", got)
	}
	if got := Base64(context.Background(), &fakeSynth{audio: []byte{1}}, "", "v"); got != "" {
		t.Errorf("empty text returned %q", got)
	}
}

func TestGoogleTTSRequestShape(t *testing.T) {
	audio := []byte("mp3-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("key = %q", r.URL.Query().Get("key"))
		}
		var req synthesizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Input.Text != "Breaking news." {
			t.Errorf("text = %q", req.Input.Text)
		}
		if req.Voice.Name != "en-US-Neural2-D" || req.Voice.LanguageCode != "en-US" {
			t.Errorf("voice = %+v", req.Voice)
		}
		if req.AudioConfig.AudioEncoding != "MP3" || req.AudioConfig.SpeakingRate != speakingRate {
			t.Errorf("audio config = %+v", req.AudioConfig)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString(audio),
		})
	}))
	defer srv.Close()

	g := NewGoogleTTS("test-key")
	g.baseURL = srv.URL

	got, err := g.Synthesize(context.Background(), "Breaking news.", "en-US-Neural2-D")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(got) != string(audio) {
		t.Errorf("audio = %q", got)
	}
}

func TestGoogleTTSErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGoogleTTS("test-key")
	g.baseURL = srv.URL

	if _, err := g.Synthesize(context.Background(), "hello", "v"); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}
