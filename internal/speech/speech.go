// Package speech synthesizes spoken audio for utterances and
// announcements. Synthesis is best-effort: callers treat empty audio as
// "no audio" and carry on.
package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	googleTTSURL = "https://texttospeech.googleapis.com/v1/text:synthesize"
	speakingRate = 1.3
)

// Voice names per speaker slot. Slots beyond the named ones share the
// default voice.
var voices = map[string]string{
	"world_agent": "en-US-Neural2-D",
	"leader_A":    "en-US-Neural2-A",
	"leader_B":    "en-US-Neural2-F",
	"leader_C":    "en-US-Neural2-E",
}

const defaultVoice = "en-US-Neural2-F"

// VoiceFor maps a speaker slot (world_agent, leader_A, ...) to a voice name.
func VoiceFor(slot string) string {
	if v, ok := voices[slot]; ok {
		return v
	}
	return defaultVoice
}

// Synthesizer renders text to spoken audio.
type Synthesizer interface {
	// Synthesize returns MP3 bytes for the text in the given voice.
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// GoogleTTS synthesizes audio through the Google Cloud Text-to-Speech
// REST API.
type GoogleTTS struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGoogleTTS creates a Google TTS client.
func NewGoogleTTS(apiKey string) *GoogleTTS {
	return &GoogleTTS{
		apiKey:  apiKey,
		baseURL: googleTTSURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent []byte `json:"audioContent"`
}

// Synthesize renders text to MP3 via the Google TTS API.
func (g *GoogleTTS) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	var reqBody synthesizeRequest
	reqBody.Input.Text = text
	reqBody.Voice.LanguageCode = "en-US"
	reqBody.Voice.Name = voice
	reqBody.AudioConfig.AudioEncoding = "MP3"
	reqBody.AudioConfig.SpeakingRate = speakingRate

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := g.baseURL + "?key=" + g.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts status %d: %s", resp.StatusCode, string(body))
	}

	var result synthesizeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return result.AudioContent, nil
}

// Base64 synthesizes text and returns the audio as a base64 string for
// embedding in JSON responses. A nil synthesizer, or any failure,
// yields "".
func Base64(ctx context.Context, s Synthesizer, text, voice string) string {
	if s == nil || text == "" {
		return ""
	}
	audio, err := s.Synthesize(ctx, text, voice)
	if err != nil {
		log.Debug().Err(err).Str("voice", voice).Msg("speech synthesis failed")
		return ""
	}
	return encodeBase64(audio)
}

func encodeBase64(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}
