package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/smartbiz/smartbiz/internal/observability"
)

type Config struct {
	BaseURL        string
	APIKey         string
	DefaultVoiceID string
	Timeout        time.Duration
}

// Voice is a synthesizer voice offered to clients.
type Voice struct {
	ID         string `json:"voice_id"`
	Name       string `json:"name"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// Client talks to an ElevenLabs-compatible text-to-speech API.
type Client struct {
	baseURL        string
	apiKey         string
	defaultVoiceID string
	client         *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	voiceID := strings.TrimSpace(cfg.DefaultVoiceID)
	if voiceID == "" {
		voiceID = "21m00Tcm4TlvDq8ikWAM"
	}
	return &Client{
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:         strings.TrimSpace(cfg.APIKey),
		defaultVoiceID: voiceID,
		client:         &http.Client{Timeout: timeout},
	}
}

func (c *Client) Configured() bool { return c.apiKey != "" }

// Synthesize renders text as MP3 audio. The upstream error body carries a
// "detail" or "message" field depending on the failure; both are surfaced.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("speech API key not configured")
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required")
	}
	voice := strings.TrimSpace(voiceID)
	if voice == "" {
		voice = c.defaultVoiceID
	}

	payload, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": "eleven_monolingual_v1",
		"voice_settings": map[string]float64{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal synthesis payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/text-to-speech/"+voice, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request speech synthesis: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesis response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech synthesis failed: %s", upstreamError(resp.StatusCode, body))
	}
	return body, nil
}

// Voices lists the voices available on the account.
func (c *Client) Voices(ctx context.Context) ([]Voice, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("speech API key not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("build voices request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request voices: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read voices response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list voices failed: %s", upstreamError(resp.StatusCode, body))
	}

	var parsed struct {
		Voices []struct {
			VoiceID    string `json:"voice_id"`
			Name       string `json:"name"`
			PreviewURL string `json:"preview_url"`
		} `json:"voices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode voices response: %w", err)
	}
	voices := make([]Voice, 0, len(parsed.Voices))
	for _, v := range parsed.Voices {
		voices = append(voices, Voice{ID: v.VoiceID, Name: v.Name, PreviewURL: v.PreviewURL})
	}
	return voices, nil
}

func upstreamError(status int, body []byte) string {
	var parsed struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if len(parsed.Detail) > 0 {
			var detail string
			if err := json.Unmarshal(parsed.Detail, &detail); err == nil && detail != "" {
				return detail
			}
			return string(parsed.Detail)
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return fmt.Sprintf("status %d", status)
}

// Service wraps the client with metrics and a demo voice catalog for
// unconfigured deployments.
type Service struct {
	client *Client
	logger *slog.Logger
}

func NewService(cfg Config, logger *slog.Logger) *Service {
	return &Service{client: NewClient(cfg), logger: logger}
}

func (s *Service) Configured() bool { return s.client.Configured() }

func (s *Service) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	audio, err := s.client.Synthesize(ctx, text, voiceID)
	if err != nil {
		observability.ObserveSpeechRequest("error")
		return nil, err
	}
	observability.ObserveSpeechRequest("ok")
	return audio, nil
}

// Voices falls back to the demo catalog when the account is unconfigured
// or the upstream listing fails.
func (s *Service) Voices(ctx context.Context) []Voice {
	if !s.client.Configured() {
		return demoVoices()
	}
	voices, err := s.client.Voices(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "voice listing failed, serving demo voices", slog.Any("error", err))
		}
		return demoVoices()
	}
	return voices
}

func demoVoices() []Voice {
	return []Voice{
		{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel"},
		{ID: "AZnzlk1XvdvUeBnXmlld", Name: "Domi"},
		{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella"},
	}
}
