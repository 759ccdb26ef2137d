package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"RaceCommentator/internal/config"
	"RaceCommentator/internal/service/tts/player"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
)

// По умолчанию используем Cloud TTS v1beta1 text:synthesize, совместимый с Generative AI TTS.
const defaultEndpoint = "https://texttospeech.googleapis.com/v1beta1/text:synthesize"

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Client озвучивает реплики через Cloud Text-to-Speech с моделью Gemini и воспроизводит результат.
type Client struct {
	cfg    config.GeminiTTSConfig
	player player.Player
	logger *zap.SugaredLogger

	mu   sync.Mutex
	http *http.Client // OAuth2 клиент ADC, создаётся при первой реплике
}

func New(cfg config.GeminiTTSConfig, p player.Player, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{cfg: cfg, player: p, logger: logger}
}

type requestPayload struct {
	Input struct {
		Prompt string `json:"prompt,omitempty"`
		Text   string `json:"text,omitempty"`
		Ssml   string `json:"ssml,omitempty"`
	} `json:"input"`
	Voice struct {
		ModelName    string `json:"modelName,omitempty"`
		LanguageCode string `json:"languageCode,omitempty"`
		VoiceName    string `json:"name,omitempty"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding  string   `json:"audioEncoding,omitempty"`
		SpeakingRate   float64  `json:"speakingRate,omitempty"`
		Pitch          float64  `json:"pitch,omitempty"`
		VolumeGainDb   float64  `json:"volumeGainDb,omitempty"`
		EffectsProfile []string `json:"effectsProfileId,omitempty"`
	} `json:"audioConfig"`
}

type jsonAudioResponse struct {
	AudioContent string `json:"audioContent"`
}

func payload(gc config.GeminiTTSConfig, text string) requestPayload {
	var rp requestPayload
	if strings.EqualFold(strings.TrimSpace(gc.InputType), "ssml") {
		rp.Input.Ssml = text
	} else {
		// неизвестный тип отправляем как text, чтобы не получить 400 INVALID_ARGUMENT
		rp.Input.Text = text
	}
	if p := strings.TrimSpace(gc.Prompt); p != "" {
		rp.Input.Prompt = p
	}
	rp.Voice.ModelName = strings.TrimSpace(gc.ModelName)
	rp.Voice.LanguageCode = strings.TrimSpace(gc.Language)
	rp.Voice.VoiceName = strings.TrimSpace(gc.VoiceName)
	rp.AudioConfig.AudioEncoding = "MP3"
	rp.AudioConfig.SpeakingRate = gc.SpeakingRate
	rp.AudioConfig.Pitch = gc.Pitch
	rp.AudioConfig.VolumeGainDb = gc.VolumeGainDb
	if ep := strings.TrimSpace(gc.EffectsProfileID); ep != "" {
		rp.AudioConfig.EffectsProfile = []string{ep}
	}
	return rp
}

// Speak выполняет запрос к Gemini‑TTS и воспроизводит аудио.
func (c *Client) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("gemini tts: empty input text")
	}
	body, err := json.Marshal(payload(c.cfg, text))
	if err != nil {
		return err
	}
	endpoint := strings.TrimSpace(c.cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	httpClient, err := c.client(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.logger.Infow("Gemini TTS request completed", "status", resp.StatusCode, "took", time.Since(started).String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(b) == 0 {
			b = []byte(resp.Status)
		}
		return fmt.Errorf("gemini tts error: status=%d, body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var jr jsonAudioResponse
	dec := json.NewDecoder(io.LimitReader(resp.Body, 5<<20)) // до 5 МБ JSON
	if err := dec.Decode(&jr); err != nil {
		return fmt.Errorf("gemini tts: decode json response: %w", err)
	}
	if strings.TrimSpace(jr.AudioContent) == "" {
		return errors.New("gemini tts: empty audioContent in response")
	}
	data, err := base64.StdEncoding.DecodeString(jr.AudioContent)
	if err != nil {
		return fmt.Errorf("gemini tts: base64 decode: %w", err)
	}
	return c.player.Play(ctx, "mp3", io.NopCloser(bytes.NewReader(data)))
}

// client создаёт OAuth2 HTTP‑клиент только через ADC/metadata. API Key не используется.
func (c *Client) client(ctx context.Context) (*http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.http != nil {
		return c.http, nil
	}
	hc, err := google.DefaultClient(context.WithoutCancel(ctx), cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("gemini tts: ADC credentials not found, set GOOGLE_APPLICATION_CREDENTIALS: %w", err)
	}
	c.http = hc
	return hc, nil
}
