package google

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"RaceCommentator/internal/config"
	"RaceCommentator/internal/service/tts/player"

	gctts "cloud.google.com/go/texttospeech/apiv1"
	ttspb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"go.uber.org/zap"
)

// Client озвучивает реплики через Google Cloud Text-to-Speech и воспроизводит результат.
type Client struct {
	cfg    config.GoogleTTSConfig
	player player.Player
	logger *zap.SugaredLogger

	mu  sync.Mutex
	sdk *gctts.Client
}

func New(cfg config.GoogleTTSConfig, p player.Player, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{cfg: cfg, player: p, logger: logger}
}

// Request собирает запрос синтеза. Только MP3.
func Request(gc config.GoogleTTSConfig, text string) *ttspb.SynthesizeSpeechRequest {
	var input *ttspb.SynthesisInput
	if strings.EqualFold(strings.TrimSpace(gc.InputType), "ssml") {
		input = &ttspb.SynthesisInput{InputSource: &ttspb.SynthesisInput_Ssml{Ssml: text}}
	} else {
		input = &ttspb.SynthesisInput{InputSource: &ttspb.SynthesisInput_Text{Text: text}}
	}

	voice := &ttspb.VoiceSelectionParams{
		LanguageCode: gc.Language,
		Name:         gc.Voice,
	}
	audio := &ttspb.AudioConfig{
		AudioEncoding: ttspb.AudioEncoding_MP3,
		SpeakingRate:  gc.SpeakingRate,
		Pitch:         gc.Pitch,
		VolumeGainDb:  gc.VolumeGainDb,
	}
	if ep := strings.TrimSpace(gc.EffectsProfileID); ep != "" {
		audio.EffectsProfileId = []string{ep}
	}
	return &ttspb.SynthesizeSpeechRequest{Input: input, Voice: voice, AudioConfig: audio}
}

// Speak синтезирует текст и дожидается окончания воспроизведения.
func (c *Client) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("google tts: empty text")
	}
	sdk, err := c.client(ctx)
	if err != nil {
		return err
	}

	started := time.Now()
	resp, err := sdk.SynthesizeSpeech(ctx, Request(c.cfg, text))
	if err != nil {
		return err
	}
	c.logger.Infow("Google TTS synthesize completed", "took", time.Since(started).String())

	r := io.NopCloser(bytes.NewReader(resp.GetAudioContent()))
	return c.player.Play(ctx, "mp3", r)
}

// client лениво создаёт клиента SDK и переиспользует его между репликами.
func (c *Client) client(ctx context.Context) (*gctts.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sdk != nil {
		return c.sdk, nil
	}
	sdk, err := gctts.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	c.sdk = sdk
	return sdk, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sdk == nil {
		return nil
	}
	err := c.sdk.Close()
	c.sdk = nil
	return err
}
