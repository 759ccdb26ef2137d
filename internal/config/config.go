package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DebugMode bool `env:"DEBUG_MODE"` //Режим дебага

	// Цикл детекции
	FrameInterval        time.Duration `env:"FRAME_INTERVAL"`          // Период кадров хоста, накапливается до SampleInterval
	SampleInterval       time.Duration `env:"SAMPLE_INTERVAL"`         // Интервал обновления состояния гонки
	FastestLapWarmupLaps int           `env:"FASTEST_LAP_WARMUP_LAPS"` // FASTEST_LAP сообщается только после этого круга
	ShortIntervalSeconds float64       `env:"SHORT_INTERVAL_SECONDS"`  // Порог SHORT_INTERVAL, секунды

	// Озвучка
	StaleAfter           time.Duration `env:"STALE_AFTER"`           // Возраст, после которого малоценное событие выбрасывается
	NarrationTimeout     time.Duration `env:"NARRATION_TIMEOUT"`     // Таймаут генерации и озвучки одной реплики
	PromptSuffix         string        `env:"PROMPT_SUFFIX"`         // Стиль комментатора, дописывается к каждому запросу
	NarratorInstructions string        `env:"NARRATOR_INSTRUCTIONS"` // Системные инструкции для LLM
	CameraFocus          bool          `env:"CAMERA_FOCUS"`          // Наводить камеру на главного участника события
	CameraMode           string        `env:"CAMERA_MODE"`           // Режим камеры хоста при подключении, пусто - не менять
	CueSoundPath         string        `env:"CUE_SOUND_PATH"`        // Звук перед репликой, пусто - без звука

	// Генератор текста
	LLMService  string `env:"LLM_SERVICE"`  // openai|ollama|file|stub
	OpenAIModel string `env:"OPENAI_MODEL"` // Модель OpenAI Responses API
	Ollama      OllamaConfig
	FileBridge  FileBridgeConfig

	// Общий переключатель сервиса TTS и конфиги провайдеров
	TTSService string `env:"TTS_SERVICE"` // google|yandex|gemini|stub
	GoogleTTS  GoogleTTSConfig
	YandexTTS  YandexTTSConfig
	GeminiTTS  GeminiTTSConfig

	// Телеметрия симулятора
	Telemetry TelemetryConfig

	MetricsEnabled bool `env:"METRICS_ENABLED"` // Отдавать /metrics на HTTP приёмнике

	// Chat / Twitch
	TwitchUsername      string `env:"TWITCH_USERNAME"`        // Имя пользователя Twitch (логин)
	TwitchOAuthToken    string `env:"TWITCH_OAUTH_TOKEN"`     // OAuth токен Twitch (может быть без префикса oauth:)
	TwitchChannel       string `env:"TWITCH_CHANNEL"`         // Канал Twitch (один), без #
	TwitchRatePerMinute int    `env:"TWITCH_RATE_PER_MINUTE"` // Лимит исходящих сообщений в минуту
}

// OllamaConfig - локальная модель через OpenAI-совместимый API Ollama.
type OllamaConfig struct {
	BaseURL string `env:"OLLAMA_BASE_URL"` // напр. http://localhost:11434/v1
	Model   string `env:"OLLAMA_MODEL"`
}

// FileBridgeConfig - обмен запросами с внешним процессом через файлы.
type FileBridgeConfig struct {
	PromptPath   string        `env:"FILE_BRIDGE_PROMPT"`
	ResponsePath string        `env:"FILE_BRIDGE_RESPONSE"`
	Poll         time.Duration `env:"FILE_BRIDGE_POLL"`
}

// YandexTTSConfig конфигурация для синтеза речи через Yandex SpeechKit.
type YandexTTSConfig struct {
	APIKey  string `env:"YC_TTS_API_KEY"` // Ключ берём из .env/ENV. Если пуст - при использовании будет ошибка
	Voice   string `env:"YC_TTS_VOICE"`
	Format  string `env:"YC_TTS_FORMAT"`  // mp3|wav, по умолчанию mp3
	Speed   string `env:"YC_TTS_SPEED"`   // Скорость синтеза (1.0 по умолчанию в API)
	Emotion string `env:"YC_TTS_EMOTION"` // neutral|good|evil
	Volume  int    `env:"YC_TTS_VOLUME"`  // Громкость 0-100; 100 - не изменять громкость
}

// GoogleTTSConfig конфигурация для синтеза речи через Google Cloud Text-to-Speech.
type GoogleTTSConfig struct {
	// Путь к файлу ключа сервисного аккаунта. Фактически читается из ENV GOOGLE_APPLICATION_CREDENTIALS.
	CredentialsPath string  `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	Language        string  `env:"GOOGLE_TTS_LANGUAGE"`
	Voice           string  `env:"GOOGLE_TTS_VOICE"`
	SpeakingRate    float64 `env:"GOOGLE_TTS_SPEAKING_RATE"`
	Pitch           float64 `env:"GOOGLE_TTS_PITCH"`
	VolumeGainDb    float64 `env:"GOOGLE_TTS_VOLUME_DB"`
	// Эффект профиля устройства воспроизведения, напр. large-home-entertainment-class-device
	EffectsProfileID string `env:"GOOGLE_TTS_EFFECTS_PROFILE_ID"`
	// Тип входа: text|ssml. Пусто - text.
	InputType string `env:"GOOGLE_TTS_INPUT_TYPE"`
}

// GeminiTTSConfig конфигурация Cloud Text-to-Speech с моделью Gemini.
type GeminiTTSConfig struct {
	Endpoint         string  `env:"GEMINI_TTS_ENDPOINT"`
	ModelName        string  `env:"GEMINI_TTS_MODEL"`
	Language         string  `env:"GEMINI_TTS_LANGUAGE"`
	VoiceName        string  `env:"GEMINI_TTS_VOICE"`
	SpeakingRate     float64 `env:"GEMINI_TTS_SPEAKING_RATE"`
	Pitch            float64 `env:"GEMINI_TTS_PITCH"`
	VolumeGainDb     float64 `env:"GEMINI_TTS_VOLUME_DB"`
	EffectsProfileID string  `env:"GEMINI_TTS_EFFECTS_PROFILE_ID"`
	InputType        string  `env:"GEMINI_TTS_INPUT_TYPE"` // text|ssml
	Prompt           string  `env:"GEMINI_TTS_PROMPT"`     // Стилевой промпт голоса
}

// TelemetryConfig - источник кадров телеметрии.
type TelemetryConfig struct {
	Source       string `env:"TELEMETRY_SOURCE"`     // http|websocket
	BindAddr     string `env:"TELEMETRY_BIND_ADDR"`  // Адрес HTTP приёмника, напр. 127.0.0.1:3000
	Path         string `env:"TELEMETRY_PATH"`       // HTTP‑путь приёмника
	WebsocketURL string `env:"TELEMETRY_WS_URL"`     // Адрес моста симулятора для websocket
	AuthToken    string `env:"TELEMETRY_AUTH_TOKEN"` // Bearer токен (опционально)
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode:            false,
		FrameInterval:        100 * time.Millisecond,
		SampleInterval:       time.Second,
		FastestLapWarmupLaps: 2,
		ShortIntervalSeconds: 3,
		StaleAfter:           30 * time.Second,
		NarrationTimeout:     60 * time.Second,
		PromptSuffix:         "In the style of Jeremy Clarkson working as an F1 commentator",
		NarratorInstructions: "You are a motor racing commentator. Reply with one or two short spoken sentences, no markup.",
		CameraFocus:          true,
		CameraMode:           "",
		CueSoundPath:         "",
		LLMService:           "ollama",
		OpenAIModel:          "gpt-4o",
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434/v1",
			Model:   "gemma3:4b",
		},
		FileBridge: FileBridgeConfig{
			PromptPath:   "prompt.txt",
			ResponsePath: "response.txt",
			Poll:         500 * time.Millisecond,
		},
		TTSService: "google",
		GoogleTTS: GoogleTTSConfig{
			CredentialsPath:  "service-account.json",
			Language:         "en-GB",
			Voice:            "en-GB-Standard-B",
			SpeakingRate:     1.1,
			Pitch:            0.0,
			VolumeGainDb:     0.0,
			EffectsProfileID: "large-home-entertainment-class-device",
			InputType:        "",
		},
		YandexTTS: YandexTTSConfig{
			APIKey:  "",
			Voice:   "john",
			Format:  "mp3",
			Speed:   "1.2",
			Emotion: "good",
			Volume:  100,
		},
		GeminiTTS: GeminiTTSConfig{
			ModelName:    "gemini-2.5-flash-tts",
			Language:     "en-GB",
			VoiceName:    "Charon",
			SpeakingRate: 1.0,
			Prompt:       "Speak like an excited British motor racing commentator",
		},
		Telemetry: TelemetryConfig{
			Source:       "http",
			BindAddr:     "127.0.0.1:3000",
			Path:         "/telemetry",
			WebsocketURL: "ws://127.0.0.1:3001/telemetry",
		},
		MetricsEnabled:      true,
		TwitchRatePerMinute: 20,
	}
}

// NewConfig загружает конфигурацию приложения из .env, окружения и флагов командной строки.
// Невалидная конфигурация - паника на старте.
func NewConfig() *Config {
	cfg, err := Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load - то же, что NewConfig, но с явным набором флагов и аргументами.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	_ = godotenv.Load()

	// Стартуем с дефолтов, затем перекрываем .env/окружением и флагами
	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}

	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага")
	// Цикл детекции
	fs.DurationVar(&cfg.FrameInterval, "frame-interval", cfg.FrameInterval, "период кадров хоста, напр. 100ms")
	fs.DurationVar(&cfg.SampleInterval, "sample-interval", cfg.SampleInterval, "интервал обновления состояния гонки, напр. 1s")
	fs.IntVar(&cfg.FastestLapWarmupLaps, "fastest-lap-warmup-laps", cfg.FastestLapWarmupLaps, "после какого круга сообщать о быстрейшем круге")
	fs.Float64Var(&cfg.ShortIntervalSeconds, "short-interval-seconds", cfg.ShortIntervalSeconds, "порог короткого интервала между соседями, секунды")
	// Озвучка
	fs.DurationVar(&cfg.StaleAfter, "stale-after", cfg.StaleAfter, "возраст, после которого малоценные события выбрасываются из очереди")
	fs.DurationVar(&cfg.NarrationTimeout, "narration-timeout", cfg.NarrationTimeout, "таймаут генерации и озвучки одной реплики")
	fs.StringVar(&cfg.PromptSuffix, "prompt-suffix", cfg.PromptSuffix, "стиль комментатора, дописывается к каждому запросу")
	fs.StringVar(&cfg.NarratorInstructions, "narrator-instructions", cfg.NarratorInstructions, "системные инструкции для LLM")
	fs.BoolVar(&cfg.CameraFocus, "camera-focus", cfg.CameraFocus, "наводить камеру на участника события")
	fs.StringVar(&cfg.CameraMode, "camera-mode", cfg.CameraMode, "режим камеры хоста при подключении (websocket)")
	fs.StringVar(&cfg.CueSoundPath, "cue-sound-path", cfg.CueSoundPath, "путь к звуку перед репликой (mp3 или wav)")
	// Генератор
	fs.StringVar(&cfg.LLMService, "llm-service", cfg.LLMService, "генератор текста: openai|ollama|file|stub")
	fs.StringVar(&cfg.OpenAIModel, "openai-model", cfg.OpenAIModel, "модель OpenAI")
	fs.StringVar(&cfg.Ollama.BaseURL, "ollama-base-url", cfg.Ollama.BaseURL, "OpenAI-совместимый адрес Ollama")
	fs.StringVar(&cfg.Ollama.Model, "ollama-model", cfg.Ollama.Model, "модель Ollama")
	fs.StringVar(&cfg.FileBridge.PromptPath, "file-bridge-prompt", cfg.FileBridge.PromptPath, "файл запроса для файлового моста")
	fs.StringVar(&cfg.FileBridge.ResponsePath, "file-bridge-response", cfg.FileBridge.ResponsePath, "файл ответа для файлового моста")
	fs.DurationVar(&cfg.FileBridge.Poll, "file-bridge-poll", cfg.FileBridge.Poll, "период опроса файла ответа")
	// Общие/переключатель TTS
	fs.StringVar(&cfg.TTSService, "tts-service", cfg.TTSService, "выбор сервиса TTS: google|yandex|gemini|stub")
	// Параметры Yandex TTS
	fs.StringVar(&cfg.YandexTTS.APIKey, "yc-tts-api-key", cfg.YandexTTS.APIKey, "API ключ Yandex SpeechKit TTS (перекрывает ENV)")
	fs.StringVar(&cfg.YandexTTS.Voice, "yc-tts-voice", cfg.YandexTTS.Voice, "голос для синтеза")
	fs.StringVar(&cfg.YandexTTS.Format, "yc-tts-format", cfg.YandexTTS.Format, "формат аудио (mp3|wav)")
	fs.StringVar(&cfg.YandexTTS.Speed, "yc-tts-speed", cfg.YandexTTS.Speed, "скорость речи (1.0 по умолчанию)")
	fs.StringVar(&cfg.YandexTTS.Emotion, "yc-tts-emotion", cfg.YandexTTS.Emotion, "эмоциональная окраска (neutral|good|evil)")
	fs.IntVar(&cfg.YandexTTS.Volume, "yc-tts-volume", cfg.YandexTTS.Volume, "громкость 0-100 (100 - без изменений)")
	// Параметры Google TTS
	fs.StringVar(&cfg.GoogleTTS.CredentialsPath, "google-tts-credentials", cfg.GoogleTTS.CredentialsPath, "путь к service-account.json (также читается из ENV GOOGLE_APPLICATION_CREDENTIALS)")
	fs.StringVar(&cfg.GoogleTTS.Language, "google-tts-language", cfg.GoogleTTS.Language, "язык синтеза, напр. en-GB")
	fs.StringVar(&cfg.GoogleTTS.Voice, "google-tts-voice", cfg.GoogleTTS.Voice, "имя голоса, напр. en-GB-Standard-B")
	fs.Float64Var(&cfg.GoogleTTS.SpeakingRate, "google-tts-speaking-rate", cfg.GoogleTTS.SpeakingRate, "скорость речи (1.0 по умолчанию)")
	fs.Float64Var(&cfg.GoogleTTS.Pitch, "google-tts-pitch", cfg.GoogleTTS.Pitch, "тон (полутоны), может быть отрицательным")
	fs.Float64Var(&cfg.GoogleTTS.VolumeGainDb, "google-tts-volume-db", cfg.GoogleTTS.VolumeGainDb, "усиление громкости (дБ), допустимо от -96.0 до +16.0")
	fs.StringVar(&cfg.GoogleTTS.EffectsProfileID, "google-tts-effects-profile-id", cfg.GoogleTTS.EffectsProfileID, "EffectsProfileId")
	fs.StringVar(&cfg.GoogleTTS.InputType, "google-tts-input-type", cfg.GoogleTTS.InputType, "тип входа: text|ssml")
	// Параметры Gemini TTS
	fs.StringVar(&cfg.GeminiTTS.ModelName, "gemini-tts-model", cfg.GeminiTTS.ModelName, "модель Gemini TTS")
	fs.StringVar(&cfg.GeminiTTS.VoiceName, "gemini-tts-voice", cfg.GeminiTTS.VoiceName, "голос модели")
	fs.StringVar(&cfg.GeminiTTS.Language, "gemini-tts-language", cfg.GeminiTTS.Language, "язык синтеза")
	fs.StringVar(&cfg.GeminiTTS.Prompt, "gemini-tts-prompt", cfg.GeminiTTS.Prompt, "стилевой промпт голоса")
	// Телеметрия
	fs.StringVar(&cfg.Telemetry.Source, "telemetry-source", cfg.Telemetry.Source, "источник телеметрии: http|websocket")
	fs.StringVar(&cfg.Telemetry.BindAddr, "telemetry-bind-addr", cfg.Telemetry.BindAddr, "адрес HTTP приёмника телеметрии")
	fs.StringVar(&cfg.Telemetry.Path, "telemetry-path", cfg.Telemetry.Path, "HTTP путь приёмника телеметрии")
	fs.StringVar(&cfg.Telemetry.WebsocketURL, "telemetry-ws-url", cfg.Telemetry.WebsocketURL, "websocket адрес моста симулятора")
	fs.StringVar(&cfg.Telemetry.AuthToken, "telemetry-auth-token", cfg.Telemetry.AuthToken, "токен авторизации телеметрии (опционально)")
	fs.BoolVar(&cfg.MetricsEnabled, "metrics-enabled", cfg.MetricsEnabled, "отдавать /metrics")
	// Chat/Twitch
	fs.StringVar(&cfg.TwitchUsername, "twitch-username", cfg.TwitchUsername, "логин Twitch")
	fs.StringVar(&cfg.TwitchOAuthToken, "twitch-oauth-token", cfg.TwitchOAuthToken, "OAuth токен Twitch (может быть без префикса oauth:)")
	fs.StringVar(&cfg.TwitchChannel, "twitch-channel", cfg.TwitchChannel, "канал Twitch (без #)")
	fs.IntVar(&cfg.TwitchRatePerMinute, "twitch-rate-per-minute", cfg.TwitchRatePerMinute, "лимит сообщений в чат в минуту")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := prepareGoogleCredentials(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения, без которых приложение не может стартовать.
func (c *Config) Validate() error {
	var errs []error
	if c.SampleInterval <= 0 {
		errs = append(errs, errors.New("sample interval must be positive"))
	}
	if c.FrameInterval <= 0 || c.FrameInterval > c.SampleInterval {
		errs = append(errs, fmt.Errorf("frame interval %s must be positive and not exceed sample interval %s", c.FrameInterval, c.SampleInterval))
	}
	if c.StaleAfter <= 0 {
		errs = append(errs, errors.New("stale-after must be positive"))
	}
	if c.NarrationTimeout <= 0 {
		errs = append(errs, errors.New("narration timeout must be positive"))
	}
	if c.FastestLapWarmupLaps < 0 {
		errs = append(errs, errors.New("fastest lap warmup must not be negative"))
	}
	switch strings.ToLower(strings.TrimSpace(c.LLMService)) {
	case "openai", "ollama", "file", "stub":
	default:
		errs = append(errs, fmt.Errorf("unknown llm service %q", c.LLMService))
	}
	switch strings.ToLower(strings.TrimSpace(c.TTSService)) {
	case "google", "yandex", "gemini", "stub":
	default:
		errs = append(errs, fmt.Errorf("unknown tts service %q", c.TTSService))
	}
	switch strings.ToLower(strings.TrimSpace(c.Telemetry.Source)) {
	case "http", "websocket":
	default:
		errs = append(errs, fmt.Errorf("unknown telemetry source %q", c.Telemetry.Source))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// prepareGoogleCredentials - для google/gemini убеждаемся, что задан путь к cred-файлу и он существует.
// Если ENV пуст, но в конфиге указан путь - устанавливаем ENV.
func prepareGoogleCredentials(cfg *Config) error {
	service := strings.ToLower(strings.TrimSpace(cfg.TTSService))
	if service != "google" && service != "gemini" {
		return nil
	}
	cred := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	if cred == "" {
		if cp := strings.TrimSpace(cfg.GoogleTTS.CredentialsPath); cp != "" {
			_ = os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", cp)
			cred = cp
		}
	}
	if cred == "" {
		return errors.New("google tts: переменная окружения GOOGLE_APPLICATION_CREDENTIALS не задана; укажите ENV или флаг -google-tts-credentials")
	}
	if _, err := os.Stat(cred); err != nil {
		return fmt.Errorf("google tts: файл ключа не найден: %s", cred)
	}
	return nil
}
