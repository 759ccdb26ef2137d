package twitch

import (
	"context"
	"strings"
	"sync"
	"time"

	"RaceCommentator/internal/race"

	twitchirc "github.com/gempir/go-twitch-irc/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxMessageLen - лимит Twitch на одно сообщение в чат.
const maxMessageLen = 500

// Config хранит параметры подключения к Twitch IRC.
type Config struct {
	Username      string
	OAuth         string // может быть с/без префикса oauth:
	Channel       string // без #, регистр не важен
	RatePerMinute int
}

type sayer interface {
	Say(channel, text string)
}

// Announcer дублирует озвученные реплики в чат канала.
// Сообщения сверх лимита и повторы того же текста в течение окна отбрасываются, сценарий не ждёт чат.
type Announcer struct {
	logger  *zap.SugaredLogger
	channel string
	limiter *rate.Limiter
	now     func() time.Time

	mu       sync.Mutex
	client   sayer
	lastText string
	lastAt   time.Time
}

const dedupWindow = 5 * time.Second

func newAnnouncer(logger *zap.SugaredLogger, channel string, perMinute int, client sayer) *Announcer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if perMinute <= 0 {
		perMinute = 20
	}
	return &Announcer{
		logger:  logger,
		channel: channel,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		now:     time.Now,
		client:  client,
	}
}

// Narrated отправляет реплику в чат. Вызывается планировщиком после успешной озвучки.
func (a *Announcer) Narrated(_ context.Context, e race.Event, text string) {
	text = truncate(strings.TrimSpace(text), maxMessageLen)
	if text == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return
	}
	now := a.now()
	if text == a.lastText && now.Sub(a.lastAt) <= dedupWindow {
		return
	}
	if !a.limiter.AllowN(now, 1) {
		a.logger.Debugw("Twitch message skipped by rate limit", "kind", e.Kind)
		return
	}
	a.lastText, a.lastAt = text, now
	a.client.Say(a.channel, text)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Run подключается к Twitch IRC и держит соединение до отмены ctx.
// Базовые реконнекты обеспечиваются клиентом.
func Run(ctx context.Context, logger *zap.SugaredLogger, cfg Config, a *Announcer) error {
	client := twitchirc.NewClient(cfg.Username, cfg.OAuth)
	client.OnConnect(func() {
		logger.Infow("Twitch connected", "as", cfg.Username, "join", cfg.Channel)
		client.Join(cfg.Channel)
		a.mu.Lock()
		a.client = client
		a.mu.Unlock()
	})

	errCh := make(chan error, 1)
	go func() { errCh <- client.Connect() }()

	select {
	case <-ctx.Done():
		a.mu.Lock()
		a.client = nil
		a.mu.Unlock()
		_ = client.Disconnect()
		// Подождём чуть-чуть корректного завершения
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
		}
		return context.Cause(ctx)
	case err := <-errCh:
		if err != nil {
			logger.Errorw("twitch connect error", "error", err)
		}
		return err
	}
}

// NewAnnouncer нормализует конфиг. ok=false, если чат не настроен: зеркалирование выключено.
func NewAnnouncer(logger *zap.SugaredLogger, cfg Config) (*Announcer, Config, bool) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	cfg.Username = strings.ToLower(strings.TrimSpace(cfg.Username))
	cfg.OAuth = strings.TrimSpace(cfg.OAuth)
	cfg.Channel = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.Channel), "#"))
	if cfg.Username == "" || cfg.OAuth == "" || cfg.Channel == "" {
		logger.Infow("Twitch mirror disabled: missing settings", "username", cfg.Username != "", "token", cfg.OAuth != "", "channel", cfg.Channel != "")
		return nil, cfg, false
	}
	if !strings.HasPrefix(cfg.OAuth, "oauth:") {
		cfg.OAuth = "oauth:" + cfg.OAuth
	}
	return newAnnouncer(logger, cfg.Channel, cfg.RatePerMinute, nil), cfg, true
}
