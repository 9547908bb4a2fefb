// Package telegram delivers alert messages through the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/arbscan/arbscan/business/notify/app"
	"github.com/arbscan/arbscan/internal/apperror"
	"github.com/arbscan/arbscan/internal/logger"
)

const meterName = "github.com/arbscan/arbscan/business/notify/infra/telegram"

// SenderConfig holds bot credentials and the target chat.
type SenderConfig struct {
	Token  string
	ChatID int64
}

type senderMetrics struct {
	sends      metric.Int64Counter
	sendErrors metric.Int64Counter
}

// Sender posts alert messages to a single Telegram chat.
type Sender struct {
	config  SenderConfig
	bot     *tgbotapi.BotAPI
	logger  logger.LoggerInterface
	metrics *senderMetrics
}

var _ app.Sender = (*Sender)(nil)

// NewSender authenticates against the Bot API and returns a sender
// bound to the configured chat.
func NewSender(config SenderConfig, log logger.LoggerInterface) (*Sender, error) {
	if config.Token == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("telegram token is required"))
	}
	if config.ChatID == 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("telegram chat id is required"))
	}

	bot, err := tgbotapi.NewBotAPI(config.Token)
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("telegram bot authentication failed"),
			apperror.WithCause(err))
	}

	s := &Sender{
		config: config,
		bot:    bot,
		logger: log,
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	log.Info(context.Background(), "telegram sender ready", "bot", bot.Self.UserName)

	return s, nil
}

func (s *Sender) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &senderMetrics{}

	s.metrics.sends, err = meter.Int64Counter(
		"telegram_sends_total",
		metric.WithDescription("Total messages posted to Telegram"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return err
	}

	s.metrics.sendErrors, err = meter.Int64Counter(
		"telegram_send_errors_total",
		metric.WithDescription("Total Telegram send failures"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Send posts a Markdown message to the configured chat.
func (s *Sender) Send(ctx context.Context, message string) error {
	msg := tgbotapi.NewMessage(s.config.ChatID, message)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := s.bot.Send(msg); err != nil {
		s.metrics.sendErrors.Add(ctx, 1)
		return apperror.New(apperror.CodeAlertDeliveryFailed,
			apperror.WithContext("telegram send failed"),
			apperror.WithCause(err))
	}

	s.metrics.sends.Add(ctx, 1)

	return nil
}

// Close stops the bot's update polling. The Bot API itself is
// stateless HTTP, so there is no connection to tear down beyond that.
func (s *Sender) Close() error {
	s.bot.StopReceivingUpdates()
	return nil
}
