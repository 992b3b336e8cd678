package notifiers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"weather-telemetry-service/internal/logging"
	"weather-telemetry-service/internal/models"
	"weather-telemetry-service/internal/utils"
)

// TelegramNotifier pushes alerts to a chat through the Bot API. Sends are
// rate limited and retried; a send that still fails is reported to the
// manager, which isolates it from the other notifiers.
type TelegramNotifier struct {
	bot     *bot.Bot
	chatID  int64
	limiter *rate.Limiter
	logger  *logging.Logger
}

func NewTelegramNotifier(token string, chatID int64, ratePerSecond int, logger *logging.Logger) (*TelegramNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("missing telegram bot token")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("missing telegram chat_id")
	}
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	return &TelegramNotifier{
		bot:     b,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
		logger:  logger,
	}, nil
}

func (n *TelegramNotifier) Name() string { return "telegram" }

func (n *TelegramNotifier) Notify(ctx context.Context, alert models.Alert) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit wait: %w", err)
	}

	text := fmt.Sprintf("*%s*\n%s", Subject(alert), Body(alert))

	return utils.Retry(n.logger, 3, time.Second, func() error {
		params := &bot.SendMessageParams{
			ChatID:    n.chatID,
			Text:      text,
			ParseMode: "Markdown",
		}
		if _, err := n.bot.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send telegram message to chat_id %d: %w", n.chatID, err)
		}
		return nil
	})
}
