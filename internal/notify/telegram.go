package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"voe-monitor-backend/config"
)

// TelegramNotifier sends notifications through the Telegram Bot API. All
// sends go through a shared rate limiter to stay under the Bot API's
// messages-per-second ceiling.
type TelegramNotifier struct {
	bot     *bot.Bot
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewTelegramNotifier creates the Telegram notifier.
func NewTelegramNotifier(cfg *config.TelegramConfig, logger *zap.Logger) (*TelegramNotifier, error) {
	b, err := bot.New(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(cfg.SendRatePerSec), cfg.SendBurst),
		logger:  logger.Named("telegram"),
	}, nil
}

// SendMessage delivers an HTML message to the user's chat.
func (n *TelegramNotifier) SendMessage(ctx context.Context, userID int64, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    userID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("send message to %d: %w", userID, err)
	}
	return nil
}

// RefreshMainMenu pushes a fresh main-menu message so it stays below the
// notifications just sent.
func (n *TelegramNotifier) RefreshMainMenu(ctx context.Context, userID int64) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: userID,
		Text:   "Головне меню",
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: "📋 Мої адреси", CallbackData: "menu:addresses"}},
				{{Text: "⚙️ Налаштування", CallbackData: "menu:settings"}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("refresh main menu for %d: %w", userID, err)
	}
	return nil
}
