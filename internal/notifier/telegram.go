package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
	"gold-signal-sentry/pkg/types"
)

const telegramTimeout = 10 * time.Second

// TelegramNotifier Telegram机器人通知器
type TelegramNotifier struct {
	bot      *bot.Bot
	chatID   int64
	fallback *ConsoleNotifier
}

func NewTelegramNotifier(token string, chatID int64, opts ...bot.Option) (*TelegramNotifier, error) {
	opts = append([]bot.Option{bot.WithSkipGetMe()}, opts...)
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("创建Telegram机器人失败: %w", err)
	}

	return &TelegramNotifier{
		bot:      b,
		chatID:   chatID,
		fallback: NewConsoleNotifier(),
	}, nil
}

func (tn *TelegramNotifier) SendAlert(alert *types.SignalAlert) error {
	return deliver("telegram", func() error {
		if err := tn.send(buildTelegramText(alert)); err != nil {
			return err
		}
		zap.L().Info("✅ Telegram通知已发送", zap.String("symbol", alert.Symbol), zap.String("level", string(alert.Level())))
		return nil
	}, func() error {
		return tn.fallback.SendAlert(alert)
	})
}

func (tn *TelegramNotifier) SendBatchAlerts(alerts []*types.SignalAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	if len(alerts) == 1 {
		return tn.SendAlert(alerts[0])
	}

	return deliver("telegram", func() error {
		return tn.send(buildBatchTelegramText(alerts))
	}, func() error {
		return tn.fallback.SendBatchAlerts(alerts)
	})
}

func (tn *TelegramNotifier) send(text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), telegramTimeout)
	defer cancel()

	_, err := tn.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    tn.chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("发送Telegram消息失败: %w", err)
	}
	return nil
}
