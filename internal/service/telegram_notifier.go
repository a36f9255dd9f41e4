package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Notifier 交易通知出口（best-effort，失败不影响账本）
type Notifier interface {
	Notify(ctx context.Context, title, description string)
}

// NopNotifier 未配置通知渠道时的空实现
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, title, description string) {}

// telegramResponse Telegram Bot API 响应
type telegramResponse struct {
	Ok          bool   `json:"ok"`
	Description string `json:"description"`
}

// TelegramNotifier 通过 Telegram Bot API 推送交易动态
type TelegramNotifier struct {
	httpClient *resty.Client
	botToken   string
	chatID     string
	logger     *zap.Logger
}

// NewTelegramNotifier 创建 Telegram 通知客户端
func NewTelegramNotifier(botToken, chatID string, logger *zap.Logger) *TelegramNotifier {
	client := resty.New().
		SetBaseURL("https://api.telegram.org").
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &TelegramNotifier{
		httpClient: client,
		botToken:   botToken,
		chatID:     chatID,
		logger:     logger,
	}
}

// Notify 发送通知；任何失败只记日志
func (n *TelegramNotifier) Notify(ctx context.Context, title, description string) {
	text := fmt.Sprintf("%s\n%s", title, description)

	var response telegramResponse
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id": n.chatID,
			"text":    text,
		}).
		SetResult(&response).
		Post(fmt.Sprintf("/bot%s/sendMessage", n.botToken))

	if err != nil {
		n.logger.Warn("Telegram notification failed",
			zap.Error(err),
		)
		return
	}

	if !response.Ok {
		n.logger.Warn("Telegram API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("description", response.Description),
		)
	}
}
