package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gold-signal-sentry/pkg/types"
)

const pushPlusEndpoint = "http://www.pushplus.plus/send"

// PushPlusNotifier PushPlus通知器
type PushPlusNotifier struct {
	userToken  string
	to         string // 好友令牌，多人用逗号分隔
	endpoint   string
	httpClient *http.Client
	fallback   *ConsoleNotifier
}

type PushPlusRequest struct {
	Token    string `json:"token"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Template string `json:"template"`
	To       string `json:"to,omitempty"`
}

type PushPlusResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data string `json:"data"`
}

func NewPushPlusNotifier(userToken, to string) *PushPlusNotifier {
	return &PushPlusNotifier{
		userToken:  userToken,
		to:         to,
		endpoint:   pushPlusEndpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		fallback:   NewConsoleNotifier(),
	}
}

func (ppn *PushPlusNotifier) SendAlert(alert *types.SignalAlert) error {
	return deliver("pushplus", func() error {
		if err := ppn.sendPushPlusMessage(alertTitle(alert), buildHTMLContent(alert)); err != nil {
			return err
		}
		zap.L().Info("✅ PushPlus通知已发送", zap.String("symbol", alert.Symbol), zap.String("level", string(alert.Level())))
		return nil
	}, func() error {
		return ppn.fallback.SendAlert(alert)
	})
}

func (ppn *PushPlusNotifier) SendBatchAlerts(alerts []*types.SignalAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	if len(alerts) == 1 {
		return ppn.SendAlert(alerts[0])
	}

	return deliver("pushplus", func() error {
		if err := ppn.sendPushPlusMessage(batchTitle(alerts), buildBatchHTMLContent(alerts)); err != nil {
			return err
		}
		zap.L().Info("✅ PushPlus批量通知已发送", zap.Int("count", len(alerts)))
		return nil
	}, func() error {
		return ppn.fallback.SendBatchAlerts(alerts)
	})
}

func (ppn *PushPlusNotifier) sendPushPlusMessage(title, content string) error {
	reqData := PushPlusRequest{
		Token:    ppn.userToken,
		Title:    title,
		Content:  content,
		Template: "html",
		To:       ppn.to,
	}

	jsonData, err := json.Marshal(reqData)
	if err != nil {
		return fmt.Errorf("序列化请求数据失败: %w", err)
	}

	resp, err := ppn.httpClient.Post(ppn.endpoint, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	var pushResp PushPlusResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushResp); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	if pushResp.Code != 200 {
		return fmt.Errorf("PushPlus API错误: %s", pushResp.Msg)
	}

	return nil
}
