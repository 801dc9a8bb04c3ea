package alert

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"text/template"
	"time"

	"flowlens/internal/model"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

const DefaultTelegramAPIURL = "https://api.telegram.org"

type TelegramNotifier struct {
	botToken        string
	chatID          string
	parseMode       string
	enabled         bool
	apiURL          string
	maxRetries      int
	retryDelay      time.Duration
	messageTemplate *template.Template
	client          *http.Client
	logger          *logrus.Logger
}

type TelegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type TelegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// TelegramOptions configures a TelegramNotifier; zero values fall back to defaults
type TelegramOptions struct {
	BotToken        string
	ChatID          string
	ParseMode       string
	Enabled         bool
	APIURL          string
	MessageTemplate string
	RetryDelay      time.Duration
}

func NewTelegramNotifier(botToken, chatID, parseMode string, enabled bool, logger *logrus.Logger) *TelegramNotifier {
	return NewTelegramNotifierWithOptions(TelegramOptions{
		BotToken:  botToken,
		ChatID:    chatID,
		ParseMode: parseMode,
		Enabled:   enabled,
	}, logger)
}

func NewTelegramNotifierWithOptions(opts TelegramOptions, logger *logrus.Logger) *TelegramNotifier {
	tn := &TelegramNotifier{
		botToken:   opts.BotToken,
		chatID:     opts.ChatID,
		parseMode:  opts.ParseMode,
		enabled:    opts.Enabled,
		apiURL:     strings.TrimRight(opts.APIURL, "/"),
		maxRetries: 3,
		retryDelay: opts.RetryDelay,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
	if tn.apiURL == "" {
		tn.apiURL = DefaultTelegramAPIURL
	}
	if tn.retryDelay <= 0 {
		tn.retryDelay = time.Second
	}

	if strings.TrimSpace(opts.MessageTemplate) != "" {
		funcMap := template.FuncMap{
			"formatTime": func(t time.Time, layout string) string {
				return t.Format(layout)
			},
		}
		tmpl, err := template.New("telegram_message").Funcs(funcMap).Parse(opts.MessageTemplate)
		if err != nil {
			logger.Warnf("Failed to parse Telegram message template: %v, using default format", err)
		} else {
			tn.messageTemplate = tmpl
		}
	}

	return tn
}

func (tn *TelegramNotifier) SendAlert(alert model.Alert) error {
	if !tn.enabled {
		tn.logger.Debug("Telegram notifier is disabled, skipping alert")
		return nil
	}

	message := tn.formatAlertMessage(alert)

	var lastErr error
	for i := 0; i < tn.maxRetries; i++ {
		lastErr = tn.sendMessage(message)
		if lastErr == nil {
			return nil
		}

		tn.logger.Warnf("Failed to send alert (attempt %d/%d): %v", i+1, tn.maxRetries, lastErr)

		if i < tn.maxRetries-1 {
			time.Sleep(time.Duration(i+1) * tn.retryDelay)
		}
	}

	return fmt.Errorf("failed to send alert after %d attempts: %w", tn.maxRetries, lastErr)
}

func (tn *TelegramNotifier) formatAlertMessage(alert model.Alert) string {
	if tn.messageTemplate != nil {
		var buf bytes.Buffer
		err := tn.messageTemplate.Execute(&buf, alert)
		if err != nil {
			tn.logger.Warnf("Failed to execute message template: %v, using default format", err)
		} else {
			return buf.String()
		}
	}

	dataset := alert.Dataset
	if dataset == "" {
		dataset = "unknown"
	}

	return fmt.Sprintf("ALERT FIRING: Anomaly Detect\n\n"+
		"alert_name: %s\n"+
		"time: %s\n"+
		"severity: %s\n"+
		"dataset: %s\n"+
		"count: %d\n"+
		"description: %s",
		alert.Type,
		alert.Timestamp.Format("2006-01-02 15:04:05"),
		alert.Severity,
		dataset,
		alert.Count,
		alert.Message)
}

func (tn *TelegramNotifier) sendMessage(text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", tn.apiURL, tn.botToken)

	// Markdown modes reject unescaped underscores in anomaly types
	parseMode := ""
	if tn.parseMode != "" && tn.parseMode != "Markdown" && tn.parseMode != "MarkdownV2" {
		parseMode = tn.parseMode
	}

	message := TelegramMessage{
		ChatID:    tn.chatID,
		Text:      text,
		ParseMode: parseMode,
	}

	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := tn.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var telegramResp TelegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&telegramResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if !telegramResp.OK {
		return fmt.Errorf("telegram API error: %s", telegramResp.Description)
	}

	tn.logger.Infof("Alert sent to Telegram successfully")
	return nil
}

func (tn *TelegramNotifier) SendTestMessage() error {
	if !tn.enabled {
		return fmt.Errorf("telegram notifier is disabled")
	}

	return tn.sendMessage("Test Message\n\nflowlens detector is working correctly!")
}

func (tn *TelegramNotifier) IsEnabled() bool {
	return tn.enabled
}
