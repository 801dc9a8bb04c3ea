package utils

import (
	"flowlens/internal/alert"
	"flowlens/internal/metrics"
	"flowlens/internal/rules"

	"github.com/sirupsen/logrus"
)

// RegisterNotifiers attaches the configured alert channels to engine. m may be
// nil when no metric set is kept.
func RegisterNotifiers(engine *rules.Engine, config *Config, m *metrics.Metrics, logger *logrus.Logger) {
	if m != nil {
		engine.RegisterNotifier(alert.NewPrometheusNotifier(m))
	}
	if !config.Alerting.Enabled {
		logger.Info("Alerting disabled")
		return
	}

	if config.Alerting.Channels.Log {
		engine.RegisterNotifier(alert.NewLogAlertNotifier(logger))
	}

	if config.Alerting.Channels.Telegram && config.Alerting.Telegram.Enabled {
		tg := config.Alerting.Telegram
		engine.RegisterNotifier(alert.NewTelegramNotifierWithOptions(alert.TelegramOptions{
			BotToken:        tg.BotToken,
			ChatID:          tg.ChatID,
			ParseMode:       tg.ParseMode,
			Enabled:         tg.Enabled,
			APIURL:          tg.APIURL,
			MessageTemplate: tg.MessageTemplate,
		}, logger))
		logger.Info("Telegram notifier registered")
	}
}
