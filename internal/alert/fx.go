package alert

import (
	"github.com/smallbiznis/pricewatch/internal/alert/domain"
	"github.com/smallbiznis/pricewatch/internal/alert/service"
	"github.com/smallbiznis/pricewatch/internal/alert/sink"
	"github.com/smallbiznis/pricewatch/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("alert.service",
	fx.Provide(service.New),
	fx.Provide(NewSink),
)

// NewSink always logs alerts and also posts them to ALERT_WEBHOOK_URL when set.
func NewSink(cfg config.Config, log *zap.Logger) domain.Sink {
	sinks := []domain.Sink{sink.NewLog(log)}
	if cfg.AlertWebhookURL != "" {
		sinks = append(sinks, sink.NewWebhook(cfg.AlertWebhookURL, nil))
	}
	return sink.NewMulti(log, sinks...)
}
