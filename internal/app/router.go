package app

import (
	apphttp "github.com/yungbote/evoplanner-backend/internal/http"
	"github.com/yungbote/evoplanner-backend/internal/observability"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, h Handlers, metrics *observability.Metrics) *apphttp.Server {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:                log,
		ServiceName:        serviceName,
		CORSOrigins:        cfg.CORSOrigins,
		Metrics:            metrics,
		HealthHandler:      h.Health,
		JobHandler:         h.Job,
		RecruitmentHandler: h.Recruitment,
		RealtimeHandler:    h.Realtime,
	})
}
