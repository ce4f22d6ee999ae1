package app

import (
	httpH "github.com/yungbote/evoplanner-backend/internal/http/handlers"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
	"github.com/yungbote/evoplanner-backend/internal/realtime"
)

type Handlers struct {
	Health      *httpH.HealthHandler
	Job         *httpH.JobHandler
	Recruitment *httpH.RecruitmentHandler
	Realtime    *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, s Services, c Clients, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(map[string]httpH.Pinger{
			"database": c.Postgres,
			"redis":    c.Redis,
		}),
		Job:         httpH.NewJobHandler(s.Optimizer, s.Materializer),
		Recruitment: httpH.NewRecruitmentHandler(s.ConstraintEncoder, s.PreferenceEncoder, s.TriggerScheduler),
		Realtime:    httpH.NewRealtimeHandler(log, hub),
	}
}
