package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/evoplanner-backend/internal/http/handlers"
	httpMW "github.com/yungbote/evoplanner-backend/internal/http/middleware"
	"github.com/yungbote/evoplanner-backend/internal/observability"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics

	HealthHandler      *httpH.HealthHandler
	JobHandler         *httpH.JobHandler
	RecruitmentHandler *httpH.RecruitmentHandler
	RealtimeHandler    *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Jobs
		if cfg.JobHandler != nil {
			api.GET("/jobs", cfg.JobHandler.ListJobs)
			api.POST("/jobs", cfg.JobHandler.CreateJob)
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
			api.GET("/jobs/:id/status", cfg.JobHandler.GetStatus)
			api.POST("/jobs/:id/cancel", cfg.JobHandler.CancelJob)
			api.GET("/jobs/:id/progress", cfg.JobHandler.ListProgress)
			api.POST("/jobs/:id/materialize", cfg.JobHandler.Materialize)
		}

		// Recruitments
		if cfg.RecruitmentHandler != nil {
			api.POST("/recruitments/:id/constraints", cfg.RecruitmentHandler.EncodeConstraints)
			api.GET("/recruitments/:id/constraints", cfg.RecruitmentHandler.GetConstraints)
			api.GET("/recruitments/:id/problem", cfg.RecruitmentHandler.PreviewProblem)
			api.POST("/recruitments/:id/optimize", cfg.RecruitmentHandler.TriggerOptimization)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/jobs/:id/stream", cfg.RealtimeHandler.JobStream)
			api.GET("/recruitments/:id/stream", cfg.RealtimeHandler.RecruitmentStream)
		}
	}

	return r
}
