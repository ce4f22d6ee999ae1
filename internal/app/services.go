package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
	"github.com/yungbote/evoplanner-backend/internal/services"
)

type Services struct {
	Notifier          services.JobNotifier
	ConstraintEncoder services.ConstraintEncoder
	PreferenceEncoder services.PreferenceEncoder
	Optimizer         services.OptimizerService
	Materializer      services.Materializer
	ProgressListener  *services.ProgressListener
	TriggerScheduler  *services.TriggerScheduler
	Maintenance       *services.Maintenance
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients) Services {
	log.Info("Wiring services...")

	notifier := services.NewJobNotifier(&services.BusEmitter{Bus: c.SSEBus, Log: log})

	constraintEncoder := services.NewConstraintEncoder(
		log,
		r.Recruitment, r.Participant, r.Subject, r.Room, r.Meeting, r.Group, r.Constraints,
		cfg.Optimizer.Padding(),
	)
	preferenceEncoder := services.NewPreferenceEncoder(log, r.Participant, r.Preferences, r.Constraints)

	optimizer := services.NewOptimizerService(
		db, log,
		r.Recruitment, r.OptimizationJob, r.OptimizationProgress,
		preferenceEncoder,
		c.Redis, c.Redis,
		notifier,
		services.OptimizerServiceConfig{CancelTTL: cfg.Optimizer.CancelTTL},
	)
	materializer := services.NewMaterializer(
		db, log,
		r.Recruitment, r.OptimizationJob, r.Subject, r.Meeting, r.Group, r.Constraints,
		notifier,
	)
	listener := services.NewProgressListener(
		log,
		r.OptimizationJob, r.OptimizationProgress,
		c.Redis, services.NewRedisProgressSubscriber(c.Redis),
		materializer, notifier,
		services.ProgressListenerConfig{ReceiveTimeout: cfg.Optimizer.ListenerReceiveTimeout},
	)
	scheduler := services.NewTriggerScheduler(
		log,
		r.Recruitment, r.Participant,
		constraintEncoder, optimizer, notifier,
		services.TriggerSchedulerConfig{PollInterval: cfg.Optimizer.TriggerPollInterval},
	)
	maintenance := services.NewMaintenance(
		log,
		r.Recruitment, r.OptimizationJob, notifier,
		services.MaintenanceConfig{
			Schedule:        cfg.Optimizer.MaintenanceSchedule,
			OrphanJobMaxAge: cfg.Optimizer.OrphanJobMaxAge,
		},
	)

	return Services{
		Notifier:          notifier,
		ConstraintEncoder: constraintEncoder,
		PreferenceEncoder: preferenceEncoder,
		Optimizer:         optimizer,
		Materializer:      materializer,
		ProgressListener:  listener,
		TriggerScheduler:  scheduler,
		Maintenance:       maintenance,
	}
}
