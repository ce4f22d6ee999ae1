package scheduling

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

type PreferencesRepo interface {
	Upsert(dbc dbctx.Context, prefs *types.UserPreferences) error
	// GetForUsers returns raw preference payloads keyed by user id. Users without a row
	// are absent from the map.
	GetForUsers(dbc dbctx.Context, recruitmentID uuid.UUID, userIDs []uuid.UUID) (map[uuid.UUID]datatypes.JSON, error)
}

type preferencesRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPreferencesRepo(db *gorm.DB, baseLog *logger.Logger) PreferencesRepo {
	return &preferencesRepo{db: db, log: baseLog.With("repo", "PreferencesRepo")}
}

func (r *preferencesRepo) Upsert(dbc dbctx.Context, prefs *types.UserPreferences) error {
	prefs.UpdatedAt = time.Now().UTC()
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "recruitment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"preferences_data", "updated_at"}),
	}).Create(prefs).Error
}

func (r *preferencesRepo) GetForUsers(dbc dbctx.Context, recruitmentID uuid.UUID, userIDs []uuid.UUID) (map[uuid.UUID]datatypes.JSON, error) {
	out := map[uuid.UUID]datatypes.JSON{}
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []*types.UserPreferences
	if err := dbc.DB(r.db).
		Where("recruitment_id = ? AND user_id IN ?", recruitmentID, userIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = row.PreferencesData
	}
	return out, nil
}
