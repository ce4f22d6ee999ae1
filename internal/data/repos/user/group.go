package user

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

type GroupRepo interface {
	Create(dbc dbctx.Context, g *types.Group) error
	AddMembers(dbc dbctx.Context, groupID uuid.UUID, userIDs []uuid.UUID) error
	// MemberIDsByGroup returns member user ids per group, each list sorted.
	MemberIDsByGroup(dbc dbctx.Context, groupIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error)
	// DeleteByIDs removes groups of the given category together with their memberships.
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID, category string) error
}

type groupRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGroupRepo(db *gorm.DB, baseLog *logger.Logger) GroupRepo {
	return &groupRepo{db: db, log: baseLog.With("repo", "GroupRepo")}
}

func (r *groupRepo) Create(dbc dbctx.Context, g *types.Group) error {
	return dbc.DB(r.db).Create(g).Error
}

func (r *groupRepo) AddMembers(dbc dbctx.Context, groupID uuid.UUID, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]*types.GroupMember, 0, len(userIDs))
	for _, uid := range userIDs {
		rows = append(rows, &types.GroupMember{GroupID: groupID, UserID: uid})
	}
	return dbc.DB(r.db).Create(&rows).Error
}

func (r *groupRepo) MemberIDsByGroup(dbc dbctx.Context, groupIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	out := map[uuid.UUID][]uuid.UUID{}
	if len(groupIDs) == 0 {
		return out, nil
	}
	var rows []*types.GroupMember
	if err := dbc.DB(r.db).
		Where("group_id IN ?", groupIDs).
		Order("group_id ASC, user_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.GroupID] = append(out[row.GroupID], row.UserID)
	}
	return out, nil
}

func (r *groupRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID, category string) error {
	if len(ids) == 0 {
		return nil
	}
	db := dbc.DB(r.db)
	var doomed []uuid.UUID
	if err := db.Model(&types.Group{}).
		Where("id IN ? AND category = ?", ids, category).
		Pluck("id", &doomed).Error; err != nil {
		return err
	}
	if len(doomed) == 0 {
		return nil
	}
	if err := db.Where("group_id IN ?", doomed).Delete(&types.GroupMember{}).Error; err != nil {
		return err
	}
	return db.Where("id IN ?", doomed).Delete(&types.Group{}).Error
}
