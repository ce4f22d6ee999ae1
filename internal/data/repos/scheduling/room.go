package scheduling

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

type RoomRepo interface {
	Create(dbc dbctx.Context, room *types.Room) error
	ListByOrganization(dbc dbctx.Context, orgID uuid.UUID) ([]*types.Room, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Room, error)
	TagNamesByRoom(dbc dbctx.Context, roomIDs []uuid.UUID) (map[uuid.UUID][]string, error)
	AttachTag(dbc dbctx.Context, roomID, tagID uuid.UUID) error
	// EnsureTag returns the tag with the given name, creating it if needed.
	EnsureTag(dbc dbctx.Context, name string) (*types.Tag, error)
}

type roomRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoomRepo(db *gorm.DB, baseLog *logger.Logger) RoomRepo {
	return &roomRepo{db: db, log: baseLog.With("repo", "RoomRepo")}
}

func (r *roomRepo) Create(dbc dbctx.Context, room *types.Room) error {
	return dbc.DB(r.db).Create(room).Error
}

func (r *roomRepo) ListByOrganization(dbc dbctx.Context, orgID uuid.UUID) ([]*types.Room, error) {
	var out []*types.Room
	err := dbc.DB(r.db).
		Where("organization_id = ?", orgID).
		Order("sort_key ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *roomRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Room, error) {
	var out []*types.Room
	if len(ids) == 0 {
		return out, nil
	}
	err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

func (r *roomRepo) TagNamesByRoom(dbc dbctx.Context, roomIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	out := map[uuid.UUID][]string{}
	if len(roomIDs) == 0 {
		return out, nil
	}
	var rows []ownerTagRow
	err := dbc.DB(r.db).
		Table("room_tag AS rt").
		Select("rt.room_id AS owner_id, t.name AS name").
		Joins("JOIN tag t ON t.id = rt.tag_id").
		Where("rt.room_id IN ?", roomIDs).
		Order("t.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.OwnerID] = append(out[row.OwnerID], row.Name)
	}
	return out, nil
}

func (r *roomRepo) AttachTag(dbc dbctx.Context, roomID, tagID uuid.UUID) error {
	return dbc.DB(r.db).Create(&types.RoomTag{RoomID: roomID, TagID: tagID}).Error
}

func (r *roomRepo) EnsureTag(dbc dbctx.Context, name string) (*types.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("tag name required")
	}
	var tag types.Tag
	err := dbc.DB(r.db).Where("name = ?", name).FirstOrCreate(&tag, types.Tag{Name: name}).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}
