package scheduling

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

type SubjectRepo interface {
	Create(dbc dbctx.Context, s *types.Subject) error
	CreateGroup(dbc dbctx.Context, g *types.SubjectGroup) error
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Subject, error)
	// ListByRecruitment and ListGroupsByRecruitment return rows in encoding order.
	ListByRecruitment(dbc dbctx.Context, recruitmentID uuid.UUID) ([]*types.Subject, error)
	ListGroupsByRecruitment(dbc dbctx.Context, recruitmentID uuid.UUID) ([]*types.SubjectGroup, error)
	GetGroupsByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.SubjectGroup, error)
	TagNamesBySubject(dbc dbctx.Context, subjectIDs []uuid.UUID) (map[uuid.UUID][]string, error)
	AttachTag(dbc dbctx.Context, subjectID, tagID uuid.UUID) error
}

type subjectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubjectRepo(db *gorm.DB, baseLog *logger.Logger) SubjectRepo {
	return &subjectRepo{db: db, log: baseLog.With("repo", "SubjectRepo")}
}

func (r *subjectRepo) Create(dbc dbctx.Context, s *types.Subject) error {
	return dbc.DB(r.db).Create(s).Error
}

func (r *subjectRepo) CreateGroup(dbc dbctx.Context, g *types.SubjectGroup) error {
	return dbc.DB(r.db).Create(g).Error
}

func (r *subjectRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Subject, error) {
	var out []*types.Subject
	if len(ids) == 0 {
		return out, nil
	}
	err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

func (r *subjectRepo) ListByRecruitment(dbc dbctx.Context, recruitmentID uuid.UUID) ([]*types.Subject, error) {
	var out []*types.Subject
	err := dbc.DB(r.db).
		Where("recruitment_id = ?", recruitmentID).
		Order("sort_key ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *subjectRepo) ListGroupsByRecruitment(dbc dbctx.Context, recruitmentID uuid.UUID) ([]*types.SubjectGroup, error) {
	var out []*types.SubjectGroup
	err := dbc.DB(r.db).
		Where("recruitment_id = ?", recruitmentID).
		Order("sort_key ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *subjectRepo) GetGroupsByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.SubjectGroup, error) {
	var out []*types.SubjectGroup
	if len(ids) == 0 {
		return out, nil
	}
	err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

type ownerTagRow struct {
	OwnerID uuid.UUID
	Name    string
}

func (r *subjectRepo) TagNamesBySubject(dbc dbctx.Context, subjectIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	out := map[uuid.UUID][]string{}
	if len(subjectIDs) == 0 {
		return out, nil
	}
	var rows []ownerTagRow
	err := dbc.DB(r.db).
		Table("subject_tag AS st").
		Select("st.subject_id AS owner_id, t.name AS name").
		Joins("JOIN tag t ON t.id = st.tag_id").
		Where("st.subject_id IN ?", subjectIDs).
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

func (r *subjectRepo) AttachTag(dbc dbctx.Context, subjectID, tagID uuid.UUID) error {
	return dbc.DB(r.db).Create(&types.SubjectTag{SubjectID: subjectID, TagID: tagID}).Error
}
