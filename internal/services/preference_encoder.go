package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/evoplanner-backend/internal/data/repos"
	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/observability"
	"github.com/yungbote/evoplanner-backend/internal/optimizer/problem"
	"github.com/yungbote/evoplanner-backend/internal/platform/apierr"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

// PreferenceReport describes how the preference vectors line up with the stored constraints.
type PreferenceReport struct {
	Students           int         `json:"students"`
	Teachers           int         `json:"teachers"`
	ConstraintStudents int         `json:"constraint_students"`
	ConstraintTeachers int         `json:"constraint_teachers"`
	DefaultedStudents  []uuid.UUID `json:"defaulted_students,omitempty"`
	DefaultedTeachers  []uuid.UUID `json:"defaulted_teachers,omitempty"`

	// Unencoded joined the recruitment after encoding; Departed left it. Both mean the
	// constraints should be re-encoded.
	Unencoded []uuid.UUID `json:"unencoded,omitempty"`
	Departed  []uuid.UUID `json:"departed,omitempty"`

	// Consistent is false when the tuple counts diverge from StudentsSubjects/TeachersGroups
	// or participants drifted since encoding. Dispatch still proceeds.
	Consistent bool `json:"consistent"`
}

// PreparedProblem is what gets dispatched: the problem payload and the manifest that decodes
// the solver's answer.
type PreparedProblem struct {
	RecruitmentID   uuid.UUID
	ProblemData     json.RawMessage
	ManifestJSON    json.RawMessage
	OrderingVersion string
	Report          PreferenceReport
}

// PreferenceEncoder aligns each participant's stored preferences with the index order the
// constraint encoder used.
type PreferenceEncoder interface {
	Encode(dbc dbctx.Context, recruitmentID uuid.UUID) (*problem.Preferences, *PreferenceReport, error)
	// Prepare combines the stored constraints with freshly encoded preferences.
	Prepare(dbc dbctx.Context, recruitmentID uuid.UUID) (*PreparedProblem, error)
}

type preferenceEncoder struct {
	log          *logger.Logger
	participants repos.ParticipantRepo
	preferences  repos.PreferencesRepo
	constraints  repos.ConstraintsRepo
}

func NewPreferenceEncoder(
	baseLog *logger.Logger,
	participants repos.ParticipantRepo,
	preferences repos.PreferencesRepo,
	constraints repos.ConstraintsRepo,
) PreferenceEncoder {
	return &preferenceEncoder{
		log:          baseLog.With("service", "PreferenceEncoder"),
		participants: participants,
		preferences:  preferences,
		constraints:  constraints,
	}
}

func (s *preferenceEncoder) Prepare(dbc dbctx.Context, recruitmentID uuid.UUID) (out *PreparedProblem, err error) {
	ctx, span := observability.StartSpan(dbc.Context(), "optimizer.prepare_problem", observability.RecruitmentAttr(recruitmentID))
	defer func() { observability.EndSpan(span, err) }()
	dbc.Ctx = ctx

	row, err := s.loadConstraints(dbc, recruitmentID)
	if err != nil {
		return nil, err
	}
	prefs, report, err := s.encode(dbc, recruitmentID, row)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(problem.ProblemData{
		Constraints: json.RawMessage(row.ConstraintsData),
		Preferences: *prefs,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal problem data: %w", err)
	}
	return &PreparedProblem{
		RecruitmentID:   recruitmentID,
		ProblemData:     payload,
		ManifestJSON:    json.RawMessage(row.IndexManifest),
		OrderingVersion: row.OrderingVersion,
		Report:          *report,
	}, nil
}

func (s *preferenceEncoder) Encode(dbc dbctx.Context, recruitmentID uuid.UUID) (*problem.Preferences, *PreferenceReport, error) {
	row, err := s.loadConstraints(dbc, recruitmentID)
	if err != nil {
		return nil, nil, err
	}
	return s.encode(dbc, recruitmentID, row)
}

func (s *preferenceEncoder) loadConstraints(dbc dbctx.Context, recruitmentID uuid.UUID) (*types.Constraints, error) {
	row, err := s.constraints.GetByRecruitment(dbc, recruitmentID)
	if err != nil {
		return nil, fmt.Errorf("load constraints: %w", err)
	}
	if row == nil {
		return nil, apierr.Wrap(apierr.ErrValidation, "recruitment %s has no encoded constraints", recruitmentID)
	}
	return row, nil
}

// encode emits one tuple per student and teacher in the order recorded by the index manifest
// of the stored constraints.
func (s *preferenceEncoder) encode(dbc dbctx.Context, recruitmentID uuid.UUID, row *types.Constraints) (*problem.Preferences, *PreferenceReport, error) {
	c, manifest, err := decodeConstraints(row)
	if err != nil {
		return nil, nil, err
	}
	if manifest == nil {
		return nil, nil, apierr.Wrap(apierr.ErrValidation, "recruitment %s has no index manifest; re-encode constraints", recruitmentID)
	}
	studentIDs, teacherIDs := manifest.StudentIDs, manifest.TeacherIDs

	all := append(append([]uuid.UUID{}, studentIDs...), teacherIDs...)
	stored, err := s.preferences.GetForUsers(dbc, recruitmentID, all)
	if err != nil {
		return nil, nil, fmt.Errorf("load preferences: %w", err)
	}

	prefs := &problem.Preferences{
		Students: make([]problem.StudentPreference, 0, len(studentIDs)),
		Teachers: make([]problem.TeacherPreference, 0, len(teacherIDs)),
	}
	report := &PreferenceReport{
		Students:           len(studentIDs),
		Teachers:           len(teacherIDs),
		ConstraintStudents: len(c.StudentsSubjects),
		ConstraintTeachers: len(c.TeachersGroups),
	}
	for _, id := range studentIDs {
		p, ok := problem.ProjectStudent(stored[id])
		if !ok {
			report.DefaultedStudents = append(report.DefaultedStudents, id)
		}
		prefs.Students = append(prefs.Students, p)
	}
	for _, id := range teacherIDs {
		p, ok := problem.ProjectTeacher(stored[id])
		if !ok {
			report.DefaultedTeachers = append(report.DefaultedTeachers, id)
		}
		prefs.Teachers = append(prefs.Teachers, p)
	}
	if n := len(report.DefaultedStudents) + len(report.DefaultedTeachers); n > 0 {
		s.log.Warn("Missing preferences replaced with defaults",
			"recruitment_id", recruitmentID,
			"students", len(report.DefaultedStudents),
			"teachers", len(report.DefaultedTeachers),
		)
	}

	if err := s.checkDrift(dbc, recruitmentID, all, report); err != nil {
		return nil, nil, err
	}
	report.Consistent = report.Students == report.ConstraintStudents &&
		report.Teachers == report.ConstraintTeachers &&
		len(report.Unencoded) == 0 && len(report.Departed) == 0
	if !report.Consistent {
		s.log.Error("Preference vectors do not match encoded constraints",
			"recruitment_id", recruitmentID,
			"students", report.Students,
			"constraint_students", report.ConstraintStudents,
			"teachers", report.Teachers,
			"constraint_teachers", report.ConstraintTeachers,
			"unencoded", len(report.Unencoded),
			"departed", len(report.Departed),
		)
	}
	return prefs, report, nil
}

// checkDrift compares the encoded participants with the recruitment's current ones.
func (s *preferenceEncoder) checkDrift(dbc dbctx.Context, recruitmentID uuid.UUID, encoded []uuid.UUID, report *PreferenceReport) error {
	rows, err := s.participants.ListByRecruitment(dbc, recruitmentID)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}
	inEncoding := make(map[uuid.UUID]bool, len(encoded))
	for _, id := range encoded {
		inEncoding[id] = true
	}
	current := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		if row.Role != types.RoleParticipant && row.Role != types.RoleHost {
			continue
		}
		current[row.UserID] = true
		if !inEncoding[row.UserID] {
			report.Unencoded = append(report.Unencoded, row.UserID)
		}
	}
	for _, id := range encoded {
		if !current[id] {
			report.Departed = append(report.Departed, id)
		}
	}
	return nil
}
