package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/evoplanner-backend/internal/data/repos"
	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/observability"
	"github.com/yungbote/evoplanner-backend/internal/optimizer/problem"
	"github.com/yungbote/evoplanner-backend/internal/platform/apierr"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

// EncodeResult is one persisted encoding pass.
type EncodeResult struct {
	RecruitmentID   uuid.UUID
	Encoded         *problem.Encoded
	ConstraintsJSON []byte
	ManifestJSON    []byte
}

// ConstraintEncoder turns a recruitment's relational data into the solver's constraint arrays
// and stores them as the recruitment's single Constraints record.
type ConstraintEncoder interface {
	Encode(dbc dbctx.Context, recruitmentID uuid.UUID) (*EncodeResult, error)
	// Build encodes without persisting.
	Build(dbc dbctx.Context, recruitmentID uuid.UUID) (*EncodeResult, error)
	Get(dbc dbctx.Context, recruitmentID uuid.UUID) (*types.Constraints, error)
}

type constraintEncoder struct {
	log          *logger.Logger
	recruitments repos.RecruitmentRepo
	participants repos.ParticipantRepo
	subjects     repos.SubjectRepo
	rooms        repos.RoomRepo
	meetings     repos.MeetingRepo
	groups       repos.GroupRepo
	constraints  repos.ConstraintsRepo
	padding      problem.Padding
}

func NewConstraintEncoder(
	baseLog *logger.Logger,
	recruitments repos.RecruitmentRepo,
	participants repos.ParticipantRepo,
	subjects repos.SubjectRepo,
	rooms repos.RoomRepo,
	meetings repos.MeetingRepo,
	groups repos.GroupRepo,
	constraints repos.ConstraintsRepo,
	padding problem.Padding,
) ConstraintEncoder {
	return &constraintEncoder{
		log:          baseLog.With("service", "ConstraintEncoder"),
		recruitments: recruitments,
		participants: participants,
		subjects:     subjects,
		rooms:        rooms,
		meetings:     meetings,
		groups:       groups,
		constraints:  constraints,
		padding:      padding,
	}
}

func (s *constraintEncoder) Encode(dbc dbctx.Context, recruitmentID uuid.UUID) (res *EncodeResult, err error) {
	ctx, span := observability.StartSpan(dbc.Context(), "optimizer.encode_constraints", observability.RecruitmentAttr(recruitmentID))
	defer func() { observability.EndSpan(span, err) }()
	dbc.Ctx = ctx

	res, err = s.Build(dbc, recruitmentID)
	if err != nil {
		return nil, err
	}
	row := &types.Constraints{
		RecruitmentID:   recruitmentID,
		ConstraintsData: datatypes.JSON(res.ConstraintsJSON),
		IndexManifest:   datatypes.JSON(res.ManifestJSON),
		OrderingVersion: res.Encoded.Manifest.Version,
	}
	if err = s.constraints.Upsert(dbc, row); err != nil {
		return nil, fmt.Errorf("persist constraints: %w", err)
	}
	c := res.Encoded.Constraints
	s.log.Info("Encoded constraints",
		"recruitment_id", recruitmentID,
		"ordering_version", res.Encoded.Manifest.Version,
		"subjects", c.NumSubjects,
		"groups", c.NumGroups,
		"rooms", c.NumRooms,
		"students", c.NumStudents,
		"teachers", c.NumTeachers,
		"tags", c.NumTags,
	)
	return res, nil
}

func (s *constraintEncoder) Get(dbc dbctx.Context, recruitmentID uuid.UUID) (*types.Constraints, error) {
	row, err := s.constraints.GetByRecruitment(dbc, recruitmentID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apierr.Wrap(apierr.ErrNotFound, "no constraints for recruitment %s", recruitmentID)
	}
	return row, nil
}

func (s *constraintEncoder) Build(dbc dbctx.Context, recruitmentID uuid.UUID) (*EncodeResult, error) {
	rec, err := s.recruitments.GetByID(dbc, recruitmentID)
	if err != nil {
		return nil, fmt.Errorf("load recruitment: %w", err)
	}
	if rec == nil {
		return nil, apierr.Wrap(apierr.ErrNotFound, "recruitment %s", recruitmentID)
	}
	timing, err := problem.NewTiming(rec.DayStartMinute, rec.DayEndMinute, rec.CycleType)
	if err != nil {
		return nil, apierr.Wrap(apierr.ErrValidation, "recruitment %s: %v", recruitmentID, err)
	}

	in := problem.Input{Timing: timing, Padding: s.padding}

	subjects, err := s.subjects.ListByRecruitment(dbc, recruitmentID)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	subjectIDs := make([]uuid.UUID, 0, len(subjects))
	for _, sub := range subjects {
		subjectIDs = append(subjectIDs, sub.ID)
	}
	subjectTags, err := s.subjects.TagNamesBySubject(dbc, subjectIDs)
	if err != nil {
		return nil, fmt.Errorf("subject tags: %w", err)
	}
	for _, sub := range subjects {
		in.Subjects = append(in.Subjects, problem.Subject{
			ID:             sub.ID,
			DurationBlocks: sub.DurationBlocks,
			Capacity:       sub.Capacity,
			MinStudents:    sub.MinStudents,
			Tags:           subjectTags[sub.ID],
		})
	}

	groups, err := s.subjects.ListGroupsByRecruitment(dbc, recruitmentID)
	if err != nil {
		return nil, fmt.Errorf("list subject groups: %w", err)
	}
	for _, g := range groups {
		in.Groups = append(in.Groups, problem.SubjectGroup{ID: g.ID, SubjectID: g.SubjectID, HostID: g.HostUserID})
	}

	rooms, err := s.rooms.ListByOrganization(dbc, rec.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	roomIDs := make([]uuid.UUID, 0, len(rooms))
	for _, r := range rooms {
		roomIDs = append(roomIDs, r.ID)
	}
	roomTags, err := s.rooms.TagNamesByRoom(dbc, roomIDs)
	if err != nil {
		return nil, fmt.Errorf("room tags: %w", err)
	}
	for _, r := range rooms {
		in.Rooms = append(in.Rooms, problem.Room{ID: r.ID, Capacity: r.Capacity, Tags: roomTags[r.ID]})
	}

	students, teachers, err := s.participantLists(dbc, recruitmentID)
	if err != nil {
		return nil, err
	}
	in.Students, in.Teachers = students, teachers

	if in.Busy, err = s.busyMeetings(dbc, rec); err != nil {
		return nil, err
	}

	encoded, err := problem.Build(in)
	if err != nil {
		return nil, apierr.Wrap(apierr.ErrValidation, "encode recruitment %s: %v", recruitmentID, err)
	}
	cons, manifest, err := encoded.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal constraints: %w", err)
	}
	return &EncodeResult{
		RecruitmentID:   recruitmentID,
		Encoded:         encoded,
		ConstraintsJSON: cons,
		ManifestJSON:    manifest,
	}, nil
}

// participantLists splits the recruitment's participants into students and teachers, in
// sort-key order, attaching each student's registered subjects.
func (s *constraintEncoder) participantLists(dbc dbctx.Context, recruitmentID uuid.UUID) ([]problem.Participant, []problem.Participant, error) {
	rows, err := s.participants.ListByRecruitment(dbc, recruitmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("list participants: %w", err)
	}
	var students, teachers []problem.Participant
	var studentIDs []uuid.UUID
	for _, row := range rows {
		p := problem.Participant{UserID: row.UserID, Weight: row.Weight}
		switch row.Role {
		case types.RoleParticipant:
			students = append(students, p)
			studentIDs = append(studentIDs, row.UserID)
		case types.RoleHost:
			teachers = append(teachers, p)
		}
	}
	regs, err := s.participants.ListRegistrations(dbc, studentIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("list registrations: %w", err)
	}
	byUser := map[uuid.UUID][]uuid.UUID{}
	for _, r := range regs {
		byUser[r.UserID] = append(byUser[r.UserID], r.SubjectID)
	}
	for i := range students {
		students[i].SubjectIDs = byUser[students[i].UserID]
	}
	return students, teachers, nil
}

// busyMeetings collects meetings of every recruitment in the organization whose active
// window overlaps rec's, including rec itself.
func (s *constraintEncoder) busyMeetings(dbc dbctx.Context, rec *types.Recruitment) ([]problem.BusyMeeting, error) {
	peers, err := s.recruitments.ListByOrganization(dbc, rec.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("list organization recruitments: %w", err)
	}
	timings := map[uuid.UUID]problem.Timing{}
	var ids []uuid.UUID
	for _, peer := range peers {
		if !types.WindowsOverlap(rec, peer) {
			continue
		}
		t, err := problem.NewTiming(peer.DayStartMinute, peer.DayEndMinute, peer.CycleType)
		if err != nil {
			s.log.Warn("Skipping meetings of recruitment with invalid timing", "recruitment_id", peer.ID, "error", err)
			continue
		}
		timings[peer.ID] = t
		ids = append(ids, peer.ID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.meetings.ListBusyByRecruitments(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("list busy meetings: %w", err)
	}
	groupIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		groupIDs = append(groupIDs, row.GroupID)
	}
	members, err := s.groups.MemberIDsByGroup(dbc, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("list meeting members: %w", err)
	}

	busy := make([]problem.BusyMeeting, 0, len(rows))
	for _, row := range rows {
		busy = append(busy, problem.BusyMeeting{
			RoomID:         row.RoomID,
			HostID:         row.HostUserID,
			MemberIDs:      members[row.GroupID],
			StartTimeslot:  row.StartTimeslot,
			DurationBlocks: row.DurationBlocks,
			Source:         timings[row.RecruitmentID],
		})
	}
	return busy, nil
}

// decodeConstraints reads the stored blob back; used by the preference encoder and the
// materializer.
func decodeConstraints(row *types.Constraints) (*problem.Constraints, *problem.IndexManifest, error) {
	if row == nil || len(row.ConstraintsData) == 0 {
		return nil, nil, apierr.Wrap(apierr.ErrValidation, "constraints missing")
	}
	c, err := problem.ParseConstraints(row.ConstraintsData)
	if err != nil {
		return nil, nil, apierr.Wrap(apierr.ErrValidation, "constraints malformed: %v", err)
	}
	m, err := problem.ParseManifest(row.IndexManifest)
	if err != nil {
		return nil, nil, apierr.Wrap(apierr.ErrValidation, "index manifest malformed: %v", err)
	}
	return c, m, nil
}
