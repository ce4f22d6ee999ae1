package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/evoplanner-backend/internal/data/repos/testutil"
	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/platform/apierr"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
)

type encoderFixture struct {
	org     *types.Organization
	rec     *types.Recruitment
	peer    *types.Recruitment
	host    *types.User
	student *types.User
	math    *types.Subject
	group   *types.SubjectGroup
	room    *types.Room
}

// seedEncoderFixture builds one recruitment with a single group, room, host, and student,
// plus a peer recruitment whose meeting occupies slots 5 and 6 for all three.
func seedEncoderFixture(t *testing.T, h *harness) *encoderFixture {
	t.Helper()
	db := h.db
	f := &encoderFixture{}
	f.org = testutil.SeedOrganization(t, db, "org")
	f.rec = testutil.SeedRecruitment(t, db, f.org.ID, nil)
	f.peer = testutil.SeedRecruitment(t, db, f.org.ID, func(r *types.Recruitment) {
		r.PlanStatus = types.PlanStatusActive
	})

	f.host = testutil.SeedUser(t, db, f.org.ID, types.RoleHost, &f.rec.ID)
	f.student = testutil.SeedUser(t, db, f.org.ID, types.RoleParticipant, &f.rec.ID)

	f.math = testutil.SeedSubject(t, db, f.rec.ID, "math", 4, 20, 2)
	projector := testutil.SeedTag(t, db, "projector")
	testutil.TagSubject(t, db, f.math.ID, projector.ID)
	f.group = testutil.SeedSubjectGroup(t, db, f.rec.ID, f.math.ID, f.host.ID)
	testutil.Register(t, db, f.student.ID, f.math.ID)

	f.room = testutil.SeedRoom(t, db, f.org.ID, "101", 30)
	testutil.TagRoom(t, db, f.room.ID, projector.ID)

	art := testutil.SeedSubject(t, db, f.peer.ID, "art", 2, 10, 1)
	peerGroup := testutil.SeedSubjectGroup(t, db, f.peer.ID, art.ID, f.host.ID)
	members := &types.Group{Name: "art / #1", Category: types.MeetingGroupCategory, OrganizationID: &f.org.ID}
	require.NoError(t, db.Create(members).Error)
	require.NoError(t, db.Create(&types.GroupMember{GroupID: members.ID, UserID: f.student.ID}).Error)
	require.NoError(t, db.Create(&types.Meeting{
		RecruitmentID:  f.peer.ID,
		SubjectGroupID: peerGroup.ID,
		GroupID:        members.ID,
		RoomID:         f.room.ID,
		StartTimeslot:  5,
	}).Error)
	return f
}

func TestConstraintEncoderEncode(t *testing.T) {
	h := newHarness(t)
	f := seedEncoderFixture(t, h)
	dbc := dbctx.Context{Ctx: context.Background()}

	res, err := h.encoder().Encode(dbc, f.rec.ID)
	require.NoError(t, err)
	c := res.Encoded.Constraints

	require.Equal(t, 20, c.TimeslotsDaily)
	require.Equal(t, 7, c.DaysInCycle)
	require.Equal(t, 1, c.NumSubjects)
	require.Equal(t, 1, c.NumGroups)
	require.Equal(t, 1, c.NumRooms)
	require.Equal(t, 1, c.NumStudents)
	require.Equal(t, 1, c.NumTeachers)
	require.Equal(t, []int{4}, c.SubjectsDuration)
	require.Equal(t, [][]int{{0}}, c.StudentsSubjects)
	require.Equal(t, [][]int{{0}}, c.TeachersGroups)

	require.Equal(t, [][]int{{5, 6}}, c.RoomsUnavailabilityTimeslots)
	require.Equal(t, [][]int{{5, 6}}, c.StudentsUnavailabilityTimeslots)
	require.Equal(t, [][]int{{5, 6}}, c.TeachersUnavailabilityTimeslots)

	m := res.Encoded.Manifest
	require.Equal(t, f.group.ID, m.SubjectGroupIDs[0])
	require.Equal(t, f.room.ID, m.RoomIDs[0])
	require.Equal(t, f.student.ID, m.StudentIDs[0])
	require.Equal(t, f.host.ID, m.TeacherIDs[0])

	row, err := h.encoder().Get(dbc, f.rec.ID)
	require.NoError(t, err)
	require.JSONEq(t, string(res.ConstraintsJSON), string(row.ConstraintsData))
	require.Equal(t, m.Version, row.OrderingVersion)
}

func TestConstraintEncoderIsIdempotent(t *testing.T) {
	h := newHarness(t)
	f := seedEncoderFixture(t, h)
	dbc := dbctx.Context{Ctx: context.Background()}
	enc := h.encoder()

	first, err := enc.Encode(dbc, f.rec.ID)
	require.NoError(t, err)
	second, err := enc.Encode(dbc, f.rec.ID)
	require.NoError(t, err)
	require.Equal(t, first.ConstraintsJSON, second.ConstraintsJSON)
	require.Equal(t, first.ManifestJSON, second.ManifestJSON)

	var rows int64
	require.NoError(t, h.db.Model(&types.Constraints{}).Where("recruitment_id = ?", f.rec.ID).Count(&rows).Error)
	require.EqualValues(t, 1, rows)
}

func TestConstraintEncoderEmptyRecruitment(t *testing.T) {
	h := newHarness(t)
	org := testutil.SeedOrganization(t, h.db, "empty")
	rec := testutil.SeedRecruitment(t, h.db, org.ID, nil)

	res, err := h.encoder().Encode(dbctx.Context{Ctx: context.Background()}, rec.ID)
	require.NoError(t, err)
	c := res.Encoded.Constraints
	require.Zero(t, c.NumSubjects)
	require.Zero(t, c.NumGroups)
	require.Zero(t, c.NumRooms)
	require.Zero(t, c.NumStudents)
	require.Zero(t, c.NumTeachers)
	require.Contains(t, string(res.ConstraintsJSON), `"StudentsSubjects":[]`)
}

func TestConstraintEncoderUnknownRecruitment(t *testing.T) {
	h := newHarness(t)
	_, err := h.encoder().Encode(dbctx.Context{Ctx: context.Background()}, testutil.SeedOrganization(t, h.db, "x").ID)
	require.ErrorIs(t, err, apierr.ErrNotFound)
}
