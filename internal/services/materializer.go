package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/evoplanner-backend/internal/data/repos"
	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/observability"
	"github.com/yungbote/evoplanner-backend/internal/optimizer/problem"
	"github.com/yungbote/evoplanner-backend/internal/platform/apierr"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

// MaterializeResult summarizes one schedule replacement.
type MaterializeResult struct {
	JobID         uuid.UUID   `json:"job_id"`
	RecruitmentID uuid.UUID   `json:"recruitment_id"`
	Meetings      int         `json:"meetings"`
	Skipped       []int       `json:"skipped_groups,omitempty"`
	MeetingIDs    []uuid.UUID `json:"meeting_ids,omitempty"`
}

// Materializer writes a completed job's solution back as meetings and participant groups.
type Materializer interface {
	MaterializeJob(dbc dbctx.Context, jobID uuid.UUID) (*MaterializeResult, error)
}

type materializer struct {
	db           *gorm.DB
	log          *logger.Logger
	recruitments repos.RecruitmentRepo
	jobs         repos.OptimizationJobRepo
	subjects     repos.SubjectRepo
	meetings     repos.MeetingRepo
	groups       repos.GroupRepo
	constraints  repos.ConstraintsRepo
	notify       JobNotifier
}

func NewMaterializer(
	db *gorm.DB,
	baseLog *logger.Logger,
	recruitments repos.RecruitmentRepo,
	jobs repos.OptimizationJobRepo,
	subjects repos.SubjectRepo,
	meetings repos.MeetingRepo,
	groups repos.GroupRepo,
	constraints repos.ConstraintsRepo,
	notify JobNotifier,
) Materializer {
	if notify == nil {
		notify = NewJobNotifier(nil)
	}
	return &materializer{
		db:           db,
		log:          baseLog.With("service", "Materializer"),
		recruitments: recruitments,
		jobs:         jobs,
		subjects:     subjects,
		meetings:     meetings,
		groups:       groups,
		constraints:  constraints,
		notify:       notify,
	}
}

// plan is everything resolved before the write transaction opens.
type plan struct {
	job         *types.OptimizationJob
	rec         *types.Recruitment
	manifest    *problem.IndexManifest
	placements  []problem.Placement
	skipped     []int
	groupByID   map[uuid.UUID]*types.SubjectGroup
	subjectName map[uuid.UUID]string
}

func (m *materializer) MaterializeJob(dbc dbctx.Context, jobID uuid.UUID) (res *MaterializeResult, err error) {
	ctx, span := observability.StartSpan(dbc.Context(), "optimizer.materialize", observability.JobAttr(jobID))
	defer func() { observability.EndSpan(span, err) }()
	dbc.Ctx = ctx
	started := time.Now()
	defer func() {
		status := types.MaterializationSucceeded
		if err != nil {
			status = types.MaterializationFailed
		}
		observability.Current().ObserveMaterialization(status, time.Since(started))
	}()

	p, err := m.resolve(dbc, jobID)
	if err != nil {
		if p != nil && p.job != nil {
			m.recordFailure(dbc, p.job, err)
		}
		return nil, err
	}

	res = &MaterializeResult{JobID: jobID, RecruitmentID: p.rec.ID, Skipped: p.skipped}
	now := time.Now().UTC()
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}

		staleGroups, err := m.meetings.DeleteByRecruitment(inner, p.rec.ID)
		if err != nil {
			return fmt.Errorf("delete meetings: %w", err)
		}
		if err := m.groups.DeleteByIDs(inner, staleGroups, types.MeetingGroupCategory); err != nil {
			return fmt.Errorf("delete meeting groups: %w", err)
		}

		meetings := make([]*types.Meeting, 0, len(p.placements))
		for _, pl := range p.placements {
			sgID := p.manifest.SubjectGroupIDs[pl.GroupIndex]
			sg := p.groupByID[sgID]
			group := &types.Group{
				Name:           meetingGroupName(p.rec, p.subjectName[sg.SubjectID], pl.GroupIndex),
				Category:       types.MeetingGroupCategory,
				OrganizationID: &p.rec.OrganizationID,
			}
			if err := m.groups.Create(inner, group); err != nil {
				return fmt.Errorf("create meeting group: %w", err)
			}
			members := make([]uuid.UUID, 0, len(pl.Students))
			for _, si := range pl.Students {
				members = append(members, p.manifest.StudentIDs[si])
			}
			if err := m.groups.AddMembers(inner, group.ID, members); err != nil {
				return fmt.Errorf("add meeting members: %w", err)
			}
			jid := jobID
			meetings = append(meetings, &types.Meeting{
				RecruitmentID:     p.rec.ID,
				SubjectGroupID:    sgID,
				GroupID:           group.ID,
				RoomID:            p.manifest.RoomIDs[pl.RoomIndex],
				OptimizationJobID: &jid,
				StartTimeslot:     pl.Timeslot,
				DayOfWeek:         pl.DayOfWeek,
				DayOfCycle:        pl.DayOfCycle,
			})
		}
		if err := m.meetings.Create(inner, meetings); err != nil {
			return fmt.Errorf("create meetings: %w", err)
		}
		for _, mt := range meetings {
			res.MeetingIDs = append(res.MeetingIDs, mt.ID)
		}

		if _, err := m.recruitments.TransitionStatus(inner, p.rec.ID,
			[]string{types.PlanStatusDraft, types.PlanStatusOptimizing, types.PlanStatusActive},
			types.PlanStatusActive); err != nil {
			return fmt.Errorf("activate recruitment: %w", err)
		}
		return m.jobs.UpdateFields(inner, jobID, map[string]interface{}{
			"materialization_status": types.MaterializationSucceeded,
			"materialization_error":  "",
			"materialized_at":        now,
		})
	})
	if err != nil {
		err = apierr.Wrap(apierr.ErrMaterialization, "job %s: %v", jobID, err)
		m.recordFailure(dbc, p.job, err)
		return nil, err
	}

	res.Meetings = len(res.MeetingIDs)
	m.log.Info("Materialized schedule",
		"job_id", jobID,
		"recruitment_id", p.rec.ID,
		"meetings", res.Meetings,
		"skipped", len(p.skipped),
	)
	p.job.MaterializationStatus = types.MaterializationSucceeded
	p.job.MaterializedAt = &now
	p.rec.PlanStatus = types.PlanStatusActive
	m.notify.JobStatusChanged(ctx, p.job)
	m.notify.PlanStatusChanged(ctx, p.rec)
	return res, nil
}

// resolve loads and validates everything needed for the write. Any error here means nothing
// has been written.
func (m *materializer) resolve(dbc dbctx.Context, jobID uuid.UUID) (*plan, error) {
	job, err := m.jobs.GetByID(dbc, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, apierr.Wrap(apierr.ErrNotFound, "job %s", jobID)
	}
	p := &plan{job: job}
	if job.Status != types.JobStatusCompleted {
		return nil, apierr.Wrap(apierr.ErrConflict, "job %s is %s, not completed", jobID, job.Status)
	}

	rec, err := m.recruitments.GetByID(dbc, job.RecruitmentID)
	if err != nil {
		return p, fmt.Errorf("load recruitment: %w", err)
	}
	if rec == nil {
		return p, apierr.Wrap(apierr.ErrMaterialization, "recruitment %s no longer exists", job.RecruitmentID)
	}
	if rec.PlanStatus == types.PlanStatusArchived {
		return p, apierr.Wrap(apierr.ErrMaterialization, "recruitment %s is archived", rec.ID)
	}
	p.rec = rec

	sol, err := problem.ParseSolution(job.FinalSolution)
	if err != nil {
		return p, apierr.Wrap(apierr.ErrMaterialization, "final solution: %v", err)
	}

	manifest, cons, err := m.decoding(dbc, job)
	if err != nil {
		return p, err
	}
	if err := sol.CheckShape(manifest); err != nil {
		return p, apierr.Wrap(apierr.ErrMaterialization, "%v", err)
	}
	p.manifest = manifest

	sgs, err := m.subjects.GetGroupsByIDs(dbc, manifest.SubjectGroupIDs)
	if err != nil {
		return p, fmt.Errorf("load subject groups: %w", err)
	}
	p.groupByID = make(map[uuid.UUID]*types.SubjectGroup, len(sgs))
	subjectOf := make(map[uuid.UUID]uuid.UUID, len(sgs))
	subjectIDs := make([]uuid.UUID, 0, len(sgs))
	for _, sg := range sgs {
		p.groupByID[sg.ID] = sg
		subjectOf[sg.ID] = sg.SubjectID
		subjectIDs = append(subjectIDs, sg.SubjectID)
	}

	placed, skipped := sol.Placements(len(manifest.RoomIDs), cons.Grid(manifest, subjectOf))
	for _, i := range skipped {
		m.log.Warn("Skipping group with invalid placement", "job_id", jobID, "group_index", i)
	}
	for _, pl := range placed {
		if _, ok := p.groupByID[manifest.SubjectGroupIDs[pl.GroupIndex]]; !ok {
			m.log.Warn("Skipping group deleted since encoding", "job_id", jobID, "group_index", pl.GroupIndex)
			skipped = append(skipped, pl.GroupIndex)
			continue
		}
		p.placements = append(p.placements, pl)
	}
	p.skipped = skipped

	subs, err := m.subjects.GetByIDs(dbc, subjectIDs)
	if err != nil {
		return p, fmt.Errorf("load subjects: %w", err)
	}
	p.subjectName = make(map[uuid.UUID]string, len(subs))
	for _, s := range subs {
		p.subjectName[s.ID] = s.Name
	}
	return p, nil
}

// decoding picks the manifest and constraints the job was encoded with, falling back to the
// recruitment's current Constraints for jobs created without them.
func (m *materializer) decoding(dbc dbctx.Context, job *types.OptimizationJob) (*problem.IndexManifest, *problem.Constraints, error) {
	manifest, err := problem.ParseManifest(job.IndexManifest)
	if err != nil {
		return nil, nil, apierr.Wrap(apierr.ErrMaterialization, "job manifest: %v", err)
	}
	var cons *problem.Constraints
	if len(job.ProblemData) > 0 {
		var pd problem.ProblemData
		if err := json.Unmarshal(job.ProblemData, &pd); err == nil && len(pd.Constraints) > 0 {
			if c, err := problem.ParseConstraints(pd.Constraints); err == nil && c.TimeslotsDaily > 0 {
				cons = c
			}
		}
	}
	if manifest != nil && cons != nil {
		return manifest, cons, nil
	}

	row, err := m.constraints.GetByRecruitment(dbc, job.RecruitmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("load constraints: %w", err)
	}
	stored, storedManifest, err := decodeConstraints(row)
	if err != nil {
		return nil, nil, apierr.Wrap(apierr.ErrMaterialization, "%v", err)
	}
	if manifest == nil {
		manifest = storedManifest
	}
	if cons == nil {
		cons = stored
	}
	if manifest == nil {
		return nil, nil, apierr.Wrap(apierr.ErrMaterialization, "no index manifest for job %s", job.ID)
	}
	return manifest, cons, nil
}

func (m *materializer) recordFailure(dbc dbctx.Context, job *types.OptimizationJob, cause error) {
	if !errors.Is(cause, apierr.ErrMaterialization) && !errors.Is(cause, apierr.ErrNotFound) {
		m.log.Error("Materialization failed", "job_id", job.ID, "error", cause)
	} else {
		m.log.Warn("Materialization rejected", "job_id", job.ID, "error", cause)
	}
	if job.Status != types.JobStatusCompleted {
		return
	}
	if err := m.jobs.UpdateFields(dbctx.Context{Ctx: dbc.Context()}, job.ID, map[string]interface{}{
		"materialization_status": types.MaterializationFailed,
		"materialization_error":  cause.Error(),
	}); err != nil {
		m.log.Warn("Failed to record materialization failure", "job_id", job.ID, "error", err)
		return
	}
	job.MaterializationStatus = types.MaterializationFailed
	job.MaterializationError = cause.Error()
	m.notify.JobStatusChanged(dbc.Context(), job)
}

// meetingGroupName is deterministic per recruitment, subject, and group index.
func meetingGroupName(rec *types.Recruitment, subjectName string, groupIndex int) string {
	return fmt.Sprintf("%s / %s / #%d", rec.Name, subjectName, groupIndex+1)
}
