package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/evoplanner-backend/internal/data/repos"
	"github.com/yungbote/evoplanner-backend/internal/data/repos/testutil"
	"github.com/yungbote/evoplanner-backend/internal/optimizer/problem"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

var errBrokerDown = errors.New("broker unavailable")

type fakeQueue struct {
	mu     sync.Mutex
	pushed [][]byte
	err    error
}

func (q *fakeQueue) PushJob(_ context.Context, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.pushed = append(q.pushed, append([]byte(nil), payload...))
	return nil
}

func (q *fakeQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pushed)
}

type fakeProgressStore struct {
	mu       sync.Mutex
	payloads map[uuid.UUID][]byte
	err      error
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{payloads: map[uuid.UUID][]byte{}}
}

func (s *fakeProgressStore) put(jobID uuid.UUID, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[jobID] = []byte(raw)
}

func (s *fakeProgressStore) GetProgress(_ context.Context, jobID uuid.UUID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.payloads[jobID], nil
}

type fakeCancels struct {
	mu    sync.Mutex
	flags map[uuid.UUID]time.Duration
	err   error
}

func newFakeCancels() *fakeCancels {
	return &fakeCancels{flags: map[uuid.UUID]time.Duration{}}
}

func (c *fakeCancels) SetCancelFlag(_ context.Context, jobID uuid.UUID, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.flags[jobID] = ttl
	return nil
}

func (c *fakeCancels) flagged(jobID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.flags[jobID]
	return ok
}

type fakeMaterializer struct {
	mu    sync.Mutex
	calls []uuid.UUID
	err   error
}

func (m *fakeMaterializer) MaterializeJob(_ dbctx.Context, jobID uuid.UUID) (*MaterializeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, jobID)
	if m.err != nil {
		return nil, m.err
	}
	return &MaterializeResult{JobID: jobID}, nil
}

// fakeSubscription replays queued messages and then reports timeouts.
type fakeSubscription struct {
	msgs   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{msgs: make(chan []byte, 16), closed: make(chan struct{})}
}

func (s *fakeSubscription) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	select {
	case raw := <-s.msgs:
		return raw, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, nil
	}
}

func (s *fakeSubscription) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

type fakeSubscriber struct{ sub *fakeSubscription }

func (f fakeSubscriber) SubscribeProgress(context.Context) (ProgressSubscription, error) {
	return f.sub, nil
}

// harness wires real repos over a private sqlite database.
type harness struct {
	db  *gorm.DB
	log *logger.Logger

	recruitments repos.RecruitmentRepo
	participants repos.ParticipantRepo
	subjects     repos.SubjectRepo
	rooms        repos.RoomRepo
	meetings     repos.MeetingRepo
	groups       repos.GroupRepo
	preferences  repos.PreferencesRepo
	constraints  repos.ConstraintsRepo
	jobs         repos.OptimizationJobRepo
	progress     repos.OptimizationProgressRepo

	queue   *fakeQueue
	store   *fakeProgressStore
	cancels *fakeCancels
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return &harness{
		db:           db,
		log:          log,
		recruitments: repos.NewRecruitmentRepo(db, log),
		participants: repos.NewParticipantRepo(db, log),
		subjects:     repos.NewSubjectRepo(db, log),
		rooms:        repos.NewRoomRepo(db, log),
		meetings:     repos.NewMeetingRepo(db, log),
		groups:       repos.NewGroupRepo(db, log),
		preferences:  repos.NewPreferencesRepo(db, log),
		constraints:  repos.NewConstraintsRepo(db, log),
		jobs:         repos.NewOptimizationJobRepo(db, log),
		progress:     repos.NewOptimizationProgressRepo(db, log),
		queue:        &fakeQueue{},
		store:        newFakeProgressStore(),
		cancels:      newFakeCancels(),
	}
}

func (h *harness) encoder() ConstraintEncoder {
	return NewConstraintEncoder(h.log, h.recruitments, h.participants, h.subjects, h.rooms,
		h.meetings, h.groups, h.constraints, problem.Padding{})
}

func (h *harness) prefEncoder() PreferenceEncoder {
	return NewPreferenceEncoder(h.log, h.participants, h.preferences, h.constraints)
}

func (h *harness) optimizer() OptimizerService {
	return NewOptimizerService(h.db, h.log, h.recruitments, h.jobs, h.progress, h.prefEncoder(),
		h.queue, h.cancels, nil, OptimizerServiceConfig{})
}

func (h *harness) materializer() Materializer {
	return NewMaterializer(h.db, h.log, h.recruitments, h.jobs, h.subjects, h.meetings, h.groups,
		h.constraints, nil)
}
