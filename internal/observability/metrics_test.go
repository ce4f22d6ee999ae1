package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/evoplanner-backend/internal/data/repos/testutil"
	types "github.com/yungbote/evoplanner-backend/internal/domain"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.IncDispatch("queued")
	m.IncNotification("recorded")
	m.ObserveMaterialization("succeeded", time.Second)
	m.AddSweep(1, 1)
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("WritePrometheus(nil): %v", err)
	}
}

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()
	m.IncDispatch("queued")
	m.IncDispatch("queued")
	m.IncDispatch("publish_failed")
	m.ObserveMaterialization("failed", 300*time.Millisecond)
	m.ObserveAPI("GET", "/api/jobs/:id", "200", 20*time.Millisecond)

	if got := m.dispatches.Value("queued"); got != 2 {
		t.Fatalf("dispatches queued: want=2 got=%v", got)
	}
	if got := m.materializations.Count("failed"); got != 1 {
		t.Fatalf("materializations failed: want=1 got=%d", got)
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`# TYPE evo_job_dispatches_total counter`,
		`evo_job_dispatches_total{result="publish_failed"} 1`,
		`evo_job_dispatches_total{result="queued"} 2`,
		`evo_materialization_duration_seconds_bucket{status="failed",le="0.25"} 0`,
		`evo_materialization_duration_seconds_bucket{status="failed",le="0.5"} 1`,
		`evo_materialization_duration_seconds_count{status="failed"} 1`,
		`evo_api_requests_total{method="GET",route="/api/jobs/:id",status="200"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q\n%s", want, out)
		}
	}
	if strings.Index(out, `result="publish_failed"`) > strings.Index(out, `result="queued"`) {
		t.Fatalf("series not sorted by label set")
	}
}

func TestCollectJobStatuses(t *testing.T) {
	db := testutil.DB(t)
	org := testutil.SeedOrganization(t, db, "org")
	rec := testutil.SeedRecruitment(t, db, org.ID, nil)
	testutil.SeedJob(t, db, rec.ID, types.JobStatusQueued)
	testutil.SeedJob(t, db, rec.ID, types.JobStatusQueued)
	testutil.SeedJob(t, db, rec.ID, types.JobStatusCompleted)

	m := NewMetrics()
	if err := m.CollectJobStatuses(context.Background(), db); err != nil {
		t.Fatalf("CollectJobStatuses: %v", err)
	}
	if got := m.jobsByStatus.Value(types.JobStatusQueued); got != 2 {
		t.Fatalf("queued: want=2 got=%v", got)
	}
	if got := m.jobsByStatus.Value(types.JobStatusRunning); got != 0 {
		t.Fatalf("running: want=0 got=%v", got)
	}
}

func TestEscapeLabel(t *testing.T) {
	if got := labelString([]string{"k"}, []string{"a\"b\\c\nd"}); got != `{k="a\"b\\c\nd"}` {
		t.Fatalf("labelString: got=%s", got)
	}
	if got := labelString([]string{"k", "v"}, []string{"x"}); got != `{k="x",v="unknown"}` {
		t.Fatalf("labelString missing value: got=%s", got)
	}
}
