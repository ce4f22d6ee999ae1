// Command encode_constraints re-encodes one recruitment's constraints and optionally
// dispatches a solver job for it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/yungbote/evoplanner-backend/internal/app"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
)

func main() {
	var (
		recruitment = flag.String("recruitment", "", "recruitment id to encode")
		dispatch    = flag.Bool("dispatch", false, "dispatch a solver job after encoding")
		maxExec     = flag.Int("max-execution-time", 0, "solver time budget in seconds (0 = default)")
		preview     = flag.Bool("preview", false, "print the full problem data instead of a summary")
	)
	flag.Parse()

	recID, err := uuid.Parse(*recruitment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -recruitment: %v\n", err)
		os.Exit(2)
	}

	if err := run(context.Background(), recID, *dispatch, *maxExec, *preview); err != nil {
		fmt.Fprintf(os.Stderr, "encode_constraints: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, recID uuid.UUID, dispatch bool, maxExec int, preview bool) error {
	a, err := app.New(ctx)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()
	log := a.Log.With("cmd", "encode_constraints", "recruitment_id", recID)
	dbc := dbctx.Context{Ctx: ctx}

	res, err := a.Services.ConstraintEncoder.Encode(dbc, recID)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	c := res.Encoded.Constraints
	log.Info("Constraints encoded",
		"ordering_version", res.Encoded.Manifest.Version,
		"subjects", c.NumSubjects,
		"groups", c.NumGroups,
		"rooms", c.NumRooms,
		"students", c.NumStudents,
		"teachers", c.NumTeachers,
	)

	if preview {
		prepared, err := a.Services.PreferenceEncoder.Prepare(dbc, recID)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(prepared.ProblemData); err != nil {
			return fmt.Errorf("write problem data: %w", err)
		}
		log.Info("Preference report", "report", prepared.Report)
	}

	if dispatch {
		// SubmitJob claims a draft recruitment, so the trigger loop will not start a second round.
		job, err := a.Services.Optimizer.SubmitJob(dbc, recID, maxExec)
		if err != nil {
			return fmt.Errorf("dispatch: %w", err)
		}
		log.Info("Job dispatched", "job_id", job.ID, "max_execution_time", job.MaxExecutionTime)
	}
	return nil
}
