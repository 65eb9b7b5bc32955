package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs int
	err  error
}

func (j *countingJob) Run() error   { j.runs++; return j.err }
func (j *countingJob) Name() string { return j.name }

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a schedule", &countingJob{name: "bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestRunByName(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "daily_accrual"}
	require.NoError(t, s.AddJob("0 5 0 * * *", job))

	require.NoError(t, s.RunByName("daily_accrual"))
	assert.Equal(t, 1, job.runs)

	err := s.RunByName("no_such_job")
	require.Error(t, err)
}

func TestRunNowPropagatesJobError(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "failing", err: errors.New("boom")}
	assert.Error(t, s.RunNow(job))
}

func TestJobNamesSorted(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("0 30 0 * * *", &countingJob{name: "quarter_rollover"}))
	require.NoError(t, s.AddJob("0 5 0 * * *", &countingJob{name: "daily_accrual"}))

	assert.Equal(t, []string{"daily_accrual", "quarter_rollover"}, s.JobNames())
}
