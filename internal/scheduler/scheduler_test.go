package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs int
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run() error {
	j.runs++
	return j.err
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))

	assert.NoError(t, s.AddJob("0 30 18 * * MON-FRI", &countingJob{}))
	assert.NoError(t, s.AddJob("@every 6h", &countingJob{}))
	assert.Error(t, s.AddJob("30 18 * * *", &countingJob{}), "five-field specs need a seconds field")
	assert.Error(t, s.AddJob("not a schedule", &countingJob{}))
	assert.Len(t, s.cron.Entries(), 2)
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))
	require.NoError(t, s.AddJob("@daily", &countingJob{}))

	s.Start()
	s.Stop()
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))

	job := &countingJob{}
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 1, job.runs)

	failing := &countingJob{err: errors.New("boom")}
	assert.EqualError(t, s.RunNow(failing), "boom")
}
