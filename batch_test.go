package gridder

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusLog struct {
	mu      sync.Mutex
	history map[int][]Status
	runs    map[string]bool
}

func newStatusLog() *statusLog {
	return &statusLog{history: map[int][]Status{}, runs: map[string]bool{}}
}

func (l *statusLog) JobChanged(runID string, job *Job) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs[runID] = true
	l.history[job.ID] = append(l.history[job.ID], job.Status)
}

func newTestBatch(out string) (*Batch, *statusLog, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	obs := newStatusLog()
	b := NewBatch(out)
	b.Namer = testNamer(out)
	b.Logger = logger
	b.Observers = []Observer{obs}
	return b, obs, hook
}

func TestBatchRun(t *testing.T) {
	a := assert.New(t)

	in := t.TempDir()
	out := t.TempDir()
	bad := testConfig(Linear, 1)
	bad.Columns.X = "easting"
	jobs := []*Job{
		{Input: writeSamplesCSV(t, filepath.Join(in, "one.csv"), latticeSamples(4, plane)), Config: testConfig(Linear, 1)},
		{Input: writeSamplesCSV(t, filepath.Join(in, "two.csv"), latticeSamples(4, plane)), Config: bad},
		{Input: writeSamplesCSV(t, filepath.Join(in, "three.csv"), latticeSamples(4, bowl)), Config: testConfig(ThinPlate, 0.5)},
	}

	b, obs, hook := newTestBatch(out)
	require.NoError(t, b.Run(context.Background(), jobs))

	a.Equal([]Status{StatusLoaded, StatusProcessing, StatusCompleted}, obs.history[0])
	a.Equal([]Status{StatusLoaded, StatusProcessing, StatusError}, obs.history[1])
	a.Equal([]Status{StatusLoaded, StatusProcessing, StatusCompleted}, obs.history[2])
	a.Equal(map[string]bool{b.RunID: true}, obs.runs)

	a.ErrorIs(jobs[1].Err, ErrColumnNotFound)
	a.Nil(jobs[1].Result)
	a.Equal([]*Job{jobs[1]}, Failed(jobs))
	for _, i := range []int{0, 2} {
		require.NotNil(t, jobs[i].Result)
		a.Equal(out, filepath.Dir(jobs[i].Result.Output))
		a.FileExists(jobs[i].Result.Output)
	}

	var errs int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			errs++
			a.Equal(1, e.Data["job"])
		}
	}
	a.Equal(1, errs)
}

func TestBatchSameSecondNames(t *testing.T) {
	a := assert.New(t)

	out := t.TempDir()
	jobs := []*Job{
		{Input: writeSamplesCSV(t, filepath.Join(t.TempDir(), "survey.csv"), latticeSamples(3, plane)), Config: testConfig(Nearest, 1)},
		{Input: writeSamplesCSV(t, filepath.Join(t.TempDir(), "survey.csv"), latticeSamples(3, bowl)), Config: testConfig(Nearest, 1)},
	}
	b, _, _ := newTestBatch(out)
	require.NoError(t, b.Run(context.Background(), jobs))
	require.Empty(t, Failed(jobs))

	a.Equal(filepath.Join(out, "survey-grid-output-20240301-093000.xyz"), jobs[0].Result.Output)
	a.Equal(filepath.Join(out, "survey-grid-output-20240301-093000-2.xyz"), jobs[1].Result.Output)

	_, first := readGrid(t, jobs[0].Result.Output)
	a.InDelta(plane(1, 1), first.Value(1, 1), 1e-12)
	_, second := readGrid(t, jobs[1].Result.Output)
	a.InDelta(bowl(1, 1), second.Value(1, 1), 1e-12)
}

func TestBatchBadOutputDir(t *testing.T) {
	a := assert.New(t)

	in := t.TempDir()
	jobs := []*Job{
		{Input: writeSamplesCSV(t, filepath.Join(in, "a.csv"), latticeSamples(3, plane)), Config: testConfig(Linear, 1)},
		{Input: writeSamplesCSV(t, filepath.Join(in, "b.csv"), latticeSamples(3, plane)), Config: testConfig(Linear, 1)},
	}
	b, obs, _ := newTestBatch(filepath.Join(in, "missing"))
	err := b.Run(context.Background(), jobs)
	a.ErrorIs(err, ErrOutputDir)

	for _, job := range jobs {
		a.Equal(StatusError, job.Status)
		a.ErrorIs(job.Err, ErrOutputDir)
		a.Equal([]Status{StatusLoaded, StatusError}, obs.history[job.ID])
	}
}

func TestBatchCancelled(t *testing.T) {
	a := assert.New(t)

	in := t.TempDir()
	jobs := []*Job{
		{Input: writeSamplesCSV(t, filepath.Join(in, "a.csv"), latticeSamples(3, plane)), Config: testConfig(Linear, 1)},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b, obs, _ := newTestBatch(t.TempDir())
	err := b.Run(ctx, jobs)
	a.ErrorIs(err, context.Canceled)
	a.Equal(StatusLoaded, jobs[0].Status)
	a.Equal([]Status{StatusLoaded}, obs.history[0])
}

func TestBatchWorkers(t *testing.T) {
	a := assert.New(t)

	in := t.TempDir()
	out := t.TempDir()
	var jobs []*Job
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		jobs = append(jobs, &Job{
			Input:  writeSamplesCSV(t, filepath.Join(in, name+".csv"), randomSamples(int64(len(jobs)), 30, 10, bowl)),
			Config: testConfig(Kriging, 1),
		})
	}
	b, obs, _ := newTestBatch(out)
	b.Workers = 4
	require.NoError(t, b.Run(context.Background(), jobs))

	seen := map[string]bool{}
	for i, job := range jobs {
		a.Equal(i, job.ID)
		require.Equal(t, StatusCompleted, job.Status, "job %d: %v", i, job.Err)
		a.False(seen[job.Result.Output])
		seen[job.Result.Output] = true
		a.Equal([]Status{StatusLoaded, StatusProcessing, StatusCompleted}, obs.history[i])
	}
}
