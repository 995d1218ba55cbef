package gridder

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Observer is told about every status change of a job in a run. Calls are
// serialised, so observers need no locking of their own.
type Observer interface {
	JobChanged(runID string, job *Job)
}

type ObserverFunc func(runID string, job *Job)

func (f ObserverFunc) JobChanged(runID string, job *Job) { f(runID, job) }

// Batch runs many jobs with independent parameters. One failing file does
// not stop the others.
type Batch struct {
	RunID     string
	Namer     *OutputNamer
	Workers   int
	Logger    logrus.FieldLogger
	Observers []Observer

	mu sync.Mutex
}

func NewBatch(outDir string) *Batch {
	return &Batch{
		RunID: uuid.NewString(),
		Namer: NewOutputNamer(outDir),
	}
}

func (b *Batch) logger() logrus.FieldLogger {
	if b.Logger == nil {
		return logrus.StandardLogger()
	}
	return b.Logger
}

func (b *Batch) setStatus(job *Job, s Status, res *Result, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	job.Status = s
	job.Result = res
	job.Err = err
	for _, o := range b.Observers {
		o.JobChanged(b.RunID, job)
	}
}

// Run processes jobs until all are done or ctx is cancelled. An unusable
// output directory fails every job and the run with ErrOutputDir; per-file
// errors are only recorded on their jobs. Jobs not started before
// cancellation stay Loaded and Run returns the context's error.
func (b *Batch) Run(ctx context.Context, jobs []*Job) error {
	log := b.logger().WithField("run", b.RunID)
	for i, job := range jobs {
		job.ID = i
		b.setStatus(job, StatusLoaded, nil, nil)
	}
	if b.Namer == nil {
		b.Namer = NewOutputNamer("")
	}
	if err := b.Namer.CheckDir(); err != nil {
		for _, job := range jobs {
			b.setStatus(job, StatusError, nil, err)
		}
		log.WithError(err).Error("batch aborted")
		return err
	}

	workers := b.Workers
	if workers < 1 {
		workers = 1
	}
	log.WithFields(logrus.Fields{"jobs": len(jobs), "workers": workers}).Info("batch started")

	if workers == 1 {
		for _, job := range jobs {
			if err := ctx.Err(); err != nil {
				return err
			}
			b.runJob(ctx, job, log)
		}
	} else {
		queue := make(chan *Job)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for job := range queue {
					b.runJob(ctx, job, log)
				}
			}()
		}
	feed:
		for _, job := range jobs {
			select {
			case <-ctx.Done():
				break feed
			case queue <- job:
			}
		}
		close(queue)
		wg.Wait()
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	failed := len(Failed(jobs))
	log.WithFields(logrus.Fields{"completed": len(jobs) - failed, "failed": failed}).Info("batch finished")
	return nil
}

func (b *Batch) runJob(ctx context.Context, job *Job, log logrus.FieldLogger) {
	b.setStatus(job, StatusProcessing, nil, nil)
	res, err := Process(ctx, job, Options{Namer: b.Namer, Logger: log.WithField("job", job.ID)})
	if err != nil {
		log.WithError(err).WithField("job", job.ID).Error(Diagnose(err))
		b.setStatus(job, StatusError, nil, err)
		return
	}
	b.setStatus(job, StatusCompleted, res, nil)
}

// Failed returns the jobs that ended in error.
func Failed(jobs []*Job) []*Job {
	var ret []*Job
	for _, job := range jobs {
		if job.Status == StatusError {
			ret = append(ret, job)
		}
	}
	return ret
}

// Canceled reports whether err came from a cancelled or expired context.
func Canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
