package app

import (
	"context"
	"time"

	"github.com/maudia1/site/pkg/metrics"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// JobInfo describes a scheduled job
type JobInfo struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev"`
}

type job struct {
	name string
	spec string
	id   cron.EntryID
	run  func()
}

// ErrUnknownJob is returned by RunJob for a name that is not scheduled
var ErrUnknownJob = errors.New("unknown job")

func (a *Application) addJob(name, spec string, run func()) {
	id, err := a.sched.AddFunc(spec, run)
	if err != nil {
		zap.S().Errorf("init job %s error %s", name, err.Error())
		return
	}
	a.jobs = append(a.jobs, job{name: name, spec: spec, id: id, run: run})
}

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))
	a.jobs = nil

	a.addJob("monitor", "@every 30s", func() {
		go a.SchedSystemMonitorTask()
		go a.SchedProcessMonitorTask()
	})
	a.addJob("catalog_stats", "@every 5m", a.SchedCatalogStatsTask)
	a.addJob("purge_carts", "@hourly", a.SchedPurgeCartsTask)
	if spec := a.appConfig.Mirror.ResyncSpec; spec != "" && a.mirror.Enabled() {
		a.addJob("mirror_resync", spec, a.SchedMirrorResyncTask)
	}

	a.sched.Start()
}

// Jobs lists the scheduled jobs with their next and previous run times
func (a *Application) Jobs() []JobInfo {
	out := make([]JobInfo, 0, len(a.jobs))
	for _, j := range a.jobs {
		e := a.sched.Entry(j.id)
		out = append(out, JobInfo{Name: j.name, Spec: j.spec, Next: e.Next, Prev: e.Prev})
	}
	return out
}

// RunJob triggers a scheduled job immediately in the background
func (a *Application) RunJob(name string) error {
	for _, j := range a.jobs {
		if j.name == name {
			zap.L().Info("job triggered", zap.String("job", name), zap.String("namespace", "scheduler"))
			go j.run()
			return nil
		}
	}
	return errors.Wrap(ErrUnknownJob, name)
}

// startCounterFlush persists in-memory counters every interval until ctx ends
func (a *Application) startCounterFlush(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				metrics.FlushCounters()
				return
			case <-ticker.C:
				metrics.FlushCounters()
			}
		}
	}()
}
