package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/robfig/cron/v3"

	"github.com/vfa-khuongdv/drivectl/internal/database"
)

var log = logging.Logger("scheduler")

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Service runs upload jobs on their cron schedules
type Service struct {
	cron   *cron.Cron
	store  JobStore
	runner JobRunner
	ctx    context.Context
	cancel context.CancelFunc
	mutex  sync.RWMutex
	jobs   map[string]cron.EntryID
	specs  map[string]string
}

// NewService creates a new scheduler service
func NewService(store JobStore, runner JobRunner) *Service {
	logger := cronLogger{}
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		store:  store,
		runner: runner,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]cron.EntryID),
		specs:  make(map[string]string),
	}
}

// Start starts the scheduler and schedules every enabled job from the store
func (s *Service) Start() {
	s.cron.Start()
	log.Info("Scheduler started")

	s.loadAndScheduleJobs()
}

// Stop cancels running jobs, waits for them to return and stops the scheduler
func (s *Service) Stop() {
	// running jobs see the cancellation before the wait
	s.cancel()
	<-s.cron.Stop().Done()
	log.Info("Scheduler stopped")
}

// AddUploadJob schedules a job, replacing any existing schedule with the same name
func (s *Service) AddUploadJob(job *database.UploadJob) error {
	if !job.Enabled {
		return fmt.Errorf("upload job '%s' is disabled", job.Name)
	}
	if job.CronSchedule == "" {
		return fmt.Errorf("upload job '%s' has no cron schedule", job.Name)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if entryID, exists := s.jobs[job.Name]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, job.Name)
		delete(s.specs, job.Name)
	}

	name := job.Name
	entryID, err := s.cron.AddFunc(job.CronSchedule, func() {
		if err := s.ExecuteJobNow(s.ctx, name); err != nil {
			log.Errorf("Scheduled upload job '%s' failed: %v", name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.jobs[job.Name] = entryID
	s.specs[job.Name] = job.CronSchedule
	log.Infof("Added scheduled upload job '%s' with schedule '%s'", job.Name, job.CronSchedule)

	return nil
}

// RemoveUploadJob removes a scheduled upload job
func (s *Service) RemoveUploadJob(name string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if entryID, exists := s.jobs[name]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		delete(s.specs, name)
		log.Infof("Removed scheduled upload job '%s'", name)
	}
}

// GetScheduledJobs returns information about currently scheduled jobs ordered by name
func (s *Service) GetScheduledJobs() []JobInfo {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	jobs := make([]JobInfo, 0, len(s.jobs))
	for name, entryID := range s.jobs {
		entry := s.cron.Entry(entryID)
		jobs = append(jobs, JobInfo{
			Name:     name,
			Schedule: s.specs[name],
			EntryID:  entryID,
			Next:     entry.Next,
			Previous: entry.Prev,
		})
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// ExecuteJobNow loads the latest job definition and runs it synchronously
func (s *Service) ExecuteJobNow(ctx context.Context, name string) error {
	job, err := s.store.GetUploadJobByName(name)
	if err != nil {
		return fmt.Errorf("failed to get upload job: %w", err)
	}

	log.Infof("Starting upload job '%s'", name)
	start := time.Now()

	if err := s.runner.RunUploadJob(ctx, job); err != nil {
		return err
	}

	log.Infof("Upload job '%s' completed in %s", name, time.Since(start).Round(time.Millisecond))
	return nil
}

func (s *Service) loadAndScheduleJobs() {
	jobs, err := s.store.GetUploadJobs()
	if err != nil {
		log.Errorf("Failed to load upload jobs: %v", err)
		return
	}

	scheduled := 0
	for i := range jobs {
		if err := s.AddUploadJob(&jobs[i]); err != nil {
			log.Errorf("Failed to schedule upload job '%s': %v", jobs[i].Name, err)
			continue
		}
		scheduled++
	}

	log.Infof("Loaded and scheduled %d upload jobs", scheduled)
}

// ValidateCronExpression validates a cron expression
func ValidateCronExpression(expr string) error {
	_, err := parser.Parse(expr)
	return err
}

// GetNextRunTimes returns the next N run times for a cron expression
func GetNextRunTimes(cronExpr string, count int) ([]time.Time, error) {
	return nextRunTimes(cronExpr, count, time.Now())
}

func nextRunTimes(cronExpr string, count int, from time.Time) ([]time.Time, error) {
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, err
	}

	var times []time.Time
	for i := 0; i < count; i++ {
		from = schedule.Next(from)
		times = append(times, from)
	}

	return times, nil
}

// cronLogger routes cron's internal logging through go-log
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debugw(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Errorw(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
