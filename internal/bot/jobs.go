package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/valory-xyz/triton-bot/internal/config"
	"github.com/valory-xyz/triton-bot/internal/logging"
	"github.com/valory-xyz/triton-bot/internal/metrics"
	"github.com/valory-xyz/triton-bot/internal/service"
)

// notifier pushes a message to the configured chat.
type notifier interface {
	Notify(text string, markdown bool) error
}

// Job is a scheduled task with a cron expression.
type Job interface {
	Name() string
	Schedule() string
	Run(ctx context.Context) error
}

// JobStatus is one scheduler entry with its next run time.
type JobStatus struct {
	Name string
	Next time.Time
}

type scheduledEntry struct {
	id   cron.EntryID
	name string
}

// Scheduler runs registered jobs on their cron schedules. Each job is
// guarded by a per-job TryLock so a slow run is never overlapped by the
// next tick. Schedules are evaluated in UTC.
type Scheduler struct {
	mu        sync.Mutex
	cron      *cron.Cron
	jobs      []Job
	names     map[string]struct{}
	locks     map[string]*sync.Mutex
	entries   []scheduledEntry
	collector *metrics.Collector
	cancel    context.CancelFunc
}

// NewScheduler creates a scheduler. Jobs must be registered before Start.
func NewScheduler(collector *metrics.Collector) *Scheduler {
	return &Scheduler{
		names:     make(map[string]struct{}),
		locks:     make(map[string]*sync.Mutex),
		collector: collector,
	}
}

// RegisterJob adds a job. Names must be unique.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, exists := s.names[name]; exists {
		return fmt.Errorf("duplicate job name %q", name)
	}
	s.names[name] = struct{}{}
	s.locks[name] = &sync.Mutex{}
	s.jobs = append(s.jobs, j)
	return nil
}

// Start begins executing the registered jobs. Returns an error if any
// job has an invalid schedule expression.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	s.cron = cron.New(cron.WithParser(parser), cron.WithLocation(time.UTC))

	for _, j := range s.jobs {
		job := j
		lock := s.locks[job.Name()]

		id, err := s.cron.AddFunc(job.Schedule(), func() {
			if !lock.TryLock() {
				logging.Warn("job still running, skipping tick", "job", job.Name())
				return
			}
			defer lock.Unlock()

			start := time.Now()
			err := job.Run(ctx)
			s.collector.RecordJobRun(job.Name(), time.Since(start), err)
			if err != nil {
				logging.Error("job failed", "job", job.Name(), logging.Err(err))
			} else {
				logging.Debug("job completed", "job", job.Name())
			}
		})
		if err != nil {
			cancel()
			return fmt.Errorf("invalid schedule for job %q: %w", job.Name(), err)
		}
		s.entries = append(s.entries, scheduledEntry{id: id, name: job.Name()})
	}

	s.cron.Start()
	logging.Info("scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop shuts the scheduler down, waiting for in-flight jobs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logging.Info("scheduler stopped")
	}
}

// Entries returns the registered jobs with their next run times.
func (s *Scheduler) Entries() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.entries))
	for _, e := range s.entries {
		status := JobStatus{Name: e.name}
		if s.cron != nil {
			status.Next = s.cron.Entry(e.id).Next
		}
		out = append(out, status)
	}
	return out
}

// BalanceCheckJob alerts the chat when tracked balances fall below the
// configured thresholds and refreshes the balance gauges. Runs hourly.
type BalanceCheckJob struct {
	registry   *service.Registry
	notify     notifier
	thresholds config.Jobs
	collector  *metrics.Collector
}

// NewBalanceCheckJob creates the hourly balance alert job.
func NewBalanceCheckJob(registry *service.Registry, notify notifier, thresholds config.Jobs, collector *metrics.Collector) *BalanceCheckJob {
	return &BalanceCheckJob{registry: registry, notify: notify, thresholds: thresholds, collector: collector}
}

func (j *BalanceCheckJob) Name() string { return "balance_check" }

func (j *BalanceCheckJob) Schedule() string { return "0 * * * *" }

func (j *BalanceCheckJob) Run(ctx context.Context) error {
	logging.Info("running balance check job")

	var lastErr error
	for _, svc := range j.registry.All() {
		snap, err := svc.CheckBalance(ctx)
		if err != nil {
			logging.Error("failed to check balances", logging.Service(svc.Name()), logging.Err(err))
			lastErr = err
			continue
		}

		agent, _ := snap.AgentEOANative.Float64()
		safeNative, _ := snap.ServiceSafeNative.Float64()
		safeWrapped, _ := snap.ServiceSafeWrappedNative.Float64()
		masterEOA, _ := snap.MasterEOANative.Float64()
		masterSafe, _ := snap.MasterSafeNative.Float64()

		j.collector.SetNativeBalance(svc.Name(), "agent_eoa", agent)
		j.collector.SetNativeBalance(svc.Name(), "service_safe", safeNative+safeWrapped)
		j.collector.SetNativeBalance(svc.Name(), "master_eoa", masterEOA)
		j.collector.SetNativeBalance(svc.Name(), "master_safe", masterSafe)

		if agent < j.thresholds.AgentBalanceThreshold {
			j.notify.Notify(lowBalanceAgentMessage(svc, snap), true)
		}
		if safeNative+safeWrapped < j.thresholds.SafeBalanceThreshold {
			j.notify.Notify(lowBalanceSafeMessage(svc, snap), true)
		}
		if masterSafe < j.thresholds.MasterSafeBalanceThreshold {
			j.notify.Notify(lowBalanceMasterSafeMessage(svc, snap), true)
		}
	}
	return lastErr
}

// AutoclaimJob claims and withdraws all rewards once a month. Disabled
// runs are a no-op so the schedule can stay registered.
type AutoclaimJob struct {
	registry *service.Registry
	notify   notifier
	enabled  bool
	day      int
	hourUTC  int
}

// NewAutoclaimJob creates the monthly claim-and-withdraw job.
func NewAutoclaimJob(registry *service.Registry, notify notifier, jobs config.Jobs) *AutoclaimJob {
	return &AutoclaimJob{
		registry: registry,
		notify:   notify,
		enabled:  jobs.Autoclaim,
		day:      jobs.AutoclaimDay,
		hourUTC:  jobs.AutoclaimHourUTC,
	}
}

func (j *AutoclaimJob) Name() string { return "autoclaim" }

func (j *AutoclaimJob) Schedule() string {
	return fmt.Sprintf("0 %d %d * *", j.hourUTC, j.day)
}

func (j *AutoclaimJob) Run(ctx context.Context) error {
	logging.Info("running autoclaim job")

	if !j.enabled {
		logging.Info("autoclaim is disabled")
		return nil
	}

	for _, svc := range j.registry.All() {
		svc.ClaimRewards(ctx)
	}

	var messages []string
	for _, svc := range j.registry.All() {
		withdrawals := svc.WithdrawRewards(ctx)
		if len(withdrawals) == 0 {
			messages = append(messages, cannotWithdrawMessage(svc.Name(), true))
			continue
		}
		for _, w := range withdrawals {
			messages = append(messages, withdrawalMessage(svc, w, true))
		}
	}

	if len(messages) == 0 {
		logging.Info("no rewards to withdraw")
		return nil
	}
	return j.notify.Notify(strings.Join(messages, "\n\n"), true)
}
