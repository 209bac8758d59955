// Package scheduler starts and stops instances whose hour tags match the current hour.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/warden/pkg/resource"
)

// PassName identifies the scheduler in results and metrics.
const PassName = "instances"

const (
	statusNoInstances = "No instances found."
	statusFinished    = "Finished processing all instances."
)

// candidateKeys builds the candidate pool. Instances tagged only with a stop
// hour are not candidates.
var candidateKeys = []string{resource.TagStartTime}

// InstanceClient is the compute API the scheduler needs.
type InstanceClient interface {
	FindTagged(ctx context.Context, keys []string) ([]resource.Instance, bool, error)
	StartInstance(ctx context.Context, id string) error
	StopInstance(ctx context.Context, id string) error
}

// Scheduler runs the instance pass.
type Scheduler struct {
	client InstanceClient
	clock  func() time.Time
	logger zerolog.Logger
	dryRun bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the wall clock.
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithDryRun reports decisions without starting or stopping anything.
func WithDryRun(dryRun bool) Option {
	return func(s *Scheduler) { s.dryRun = dryRun }
}

// New creates a Scheduler.
func New(client InstanceClient, opts ...Option) *Scheduler {
	s := &Scheduler{
		client: client,
		clock:  time.Now,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the pass name.
func (s *Scheduler) Name() string {
	return PassName
}

// Run fetches candidates and decides and acts on each one in order.
// A provider error aborts the pass; outcomes recorded so far are returned with it.
func (s *Scheduler) Run(ctx context.Context) (resource.PassResult, error) {
	start := time.Now()
	result := resource.PassResult{Pass: PassName}

	instances, found, err := s.client.FindTagged(ctx, candidateKeys)
	if err != nil {
		result.Duration = time.Since(start)
		return result, fmt.Errorf("find scheduled instances: %w", err)
	}

	if !found {
		s.logger.Info().Msg("no scheduled instances found")
		result.Status = statusNoInstances
		result.Duration = time.Since(start)
		return result, nil
	}

	hour := s.clock().Hour()
	s.logger.Info().
		Int("instances", len(instances)).
		Int("hour", hour).
		Bool("dry_run", s.dryRun).
		Msg("processing scheduled instances")

	result.Outcomes = make([]resource.Outcome, 0, len(instances))
	for _, instance := range instances {
		outcome, err := s.process(ctx, instance, hour)
		if err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	result.Status = statusFinished
	result.Duration = time.Since(start)
	return result, nil
}

func (s *Scheduler) process(ctx context.Context, instance resource.Instance, hour int) (resource.Outcome, error) {
	d := Decide(instance, hour)
	outcome := resource.Outcome{
		ResourceID: instance.ID,
		Action:     d.Action,
		Message:    d.Reason,
		DryRun:     s.dryRun && d.Action.Mutates(),
	}

	logger := s.logger.With().
		Str("instance_id", instance.ID).
		Str("state", string(instance.State)).
		Str("action", string(d.Action)).
		Logger()

	if outcome.DryRun {
		outcome.Message = "(dry-run) " + outcome.Message
		logger.Debug().Msg(outcome.Message)
		return outcome, nil
	}

	switch d.Action {
	case resource.ActionStop:
		if err := s.client.StopInstance(ctx, instance.ID); err != nil {
			return outcome, fmt.Errorf("stop instance %s: %w", instance.ID, err)
		}
	case resource.ActionStart:
		if err := s.client.StartInstance(ctx, instance.ID); err != nil {
			return outcome, fmt.Errorf("start instance %s: %w", instance.ID, err)
		}
	}

	logger.Debug().Msg(outcome.Message)
	return outcome, nil
}
