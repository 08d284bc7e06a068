package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/orbitkit/missionctl/internal/domain"
)

// Source produces the event stream for one project's workflow run. The
// simulated and live implementations are interchangeable; the runner never
// knows which one it is consuming. The returned channel is closed when the
// stream ends or ctx is cancelled.
type Source interface {
	Events(ctx context.Context, projectID string) (<-chan domain.Event, error)
}

// SimulatedSource generates workflow progress locally: it walks the step
// catalog on a fixed tick, advancing each step by bounded random increments
// until it reaches 100. Used when no external agent ecosystem is publishing
// real progress.
type SimulatedSource struct {
	Catalog      []StepSpec
	Tick         time.Duration
	MaxIncrement int // upper bound for one progress step, >= 1
}

func NewSimulatedSource(catalog []StepSpec, tick time.Duration, maxIncrement int) *SimulatedSource {
	if maxIncrement < 1 {
		maxIncrement = 1
	}
	return &SimulatedSource{Catalog: catalog, Tick: tick, MaxIncrement: maxIncrement}
}

func (s *SimulatedSource) Events(ctx context.Context, projectID string) (<-chan domain.Event, error) {
	out := make(chan domain.Event, 16)

	go func() {
		defer close(out)

		emit := func(ev domain.Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		ticker := time.NewTicker(s.Tick)
		defer ticker.Stop()

		for i, spec := range s.Catalog {
			step := &domain.StepView{Name: spec.Name, Agent: spec.Agent, Status: domain.StepActive}
			if !emit(domain.NewStepStarted(projectID, i, step)) {
				return
			}

			progress := 0
			for progress < 100 {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}

				progress += 1 + rand.IntN(s.MaxIncrement)
				if progress > 100 {
					progress = 100
				}
				if !emit(domain.NewStepProgress(projectID, i, spec.Name, progress)) {
					return
				}
				if !emit(domain.NewEvent(domain.EventAgentStatusUpdate, projectID, domain.AgentStatusPayload{
					AgentID:  spec.Agent,
					Status:   domain.StepActive,
					Progress: progress,
					Task:     spec.Name,
				})) {
					return
				}
			}

			if !emit(domain.NewStepCompleted(projectID, i, spec.Name)) {
				return
			}
		}

		emit(domain.NewEvent(domain.EventWorkflowCompleted, projectID, nil))
	}()

	return out, nil
}

// Subscriber is the inbound side of the live relay, satisfied by the redis
// pub/sub store.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Publisher is the outbound side of the relay, satisfied by the redis
// pub/sub store.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// ChannelFunc maps a project ID to its pub/sub channel name.
type ChannelFunc func(projectID string) string

// EchoSource wraps another source and mirrors every event it yields onto
// the project's pub/sub channel, so external tooling can observe a
// simulated run the same way it would a live one. Publish failures are
// logged and never stall the stream.
type EchoSource struct {
	inner   Source
	pub     Publisher
	channel ChannelFunc
}

func NewEchoSource(inner Source, pub Publisher, channel ChannelFunc) *EchoSource {
	return &EchoSource{inner: inner, pub: pub, channel: channel}
}

func (s *EchoSource) Events(ctx context.Context, projectID string) (<-chan domain.Event, error) {
	in, err := s.inner.Events(ctx, projectID)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.Event, 16)
	channel := s.channel(projectID)

	go func() {
		defer close(out)

		for ev := range in {
			if data, marshalErr := json.Marshal(ev); marshalErr == nil {
				if pubErr := s.pub.Publish(ctx, channel, data); pubErr != nil {
					log.Warn().Err(pubErr).Str("channel", channel).Msg("workflow: event echo failed")
				}
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// LiveSource relays externally published workflow events from a pub/sub
// channel. The external agent ecosystem is the origin of truth; envelopes
// that fail to decode are logged and dropped.
type LiveSource struct {
	sub     Subscriber
	channel ChannelFunc
}

func NewLiveSource(sub Subscriber, channel ChannelFunc) *LiveSource {
	return &LiveSource{sub: sub, channel: channel}
}

func (s *LiveSource) Events(ctx context.Context, projectID string) (<-chan domain.Event, error) {
	raw, cleanup, err := s.sub.Subscribe(ctx, s.channel(projectID))
	if err != nil {
		return nil, fmt.Errorf("workflow.LiveSource.Events: %w", err)
	}

	out := make(chan domain.Event, 16)

	go func() {
		defer close(out)
		defer cleanup()

		for {
			select {
			case <-ctx.Done():
				return
			case data, ok := <-raw:
				if !ok {
					return
				}
				ev, decodeErr := domain.DecodeEvent(data)
				if decodeErr != nil {
					log.Warn().Err(decodeErr).Str("project_id", projectID).Msg("workflow: dropping undecodable event")
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
