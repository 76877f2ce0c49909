package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"pomodoro/collab/internal/model"
)

const (
	DefaultPollInterval     = time.Second
	DefaultFailureThreshold = 3
)

type ConnState int

const (
	Connected ConnState = iota
	Reconnecting
	Lost
)

func (s ConnState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Lost:
		return "lost"
	default:
		return "unknown"
	}
}

// Update is emitted after every poll. Room is the tracker's current snapshot,
// which stays the last good one while the connection is failing.
type Update struct {
	Room   model.RoomResponse
	Change *PhaseChange
	State  ConnState
	Err    error
}

type PollerOptions struct {
	Interval         time.Duration
	FailureThreshold int
	Clock            clockwork.Clock
}

type Poller struct {
	client    *Client
	roomID    string
	tracker   *Tracker
	interval  time.Duration
	threshold int
	clock     clockwork.Clock
	failures  int
}

func NewPoller(client *Client, roomID string, opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Poller{
		client:    client,
		roomID:    roomID,
		tracker:   NewTracker(opts.Interval),
		interval:  opts.Interval,
		threshold: opts.FailureThreshold,
		clock:     opts.Clock,
	}
}

func (p *Poller) Tracker() *Tracker {
	return p.tracker
}

func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Run polls until ctx is done or the room disappears, sending one Update per
// poll. It returns ctx.Err() or an error wrapping ErrRoomClosed.
func (p *Poller) Run(ctx context.Context, updates chan<- Update) error {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		update, err := p.poll(ctx)
		if err != nil {
			return err
		}
		select {
		case updates <- update:
		case <-ctx.Done():
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
		}
	}
}

func (p *Poller) poll(ctx context.Context) (Update, error) {
	logger := zerolog.Ctx(ctx).With().Str("room_id", p.roomID).Logger()

	room, err := p.client.GetRoom(ctx, p.roomID)
	if errors.Is(err, ErrRoomClosed) {
		logger.Info().Msg("room closed")
		return Update{}, err
	}
	if ctx.Err() != nil {
		return Update{}, ctx.Err()
	}
	if err != nil {
		p.failures++
		current, _ := p.tracker.Current()
		if p.failures >= p.threshold {
			lostErr := fmt.Errorf("connection lost after %d failed polls: %w", p.failures, err)
			logger.Warn().Err(err).Int("failures", p.failures).Msg("room connection lost")
			return Update{Room: current, State: Lost, Err: lostErr}, nil
		}
		logger.Debug().Err(err).Int("failures", p.failures).Msg("room poll failed")
		return Update{Room: current, State: Reconnecting, Err: err}, nil
	}

	if p.failures >= p.threshold {
		logger.Info().Msg("room connection restored")
	}
	p.failures = 0
	_, change := p.tracker.Apply(*room, p.clock.Now())
	current, _ := p.tracker.Current()
	return Update{Room: current, Change: change, State: Connected}, nil
}
