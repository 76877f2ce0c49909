package room

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RunJanitor sweeps on every tick of interval until ctx is done. Sweeps also
// happen before each Create, so the janitor is optional.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	log.Debug().Dur("interval", interval).Msg("room janitor started")
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("room janitor stopped")
			return
		case <-ticker.Chan():
			if removed := s.Sweep(); len(removed) > 0 {
				log.Info().Strs("room_ids", removed).Int("live_rooms", s.Len()).Msg("janitor swept rooms")
			}
		}
	}
}
