// Command roomwatch joins a room as a guest and follows its shared timer in
// the terminal, optionally recording finished phases to analytics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"pomodoro/collab/internal/client"
	"pomodoro/collab/internal/logging"
	"pomodoro/collab/internal/model"
)

const redrawInterval = 250 * time.Millisecond

func main() {
	envErr := godotenv.Load()

	server := flag.String("server", envOr("ROOMWATCH_SERVER", "http://localhost:8080"), "room server base URL")
	roomID := flag.String("room", "", "room code to join")
	name := flag.String("name", "Watcher", "display name")
	interval := flag.Duration("interval", client.DefaultPollInterval, "poll interval")
	record := flag.Bool("record", false, "record finished phases to analytics")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "log level")
	flag.Parse()

	logging.Setup(*logLevel)
	if envErr != nil {
		log.Debug().Err(envErr).Msg("could not load .env file")
	}
	if *roomID == "" {
		fmt.Fprintln(os.Stderr, "usage: roomwatch -room CODE [-server URL] [-name NAME] [-record]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *server, *roomID, *name, *interval, *record); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("roomwatch stopped")
	}
}

func run(ctx context.Context, server, roomID, name string, interval time.Duration, record bool) error {
	api := client.New(server)

	auth, err := api.Guest(ctx, name)
	if err != nil {
		return fmt.Errorf("guest login: %w", err)
	}
	api.SetToken(auth.Token)

	joined, err := api.Act(ctx, roomID, client.ActionRequest{Action: "join"})
	if err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	log.Info().Str("room_id", joined.ID).Str("room", joined.Name).Str("user_id", auth.User.ID).Msg("joined room")

	defer func() {
		leaveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := api.Act(leaveCtx, roomID, client.ActionRequest{Action: "leave"}); err != nil {
			log.Warn().Err(err).Msg("leave room")
		}
	}()

	clock := clockwork.NewRealClock()
	poller := client.NewPoller(api, roomID, client.PollerOptions{Interval: interval, Clock: clock})

	updates := make(chan client.Update)
	done := make(chan error, 1)
	go func() {
		done <- poller.Run(ctx, updates)
	}()

	// Redraws between polls show the tracker's interpolated countdown.
	redraw := clock.NewTicker(redrawInterval)
	defer redraw.Stop()

	var last *client.Update
	for {
		select {
		case err := <-done:
			if errors.Is(err, client.ErrRoomClosed) {
				log.Info().Msg("room has closed")
				return nil
			}
			return err
		case update := <-updates:
			last = &update
			render(update, poller.Tracker().Remaining(clock.Now()))
			if update.Change != nil && record {
				recordChange(ctx, api, *update.Change, poller.Interval())
			}
		case <-redraw.Chan():
			if last != nil {
				render(*last, poller.Tracker().Remaining(clock.Now()))
			}
		}
	}
}

func render(update client.Update, remaining int) {
	if update.State != client.Connected {
		fmt.Fprintf(os.Stdout, "\r[%s] %v                    ", update.State, update.Err)
		return
	}
	ts := update.Room.TimerState
	fmt.Fprintf(os.Stdout, "\r%-10s %-7s %02d:%02d  #%d  %d here   ",
		ts.Phase, ts.Status, remaining/60, remaining%60, ts.PomodoroCount, len(update.Room.Participants))
}

func recordChange(ctx context.Context, api *client.Client, change client.PhaseChange, interval time.Duration) {
	session, ok := client.SessionRecord(change, interval)
	if !ok || session.Phase != model.PhaseWork {
		return
	}
	if _, err := api.RecordSession(ctx, session); err != nil {
		log.Warn().Err(err).Msg("record session")
		return
	}
	log.Info().
		Str("phase", string(session.Phase)).
		Bool("completed", session.Completed).
		Int("actual_seconds", session.ActualDuration).
		Msg("session recorded")
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
