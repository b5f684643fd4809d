package room

import (
	"context"
	"errors"

	"github.com/coder/quartz"
	"github.com/lox/pokerrooms/internal/game"
)

// CleanupInactiveRooms finishes every Waiting room idle for longer than the
// inactivity threshold and evicts its snapshot. It returns how many rooms
// were closed. Rooms with a hand in progress are never touched.
func (s *Service) CleanupInactiveRooms(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.cfg.InactivityThreshold)
	idle, err := s.rooms.Idle(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	closed := 0
	var errs []error
	for _, rec := range idle {
		ok, err := s.closeIdle(ctx, rec.ID)
		if err != nil {
			s.logger.Warn("Failed to close idle room", "room", rec.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		if ok {
			closed++
		}
	}
	if closed > 0 {
		s.logger.Info("Closed inactive rooms", "count", closed, "cutoff", cutoff)
	}
	return closed, errors.Join(errs...)
}

// closeIdle re-checks the live snapshot under the room lock, since the
// durable record may lag behind it.
func (s *Service) closeIdle(ctx context.Context, id string) (bool, error) {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return false, err
	}
	defer unlock()

	sess, err := s.rooms.Load(ctx, id)
	if err != nil {
		return false, err
	}
	now := s.clock.Now()
	if sess.Status != game.Waiting || now.Sub(sess.LastActivityAt) <= s.cfg.InactivityThreshold {
		return false, nil
	}
	if err := s.rooms.Finish(ctx, id, now); err != nil {
		return false, err
	}
	sess.Status = game.Finished
	s.publish(ctx, sess, change{events: []string{EventRoomClosed}})
	return true, nil
}

// StartSweeper schedules CleanupInactiveRooms every sweep interval until ctx
// ends. The ticker is registered before it returns.
func (s *Service) StartSweeper(ctx context.Context) quartz.Waiter {
	return s.clock.TickerFunc(ctx, s.cfg.SweepInterval, func() error {
		if _, err := s.CleanupInactiveRooms(ctx); err != nil {
			s.logger.Error("Cleanup failed", "error", err)
		}
		return nil
	}, "room", "sweeper")
}

// RunSweeper runs the sweeper until ctx is cancelled.
func (s *Service) RunSweeper(ctx context.Context) error {
	s.logger.Info("Sweeper started", "interval", s.cfg.SweepInterval, "threshold", s.cfg.InactivityThreshold)
	err := s.StartSweeper(ctx).Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
