// Package worker runs the periodic change-detection loop: re-fetch and
// re-parse every subscribed address, diff per-day content hashes against the
// last-notified state and dispatch notifications for what changed.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"voe-monitor-backend/config"
	"voe-monitor-backend/internal/model"
	"voe-monitor-backend/internal/notify"
	"voe-monitor-backend/internal/render"
	"voe-monitor-backend/internal/schedule"
	"voe-monitor-backend/internal/store"
)

// ScheduleFetcher is the acquisition seam: it returns raw schedule markup
// for an address triple.
type ScheduleFetcher interface {
	Schedule(ctx context.Context, cityID, streetID, houseID int64) (string, error)
}

// Worker is the change-detection loop.
type Worker struct {
	cfg      *config.WorkerConfig
	store    store.Store
	fetcher  ScheduleFetcher
	parser   *schedule.Parser
	notifier notify.Notifier
	settings *Settings
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a worker.
func New(cfg *config.WorkerConfig, st store.Store, fetcher ScheduleFetcher, parser *schedule.Parser, notifier notify.Notifier, settings *Settings, logger *zap.Logger) *Worker {
	return &Worker{
		cfg:      cfg,
		store:    st,
		fetcher:  fetcher,
		parser:   parser,
		notifier: notifier,
		settings: settings,
		logger:   logger.Named("worker"),
		now:      time.Now,
	}
}

// Run ticks until the context is cancelled. The first tick fires
// immediately.
func (w *Worker) Run(ctx context.Context) {
	if !w.cfg.Enabled {
		w.logger.Info("worker is disabled, not starting")
		return
	}
	w.logger.Info("starting change-detection worker",
		zap.Duration("interval", w.cfg.Interval))

	w.Tick(ctx)

	timer := time.NewTimer(w.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down")
			return
		case <-timer.C:
			w.Tick(ctx)
			timer.Reset(w.cfg.Interval)
		}
	}
}

// Tick processes every address with at least one subscriber. Each address
// is handled concurrently and independently: one failing address never
// aborts the others. Outbound HTTP concurrency is bounded by the fetcher's
// semaphore, not here.
func (w *Worker) Tick(ctx context.Context) {
	silent := w.settings.TakeSilentRecalc()

	addrIDs, err := w.store.GetAddressesWithSubscribers(ctx)
	if err != nil {
		w.logger.Error("failed to enumerate subscribed addresses", zap.Error(err))
		return
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		notified = make(map[int64]struct{})
	)

	for _, addrID := range addrIDs {
		wg.Add(1)
		go func(addrID string) {
			defer wg.Done()
			users, err := w.processAddress(ctx, addrID, silent)
			if err != nil {
				w.logger.Error("address processing failed",
					zap.String("address", addrID), zap.Error(err))
				return
			}
			mu.Lock()
			for uid := range users {
				notified[uid] = struct{}{}
			}
			mu.Unlock()
		}(addrID)
	}
	wg.Wait()

	// One menu refresh per notified user, regardless of how many addresses
	// fired for them.
	for uid := range notified {
		if err := w.notifier.RefreshMainMenu(ctx, uid); err != nil {
			w.logger.Error("failed to refresh main menu",
				zap.Int64("user", uid), zap.Error(err))
		}
	}

	w.logger.Info("tick completed",
		zap.Int("addresses", len(addrIDs)),
		zap.Int("notified_users", len(notified)))

	if silent {
		w.logger.Info("silent hash recalculation honored, no notifications were sent")
	}
}

// processAddress fetches, parses and diffs one address, notifying the
// subscribers of every changed day-kind. It returns the notified user ids.
func (w *Worker) processAddress(ctx context.Context, addrID string, silent bool) (map[int64]struct{}, error) {
	subsToday, err := w.store.GetSubscribers(ctx, addrID, model.KindToday)
	if err != nil {
		return nil, err
	}
	subsTomorrow, err := w.store.GetSubscribers(ctx, addrID, model.KindTomorrow)
	if err != nil {
		return nil, err
	}
	if len(subsToday) == 0 && len(subsTomorrow) == 0 {
		return nil, nil
	}

	addr, err := w.store.GetAddress(ctx, addrID)
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, fmt.Errorf("address %s has subscriptions but no record", addrID)
	}

	rawHTML, err := w.fetcher.Schedule(ctx, addr.CityID, addr.StreetID, addr.HouseID)
	if err != nil {
		// Source unavailable this cycle: keep state, try again next tick.
		w.logger.Warn("skipping address for this tick",
			zap.String("address", addrID), zap.Error(err))
		return nil, nil
	}

	now := w.now()
	resp := w.parser.Parse(rawHTML, addr.Name, w.cfg.MaxDays, now)

	changed, err := w.updateHashes(ctx, addrID, resp, now)
	if err != nil {
		return nil, err
	}
	if silent {
		changed = nil
	}

	notified := make(map[int64]struct{})
	today := now
	tomorrow := now.AddDate(0, 0, 1)

	if changed[model.KindToday] {
		msg := fmt.Sprintf("⚡ Оновлено графік відключень на сьогодні за адресою %s.", addr.Name)
		body := render.Schedule(resp.Day(today), resp.CurrentDisconnection, resp.DisconnectionQueue, addr.Name, today, now)
		w.sendAll(ctx, subsToday, msg+"\n\n"+body, addrID, model.KindToday, notified)
	}

	if changed[model.KindTomorrow] {
		msg := fmt.Sprintf("📅 З'явився/оновився графік на завтра за адресою %s.", addr.Name)
		body := render.Schedule(resp.Day(tomorrow), resp.CurrentDisconnection, resp.DisconnectionQueue, addr.Name, tomorrow, now)
		w.sendAll(ctx, subsTomorrow, msg+"\n\n"+body, addrID, model.KindTomorrow, notified)
	}

	return notified, nil
}

func (w *Worker) sendAll(ctx context.Context, userIDs []int64, text, addrID string, kind model.SubscriptionKind, notified map[int64]struct{}) {
	for _, uid := range userIDs {
		if err := w.notifier.SendMessage(ctx, uid, text); err != nil {
			w.logger.Error("failed to notify user",
				zap.Int64("user", uid),
				zap.String("address", addrID),
				zap.String("kind", string(kind)),
				zap.Error(err))
			continue
		}
		notified[uid] = struct{}{}
		w.logger.Info("sent notification",
			zap.Int64("user", uid),
			zap.String("address", addrID),
			zap.String("kind", string(kind)))
	}
}

// updateHashes runs the per-(address, kind) state machine and returns the
// kinds whose content changed since the last notification.
//
// Today: a missing baseline is stored silently so a fresh subscriber is not
// notified about a schedule that predates the subscription. A day that
// disappears after being published hashes to "" and counts as a change.
//
// Tomorrow: fires even on first observation, provided the day actually has
// disconnections; a newly published tomorrow schedule is itself the event.
func (w *Worker) updateHashes(ctx context.Context, addrID string, resp *schedule.ScheduleResponse, now time.Time) (map[model.SubscriptionKind]bool, error) {
	changed := make(map[model.SubscriptionKind]bool)

	todayOld, todayExists, err := w.store.GetLastHash(ctx, addrID, model.KindToday)
	if err != nil {
		return nil, err
	}
	tomorrowOld, _, err := w.store.GetLastHash(ctx, addrID, model.KindTomorrow)
	if err != nil {
		return nil, err
	}

	var todayHash string
	todayDay := resp.Day(now)
	if todayDay != nil {
		todayHash = todayDay.Hash()
		switch {
		case !todayExists:
			if err := w.store.SetLastHash(ctx, addrID, model.KindToday, todayHash); err != nil {
				return nil, err
			}
		case todayHash != todayOld:
			if err := w.store.SetLastHash(ctx, addrID, model.KindToday, todayHash); err != nil {
				return nil, err
			}
			changed[model.KindToday] = true
		}
	} else if todayExists && todayOld != "" {
		// The published schedule for today is gone; that removal is itself
		// worth a notification.
		if err := w.store.SetLastHash(ctx, addrID, model.KindToday, ""); err != nil {
			return nil, err
		}
		changed[model.KindToday] = true
	}

	tomorrowDay := resp.Day(now.AddDate(0, 0, 1))
	if tomorrowDay != nil {
		tomorrowHash := tomorrowDay.Hash()
		if tomorrowHash != tomorrowOld && tomorrowDay.HasDisconnections {
			if err := w.store.SetLastHash(ctx, addrID, model.KindTomorrow, tomorrowHash); err != nil {
				return nil, err
			}
			changed[model.KindTomorrow] = true
		}
	}

	// Day rollover: yesterday's "tomorrow" became "today". The content was
	// already communicated, so do not notify it twice.
	if changed[model.KindToday] && todayDay != nil && tomorrowOld != "" && todayHash == tomorrowOld {
		delete(changed, model.KindToday)
	}

	return changed, nil
}
