package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hcissey0/fitpal-notify/internal/config"
	"github.com/hcissey0/fitpal-notify/internal/delivery"
	"github.com/hcissey0/fitpal-notify/internal/httpapi"
	"github.com/hcissey0/fitpal-notify/internal/planapi"
	"github.com/hcissey0/fitpal-notify/internal/pushover"
	"github.com/hcissey0/fitpal-notify/internal/reminder"
	"github.com/hcissey0/fitpal-notify/internal/scheduler"
	"github.com/hcissey0/fitpal-notify/internal/store"
	"github.com/hcissey0/fitpal-notify/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	router  *telegram.Router
	sched   *scheduler.Scheduler
	sync    *reminder.Sync
	service *reminder.Service
	cron    *cron.Cron

	nightlyMu   sync.Mutex
	nightlyID   cron.EntryID
	nightlySpec string
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	repo, err := store.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	log.Info("sqlite ready", zap.String("path", cfg.DBPath))

	a := &App{cfg: cfg, log: log, repo: repo}

	var channels []delivery.Channel
	if cfg.TelegramEnabled() {
		bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("telegram: %w", err)
		}
		bot.Debug = false
		a.bot = bot
		channels = append(channels, delivery.Channel{Name: "telegram", Deliverer: telegram.NewNotifier(bot, cfg.TelegramChatID)})
	}
	if cfg.PushoverEnabled() {
		channels = append(channels, delivery.Channel{Name: "pushover", Deliverer: pushover.NewClient(cfg.PushoverToken, cfg.PushoverUser)})
	}
	fanout := delivery.NewFanout(log, channels,
		delivery.WithJournal(repo),
		delivery.WithRateLimit(cfg.DeliveryPerMinute),
	)

	a.sched = scheduler.New(fanout, log,
		scheduler.WithIcon(cfg.NotificationIcon),
		scheduler.WithDeliveryTimeout(cfg.DeliveryTimeout),
	)
	builder := reminder.NewBuilder(a.sched, nil, log)
	source := planapi.NewClient(cfg.APIBaseURL, cfg.APIToken, cfg.APIRequestsPerMinute, log)
	a.sync = reminder.NewSync(source, builder, nil, cfg.Location(), log)
	a.service = reminder.NewService(a.sched, a.sync, nil)

	if a.bot != nil {
		a.router = telegram.NewRouter(a.bot, log, a.service, cfg.TelegramChatID)
	}

	a.httpSrv = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(a.service, repo, source, cfg.CORSOrigins, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	a.cron = cron.New(cron.WithLocation(cfg.Location()))
	if err := a.scheduleNightly(cfg.Location()); err != nil {
		_ = repo.Close()
		return nil, err
	}
	// The day rolls over in the user's zone, so the nightly job follows it.
	a.sync.OnApply(func(snap reminder.Snapshot) {
		if err := a.scheduleNightly(snap.Settings.Location); err != nil {
			a.log.Warn("reschedule nightly rebuild failed", zap.Error(err))
		}
	})

	log.Info("delivery channels", zap.Strings("channels", fanout.Channels()))
	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting fitpal-notify",
		zap.String("http", a.cfg.HTTPAddr),
		zap.Bool("telegram", a.bot != nil),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.refresh(ctx, true)

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	a.cron.Start()

	var tick <-chan time.Time
	if a.cfg.RefreshInterval > 0 {
		ticker := time.NewTicker(a.cfg.RefreshInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	// A nil channel blocks forever, so the select below works without a bot.
	var updCh tgbotapi.UpdatesChannel
	if a.bot != nil {
		if err := a.router.SetCommands(); err != nil {
			a.log.Warn("set bot commands failed", zap.Error(err))
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 30
		updCh = a.bot.GetUpdatesChan(u)
	}

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.shutdown()
			return nil

		case <-tick:
			a.refresh(ctx, false)

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

// refresh re-fetches plan data; unless forced it only rebuilds on change.
func (a *App) refresh(ctx context.Context, force bool) {
	sum, rebuilt, err := a.sync.Run(ctx, force)
	if err != nil {
		a.log.Warn("plan sync failed", zap.Error(err))
		return
	}
	if rebuilt {
		a.log.Info("plan synced", zap.Int("scheduled", sum.Scheduled), zap.Bool("enabled", sum.Enabled))
	}
}

// scheduleNightly (re)arms the nightly job for midnight in loc. It is a no-op
// when the job is already armed for that zone.
func (a *App) scheduleNightly(loc *time.Location) error {
	spec := nightlySpec(a.cfg.RebuildCron, loc)

	a.nightlyMu.Lock()
	defer a.nightlyMu.Unlock()
	if spec == a.nightlySpec {
		return nil
	}
	id, err := a.cron.AddFunc(spec, func() { a.nightly(context.Background()) })
	if err != nil {
		return fmt.Errorf("rebuild cron %q: %w", spec, err)
	}
	if a.nightlyID != 0 {
		a.cron.Remove(a.nightlyID)
	}
	a.nightlyID, a.nightlySpec = id, spec
	a.log.Info("nightly rebuild armed", zap.String("spec", spec))
	return nil
}

// nightlySpec pins a cron spec to loc unless it already names a zone.
func nightlySpec(spec string, loc *time.Location) string {
	if loc == nil || strings.HasPrefix(spec, "CRON_TZ=") || strings.HasPrefix(spec, "TZ=") {
		return spec
	}
	return "CRON_TZ=" + loc.String() + " " + spec
}

// nightly rolls the reminders over to the new day and prunes the journal.
func (a *App) nightly(ctx context.Context) {
	a.refresh(ctx, true)

	if a.cfg.JournalRetention <= 0 {
		return
	}
	n, err := a.repo.PruneBefore(ctx, time.Now().Add(-a.cfg.JournalRetention))
	if err != nil {
		a.log.Warn("journal prune failed", zap.Error(err))
		return
	}
	if n > 0 {
		a.log.Info("journal pruned", zap.Int64("rows", n))
	}
}

func (a *App) shutdown() {
	<-a.cron.Stop().Done()
	a.sched.CancelAll()
	if a.bot != nil {
		a.bot.StopReceivingUpdates()
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := a.httpSrv.Shutdown(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}
	if a.repo != nil {
		_ = a.repo.Close()
	}
}
