// Command gridt-core is the composition root: it loads configuration,
// wires every package in internal/ into a running service graph, and
// exposes a couple of operator subcommands for local smoke runs. It
// does not implement a network transport (spec §6 leaves that open) —
// its job is to prove the wiring, not to serve HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/GridtNetwork/gridtlib/internal/activity"
	"github.com/GridtNetwork/gridtlib/internal/announcement"
	"github.com/GridtNetwork/gridtlib/internal/buildinfo"
	"github.com/GridtNetwork/gridtlib/internal/clock"
	"github.com/GridtNetwork/gridtlib/internal/config"
	"github.com/GridtNetwork/gridtlib/internal/creation"
	"github.com/GridtNetwork/gridtlib/internal/eventbus"
	"github.com/GridtNetwork/gridtlib/internal/grandom"
	"github.com/GridtNetwork/gridtlib/internal/graph"
	"github.com/GridtNetwork/gridtlib/internal/identity"
	"github.com/GridtNetwork/gridtlib/internal/jsonview"
	"github.com/GridtNetwork/gridtlib/internal/mail"
	"github.com/GridtNetwork/gridtlib/internal/movement"
	"github.com/GridtNetwork/gridtlib/internal/network"
	"github.com/GridtNetwork/gridtlib/internal/signal"
	"github.com/GridtNetwork/gridtlib/internal/store"
	"github.com/GridtNetwork/gridtlib/internal/subscription"
)

// App is the fully wired service graph. Every field is a collaborator
// the composition root constructed; nothing here is global state.
type App struct {
	Store         *store.Store
	Events        *eventbus.Bus
	Activity      *activity.Bus
	Graph         *graph.Engine
	Identity      *identity.Service
	Movements     *movement.Registry
	Subscriptions *subscription.Controller
	Creations     *creation.Controller
	Signals       *signal.Service
	Announcements *announcement.Service
	Network       *network.Service
	Views         *jsonview.Composer
	Notifier      *mail.Notifier
	Logger        *slog.Logger
}

// newLogger picks a text handler for an interactive terminal and a JSON
// handler otherwise, matching how operators expect local runs to read
// versus how a supervised process's stdout gets shipped to a log
// collector.
func newLogger(cfg *config.Config) *slog.Logger {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: config.ReplaceLogLevelNames}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// loadNotifier builds the outbound mail notifier. A missing templates
// file still produces a usable notifier with an empty registry — sends
// will fail per-template, logged and non-fatal, matching identity's
// enumeration-resistant error handling.
func loadNotifier(cfg *config.Config, c clock.Clock, logger *slog.Logger) (*mail.Notifier, error) {
	reg := mail.Registry{}
	if cfg.TemplatesFile != "" {
		data, err := os.ReadFile(cfg.TemplatesFile)
		if err != nil {
			return nil, fmt.Errorf("read templates file: %w", err)
		}
		reg, err = mail.LoadRegistry(data)
		if err != nil {
			return nil, fmt.Errorf("load template registry: %w", err)
		}
	}
	return mail.NewNotifier(cfg.SMTP, cfg.EmailFrom, c, reg, logger), nil
}

// wireGraph registers the graph engine's wiring routines on the event
// bus (spec §4.4/§4.6): subscribing seeds a follower's initial leaders
// and a leader's initial followers, unsubscribing tears both down.
func wireGraph(bus *eventbus.Bus, eng *graph.Engine) {
	bus.On(eventbus.OnSubscribe, "addInitialLeaders", func(ctx context.Context, payload any) error {
		ev := payload.(eventbus.SubscriptionEvent)
		return eng.AddInitialLeaders(ctx, ev.UserID, ev.MovementID)
	})
	bus.On(eventbus.OnSubscribe, "addInitialFollowers", func(ctx context.Context, payload any) error {
		ev := payload.(eventbus.SubscriptionEvent)
		return eng.AddInitialFollowers(ctx, ev.UserID, ev.MovementID)
	})
	bus.On(eventbus.OnUnsubscribe, "removeAllLeaders", func(ctx context.Context, payload any) error {
		ev := payload.(eventbus.SubscriptionEvent)
		return eng.RemoveAllLeaders(ctx, ev.UserID, ev.MovementID)
	})
	bus.On(eventbus.OnUnsubscribe, "removeAllFollowers", func(ctx context.Context, payload any) error {
		ev := payload.(eventbus.SubscriptionEvent)
		return eng.RemoveAllFollowers(ctx, ev.UserID, ev.MovementID)
	})
}

// wireActivity forwards every event-bus hook onto the activity bus, so
// an operator feed (or a future admin endpoint) can observe subscribe/
// unsubscribe/creation traffic live without participating in the
// after-commit hook chain itself.
func wireActivity(bus *eventbus.Bus, feed *activity.Bus) {
	bus.On(eventbus.OnSubscribe, "activityFeed", func(_ context.Context, payload any) error {
		ev := payload.(eventbus.SubscriptionEvent)
		feed.Publish(activity.Event{
			Source: activity.SourceSubscription, Kind: activity.KindSubscribed,
			MovementID: ev.MovementID, Data: map[string]any{"user_id": ev.UserID},
		})
		return nil
	})
	bus.On(eventbus.OnUnsubscribe, "activityFeed", func(_ context.Context, payload any) error {
		ev := payload.(eventbus.SubscriptionEvent)
		feed.Publish(activity.Event{
			Source: activity.SourceSubscription, Kind: activity.KindUnsubscribed,
			MovementID: ev.MovementID, Data: map[string]any{"user_id": ev.UserID},
		})
		return nil
	})
	bus.On(eventbus.OnCreation, "activityFeed", func(_ context.Context, payload any) error {
		ev := payload.(eventbus.CreationEvent)
		feed.Publish(activity.Event{
			Source: activity.SourceCreation, Kind: activity.KindCreated,
			MovementID: ev.MovementID, Data: map[string]any{"user_id": ev.UserID},
		})
		return nil
	})
	bus.On(eventbus.OnRemoveCreation, "activityFeed", func(_ context.Context, payload any) error {
		ev := payload.(eventbus.CreationEvent)
		feed.Publish(activity.Event{
			Source: activity.SourceCreation, Kind: activity.KindCreationRemoved,
			MovementID: ev.MovementID, Data: map[string]any{"user_id": ev.UserID},
		})
		return nil
	})
}

// NewApp wires every collaborator package together over a single store,
// following spec §9's composition-root sketch.
func NewApp(cfg *config.Config) (*App, error) {
	logger := newLogger(cfg)
	c := clock.System{}

	driver := store.DriverCGO
	if cfg.DatabaseURL == config.InMemoryDatabaseURL {
		driver = store.DriverPureGo
	}
	db, err := store.Open(driver, cfg.DatabaseURL, c)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	notifier, err := loadNotifier(cfg, c, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	events := eventbus.New(logger)
	feed := activity.New()
	eng := graph.NewEngine(db, grandom.System{}, graph.DefaultFanOutCap)
	wireGraph(events, eng)
	wireActivity(events, feed)

	movements := movement.NewRegistry(db)
	subs := subscription.New(db, events)
	creations := creation.New(db, events, subs)
	signals := signal.NewService(db)
	announcements := announcement.NewService(db)
	net := network.NewService(db)
	id := identity.NewService(db, notifier, c, []byte(cfg.SecretKey), logger, cfg.Templates)
	views := jsonview.NewComposer(movements, subs, announcements, eng, signals)

	return &App{
		Store: db, Events: events, Activity: feed, Graph: eng,
		Identity: id, Movements: movements, Subscriptions: subs,
		Creations: creations, Signals: signals, Announcements: announcements,
		Network: net, Views: views, Notifier: notifier, Logger: logger,
	}, nil
}

// Close releases the app's store connection.
func (a *App) Close() error {
	return a.Store.Close()
}

// runSmoke exercises the full registration → creation → subscription →
// signal → announcement → JSON-view path against a throwaway in-memory
// app, printing each step. It exists so an operator (or this repo's
// author) can see the whole wiring run end to end without a transport
// in front of it.
func runSmoke(ctx context.Context, logger *slog.Logger) error {
	cfg := config.Default()
	app, err := NewApp(cfg)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer app.Close()

	feed := app.Activity.Subscribe(16)
	defer app.Activity.Unsubscribe(feed)

	admin, err := app.Identity.Register(ctx, "alice", "alice@example.com", "hunter2", true)
	if err != nil {
		return fmt.Errorf("register admin: %w", err)
	}
	follower, err := app.Identity.Register(ctx, "bob", "bob@example.com", "correcthorse", false)
	if err != nil {
		return fmt.Errorf("register follower: %w", err)
	}

	shortDesc := "Ten push-ups, every day."
	mv, err := app.Creations.NewMovementByUser(ctx, admin.ID, "pushups", "daily", &shortDesc, nil, true)
	if err != nil {
		return fmt.Errorf("create movement: %w", err)
	}
	logger.Info("movement created", "movement_id", mv.ID, "creator", admin.Username)

	if _, err := app.Subscriptions.NewSubscription(ctx, follower.ID, mv.ID); err != nil {
		return fmt.Errorf("subscribe follower: %w", err)
	}

	leaders, err := app.Graph.CurrentLeaders(ctx, follower.ID, mv.ID)
	if err != nil {
		return fmt.Errorf("current leaders: %w", err)
	}
	for _, l := range leaders {
		msg := "keep going"
		if _, err := app.Signals.SendSignal(ctx, l.ID, mv.ID, &msg); err != nil {
			return fmt.Errorf("send signal: %w", err)
		}
	}

	if _, err := app.Announcements.CreateAnnouncement(ctx, admin.ID, mv.ID, "Week one, let's go."); err != nil {
		return fmt.Errorf("post announcement: %w", err)
	}

	view, err := app.Views.MovementView(ctx, mv.ID, follower.ID)
	if err != nil {
		return fmt.Errorf("compose movement view: %w", err)
	}
	logger.Info("composed movement view", "view", view)

	drained := 0
	for {
		select {
		case ev, ok := <-feed:
			if !ok {
				break
			}
			logger.Info("activity", "source", ev.Source, "kind", ev.Kind,
				"age", humanize.Time(ev.Timestamp))
			drained++
			continue
		default:
		}
		break
	}
	logger.Info("smoke run complete", "events_observed", drained, "build", buildinfo.String())
	return nil
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [version|smoke]\n", os.Args[0])
	}
	flag.Parse()

	cmd := "smoke"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	switch cmd {
	case "version":
		fmt.Println(buildinfo.String())
	case "smoke":
		logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := runSmoke(ctx, logger); err != nil {
			logger.Error("smoke run failed", "error", err)
			os.Exit(1)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}
