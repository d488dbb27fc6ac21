// Package app is the composition root: it builds stores, services and the
// HTTP router from configuration and runs the background workers.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	awardHandler "badgehub/internal/award/handler"
	awardMetrics "badgehub/internal/award/metrics"
	awardService "badgehub/internal/award/service"
	awardStore "badgehub/internal/award/store"
	"badgehub/internal/badge/artifact"
	badgeHandler "badgehub/internal/badge/handler"
	badgeMetrics "badgehub/internal/badge/metrics"
	badgeService "badgehub/internal/badge/service"
	badgeStore "badgehub/internal/badge/store"
	checkinHandler "badgehub/internal/checkin/handler"
	checkinMetrics "badgehub/internal/checkin/metrics"
	checkinService "badgehub/internal/checkin/service"
	checkinStore "badgehub/internal/checkin/store"
	"badgehub/internal/directory"
	dirStore "badgehub/internal/directory/store"
	jwttoken "badgehub/internal/jwt_token"
	"badgehub/internal/outbox"
	"badgehub/internal/outbox/kafka"
	outboxMetrics "badgehub/internal/outbox/metrics"
	outboxStore "badgehub/internal/outbox/store"
	"badgehub/internal/platform/config"
	"badgehub/internal/platform/httpserver"
	"badgehub/internal/platform/postgres"
	"badgehub/internal/platform/redis"
	"badgehub/internal/platform/tracing"
	"badgehub/internal/ranking/cache"
	rankingHandler "badgehub/internal/ranking/handler"
	rankingMetrics "badgehub/internal/ranking/metrics"
	rankingService "badgehub/internal/ranking/service"
	rankingStore "badgehub/internal/ranking/store"
	httptransport "badgehub/internal/transport/http"
	"badgehub/pkg/platform/middleware/request"
	"badgehub/pkg/platform/tx"
)

const shutdownTimeout = 10 * time.Second

type metricSet struct {
	http    *request.Metrics
	badge   *badgeMetrics.Metrics
	checkin *checkinMetrics.Metrics
	award   *awardMetrics.Metrics
	ranking *rankingMetrics.Metrics
	outbox  *outboxMetrics.Metrics
}

// Collectors register with the default Prometheus registry, which rejects
// duplicates, so every App in the process shares one set.
var sharedMetrics = sync.OnceValue(func() *metricSet {
	return &metricSet{
		http:    request.NewMetrics(),
		badge:   badgeMetrics.New(),
		checkin: checkinMetrics.New(),
		award:   awardMetrics.New(),
		ranking: rankingMetrics.New(),
		outbox:  outboxMetrics.New(),
	}
})

// App holds the assembled process.
type App struct {
	cfg       config.Server
	logger    *slog.Logger
	router    http.Handler
	badges    *badgeService.Service
	relay     *outbox.Relay
	publisher *kafka.Publisher
	db        *sql.DB
	redis     *redis.Client
	memDir    *dirStore.InMemory
	tracing   tracing.Shutdown
}

type badgeStorage interface {
	badgeService.Store
	checkinService.BadgeReader
}

type checkinStorage interface {
	checkinService.Store
	badgeService.CheckinRemover
	awardService.ActivitySource
}

// storage is the set of persistence adapters for one backend.
type storage struct {
	badges      badgeStorage
	checkins    checkinStorage
	awards      awardService.Store
	ranking     rankingService.Store
	outbox      outbox.Store
	users       directory.UserReader
	events      directory.EventReader
	enrollments directory.EnrollmentReader
	tx          tx.Runner
}

// Build connects to the configured backends and wires every component.
// Without DATABASE_URL all state lives in memory.
func Build(ctx context.Context, cfg config.Server, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}
	m := sharedMetrics()

	shutdown, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	a.tracing = shutdown

	st, err := a.openStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.redis, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}

	badges := badgeService.New(badgeService.Deps{
		Badges:      st.badges,
		Artifacts:   artifact.NewFileStore(cfg.Badge.QRDir, cfg.Badge.QRBaseURL),
		Checkins:    st.checkins,
		Enrollments: st.enrollments,
		Events:      st.events,
		Users:       st.users,
		Outbox:      st.outbox,
		Tx:          st.tx,
	}, badgeService.WithLogger(logger), badgeService.WithMetrics(m.badge))
	a.badges = badges

	awards := awardService.New(awardService.Deps{
		Awards:      st.awards,
		Activity:    st.checkins,
		Enrollments: st.enrollments,
		Outbox:      st.outbox,
		Tx:          st.tx,
	}, awardService.WithLogger(logger), awardService.WithMetrics(m.award))

	checkins := checkinService.New(checkinService.Deps{
		Badges:      st.badges,
		Checkins:    st.checkins,
		Enrollments: st.enrollments,
		Events:      st.events,
		Outbox:      st.outbox,
		Tx:          st.tx,
	},
		checkinService.WithLogger(logger),
		checkinService.WithMetrics(m.checkin),
		checkinService.WithAwardEvaluator(awards),
		checkinService.WithSuppressionWindow(cfg.Checkin.SuppressionWindow),
		checkinService.WithOpensBefore(cfg.Checkin.OpensBefore),
	)

	rankingOpts := []rankingService.Option{
		rankingService.WithLogger(logger),
		rankingService.WithMetrics(m.ranking),
	}
	if a.redis != nil {
		rankingOpts = append(rankingOpts, rankingService.WithCache(cache.NewRedis(a.redis.Client, cache.WithTTL(cfg.Ranking.CacheTTL))))
	}
	rankings := rankingService.New(st.ranking, st.events, rankingOpts...)

	if len(cfg.Kafka.Brokers) > 0 {
		a.publisher, err = kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := a.publisher.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			logger.WarnContext(ctx, "outbox topic not ensured", "topic", cfg.Kafka.Topic, "error", err)
		}
		a.relay = outbox.NewRelay(st.outbox, a.publisher,
			outbox.WithLogger(logger),
			outbox.WithMetrics(m.outbox),
			outbox.WithInterval(cfg.Outbox.PollInterval),
			outbox.WithBatchSize(cfg.Outbox.BatchSize),
		)
	}

	a.router = httptransport.NewRouter(httptransport.Config{
		Tokens:    jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer),
		Logger:    logger,
		Metrics:   m.http,
		QRDir:     cfg.Badge.QRDir,
		QRBaseURL: cfg.Badge.QRBaseURL,
		Ready:     a.ready,
	}, httptransport.Handlers{
		Badges:   badgeHandler.New(badges, logger),
		Checkins: checkinHandler.New(checkins, logger),
		Awards:   awardHandler.New(awards, logger),
		Rankings: rankingHandler.New(rankings, logger),
	})
	return a, nil
}

func (a *App) openStorage(ctx context.Context) (*storage, error) {
	if a.cfg.InMemory() {
		a.logger.InfoContext(ctx, "DATABASE_URL not set, using in-memory storage")
		dir := dirStore.NewInMemory()
		a.memDir = dir
		badges := badgeStore.NewInMemory()
		dir.UseBadgeChecker(badges)
		checkins := checkinStore.NewInMemory()
		awards := awardStore.NewInMemory()
		return &storage{
			badges:   badges,
			checkins: checkins,
			awards:   awards,
			ranking: rankingStore.NewInMemory(rankingStore.Sources{
				Checkins:    checkins,
				Badges:      badges,
				Grants:      awards,
				Users:       dir.Users(),
				Events:      dir.Events(),
				Enrollments: dir.Enrollments(),
			}),
			outbox:      outboxStore.NewInMemory(),
			users:       dir.Users(),
			events:      dir.Events(),
			enrollments: dir.Enrollments(),
			tx:          tx.NewSharded(),
		}, nil
	}

	db, err := postgres.Open(ctx, a.cfg.DatabaseURL, postgres.Options{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	a.db = db
	dir := dirStore.NewPostgres(db)
	return &storage{
		badges:      badgeStore.NewPostgres(db),
		checkins:    checkinStore.NewPostgres(db),
		awards:      awardStore.NewPostgres(db),
		ranking:     rankingStore.NewPostgres(db),
		outbox:      outboxStore.NewPostgres(db),
		users:       dir.Users(),
		events:      dir.Events(),
		enrollments: dir.Enrollments(),
		tx:          tx.NewPostgres(db, 0),
	}, nil
}

// Handler returns the HTTP router.
func (a *App) Handler() http.Handler {
	return a.router
}

// Directory returns the in-memory directory so local runs can seed users,
// events and enrollments. It is nil when PostgreSQL backs the directory.
func (a *App) Directory() *dirStore.InMemory {
	return a.memDir
}

func (a *App) ready(ctx context.Context) error {
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Run serves HTTP and runs the outbox relay and backfill schedule until ctx
// is cancelled, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.cfg.Badge.BackfillCron != "" {
		scheduler, err := a.badges.ScheduleBackfill(ctx, a.cfg.Badge.BackfillCron)
		if err != nil {
			a.Close()
			return err
		}
		scheduler.Start()
		g.Go(func() error {
			<-ctx.Done()
			<-scheduler.Stop().Done()
			return nil
		})
	}

	srv := httpserver.New(a.cfg.Addr, a.router)
	g.Go(func() error {
		a.logger.InfoContext(ctx, "starting badgehub", "addr", a.cfg.Addr, "in_memory", a.cfg.InMemory())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if a.relay != nil {
		g.Go(func() error {
			if err := a.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		a.logger.WarnContext(ctx, "KAFKA_BROKERS not set, outbox entries will not be published")
	}

	err := g.Wait()
	a.Close()
	return err
}

// Close releases backend connections.
func (a *App) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.tracing(ctx); err != nil {
			a.logger.Warn("failed to flush traces", "error", err)
		}
	}
}
