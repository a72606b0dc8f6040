package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/learnlens/internal/analytics"
	"github.com/felixgeelhaar/learnlens/internal/backend"
	"github.com/felixgeelhaar/learnlens/internal/config"
	"github.com/felixgeelhaar/learnlens/internal/domain"
	"github.com/felixgeelhaar/learnlens/internal/progress"
	"github.com/felixgeelhaar/learnlens/internal/queue"
	"github.com/felixgeelhaar/learnlens/internal/storage/local"
	"github.com/felixgeelhaar/learnlens/internal/storage/postgres"
	"github.com/felixgeelhaar/learnlens/internal/storage/sqlite"
)

// Runtime is the progress service together with the stores and queue
// behind it.
type Runtime struct {
	Service *progress.Service
	Events  *domain.EventDispatcher
	Counter *EventCounter

	driver   string
	consumer *queue.Consumer
	closers  []func() error
	logger   *slog.Logger
}

// storage is one configured set of repositories
type storage struct {
	courses  domain.CourseRepository
	progress domain.ProgressRepository
	// writer is nil for read-only course sources
	writer domain.CourseWriter
	// events is nil when the driver keeps no event log
	events  queue.EventStore
	closers []func() error
}

// NewRuntime opens the configured storage, seeds it when empty and wires the
// event path. dir is the learnlens home directory used for default paths.
func NewRuntime(ctx context.Context, cfg *config.LocalConfig, dir string, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := openStorage(ctx, cfg, dir, logger)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Events:  domain.NewEventDispatcher(),
		Counter: NewEventCounter(),
		driver:  cfg.Storage.Driver,
		closers: st.closers,
		logger:  logger,
	}
	rt.Events.SubscribeAll(rt.Counter.Record)

	if err := seedIfEmpty(ctx, st, cfg.Storage.SeedFile, logger); err != nil {
		rt.Close()
		return nil, err
	}

	sinks := progress.MultiSink{progress.EventSinkFunc(func(_ context.Context, e domain.ProgressEvent) error {
		rt.Events.Publish(e)
		return nil
	})}

	if cfg.Queue.Enabled {
		conn, err := queue.NewConnection(cfg.Queue.URL)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect queue: %w", err)
		}
		rt.closers = append(rt.closers, conn.Close)
		sinks = append(sinks, queue.NewProducer(conn))

		if st.events != nil {
			rt.consumer = queue.NewConsumer(conn, queue.StoreHandler(st.events), queue.ConsumerConfig{
				Workers: cfg.Queue.Workers,
			})
		}
	} else if st.events != nil {
		sinks = append(sinks, st.events)
	}

	analyzer := analytics.NewAnalyzer(
		analytics.WithWeakThreshold(cfg.Analytics.WeakThreshold),
		analytics.WithRecentLimit(cfg.Analytics.RecentLimit),
	)
	rt.Service = progress.NewService(st.courses, st.progress,
		progress.WithAnalyzer(analyzer),
		progress.WithEventSink(sinks),
		progress.WithLogger(logger),
	)

	return rt, nil
}

// Start launches the queue consumer when one is configured
func (rt *Runtime) Start(ctx context.Context) error {
	if rt.consumer == nil {
		return nil
	}
	return rt.consumer.Start(ctx)
}

// Driver names the storage driver in use
func (rt *Runtime) Driver() string {
	return rt.driver
}

// QueueEnabled reports whether events go through the queue
func (rt *Runtime) QueueEnabled() bool {
	return rt.consumer != nil
}

// Close stops the consumer and releases storage in reverse open order
func (rt *Runtime) Close() error {
	if rt.consumer != nil {
		rt.consumer.Stop()
	}
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func openStorage(ctx context.Context, cfg *config.LocalConfig, dir string, logger *slog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageLocal:
		store, err := local.NewStore(cfg.DataPath(dir))
		if err != nil {
			return nil, fmt.Errorf("open local store: %w", err)
		}
		courses := local.NewCourseRepository(store)
		return &storage{
			courses:  courses,
			progress: local.NewProgressRepository(store),
			writer:   courses,
		}, nil

	case config.StorageSQLite:
		db, err := sqlite.Open(cfg.DataPath(dir))
		if err != nil {
			return nil, err
		}
		db = db.WithLogger(logger)
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		courses := sqlite.NewCourseStore(db)
		return &storage{
			courses:  courses,
			progress: sqlite.NewProgressStore(db),
			writer:   courses,
			events:   sqlite.NewEventStore(db),
			closers:  []func() error{db.Close},
		}, nil

	case config.StoragePostgres:
		pool, err := postgres.Connect(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		eventLog, err := postgres.OpenEventLog(cfg.Storage.DatabaseURL)
		if err != nil {
			pool.Close()
			return nil, err
		}
		courses := postgres.NewCourseRepository(pool)
		return &storage{
			courses:  courses,
			progress: postgres.NewProgressRepository(pool),
			writer:   courses,
			events:   eventLog,
			closers: []func() error{
				func() error { pool.Close(); return nil },
				eventLog.Close,
			},
		}, nil

	case config.StorageBackend:
		client, err := backend.NewClient(backend.Config{
			BaseURL:    cfg.Backend.BaseURL,
			ProjectID:  cfg.Backend.ProjectID,
			PublicKey:  cfg.Backend.PublicKey,
			Timeout:    time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
			Resilience: backend.DefaultResilienceConfig(),
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create backend client: %w", err)
		}
		return &storage{
			courses:  backend.NewCourseRepository(client, cfg.Backend.CourseTable),
			progress: backend.NewProgressRepository(client, cfg.Backend.ProgressTable),
			closers:  []func() error{client.Close},
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// seedIfEmpty loads the course catalog file into a writable store that has
// no courses yet.
func seedIfEmpty(ctx context.Context, st *storage, seedFile string, logger *slog.Logger) error {
	if seedFile == "" || st.writer == nil {
		return nil
	}
	existing, err := st.courses.List(ctx)
	if err != nil {
		return fmt.Errorf("list courses: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	n, err := local.SeedCourses(ctx, st.writer, seedFile)
	if err != nil {
		return fmt.Errorf("seed courses: %w", err)
	}
	logger.Info("seeded course catalog", "file", seedFile, "courses", n)
	return nil
}

// EventCounter tallies progress events by type
type EventCounter struct {
	mu     sync.Mutex
	counts map[domain.EventType]int
	last   time.Time
}

// NewEventCounter creates an empty counter
func NewEventCounter() *EventCounter {
	return &EventCounter{counts: make(map[domain.EventType]int)}
}

// Record counts one event
func (c *EventCounter) Record(e domain.ProgressEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[e.Type]++
	if e.Timestamp.After(c.last) {
		c.last = e.Timestamp
	}
}

// Snapshot returns a copy of the counts and the latest event time
func (c *EventCounter) Snapshot() (map[domain.EventType]int, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[domain.EventType]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out, c.last
}
