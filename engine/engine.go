// Package engine wires the schema registry, batch, record and session
// services together over one store and one EventBus.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"batchtrack/batch"
	"batchtrack/config"
	"batchtrack/metrics"
	"batchtrack/record"
	"batchtrack/schema"
	"batchtrack/session"
	"batchtrack/store"

	"golang.org/x/crypto/bcrypt"
)

// LogFunc is the logging callback signature.
type LogFunc func(format string, args ...any)

// ErrBadCredentials is returned by Authenticate for an unknown user or a
// wrong password.
var ErrBadCredentials = errors.New("invalid username or password")

// RowCache is a batch list cache that can be dropped after mutations.
type RowCache interface {
	batch.RowCache
	Invalidate(ctx context.Context) error
}

// EventQueue receives outbound events for publishing.
type EventQueue interface {
	Enqueue(msgType, key string, payload any) error
}

// Engine centralizes the business services.
type Engine struct {
	cfg        *config.Config
	configPath string
	db         *store.DB
	logFn      LogFunc
	debugFn    LogFunc

	registry *schema.Registry
	batches  *batch.Service
	records  *record.Service
	sessions *session.Manager

	metrics *metrics.Recorder
	cache   RowCache
	outbox  EventQueue

	Events *EventBus
}

// Config holds the parameters needed to create an Engine. Metrics, Cache
// and Outbox are optional.
type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	Metrics    *metrics.Recorder
	Cache      RowCache
	Outbox     EventQueue
	LogFunc    LogFunc
	Debug      bool
}

// New creates an Engine. Call Start to build and wire the services.
func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = func(string, ...any) {}
	}
	debugFn := LogFunc(func(string, ...any) {})
	if c.Debug {
		debugFn = logFn
	}
	return &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		logFn:      logFn,
		debugFn:    debugFn,
		metrics:    c.Metrics,
		cache:      c.Cache,
		outbox:     c.Outbox,
		Events:     NewEventBus(),
	}
}

// Start creates the services, wires event handlers and seeds users.
func (e *Engine) Start() error {
	batchEmit := &batchEmitter{bus: e.Events}
	recordEmit := &recordEmitter{bus: e.Events}
	sessionEmit := &sessionEmitter{bus: e.Events}

	e.registry = schema.NewRegistry(e.cfg.Schema.FieldsPath, e.cfg.Schema.DefaultPipeline,
		schema.WithLogger(schema.LogFunc(e.logFn)),
		schema.WithReloadHook(func(degraded bool) {
			e.Events.Emit(Event{Type: EventSchemaReloaded, Payload: SchemaReloadedEvent{Degraded: degraded}})
		}))

	var cache batch.RowCache
	if e.cache != nil {
		cache = e.cache
	}
	e.batches = batch.NewService(e.db, e.registry, e.cfg.Batch, batchEmit, cache)
	e.records = record.NewService(e.db, e.registry, recordEmit)
	e.sessions = session.NewManager(e.db, e.cfg.Session.TTL, e.cfg.Session.MaxPerUser, sessionEmit)

	e.wireEventHandlers()

	if err := e.SeedUsers(e.cfg.Users); err != nil {
		return err
	}

	snap := e.registry.Load()
	if err := snap.Degraded(); err != nil {
		log.Printf("field schema %s: %v", e.registry.Path(), err)
	}
	e.logFn("Engine started: db=%s stages=%d", e.db.Driver(), len(snap.Pipeline()))
	return nil
}

// SeedUsers creates every listed account that does not exist yet.
func (e *Engine) SeedUsers(seeds []config.UserSeed) error {
	for _, u := range seeds {
		if _, err := e.db.GetUserByUsername(u.Username); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("look up user %s: %w", u.Username, err)
		}
		if !store.IsRole(u.Role) {
			return fmt.Errorf("seed user %s: unknown role %q", u.Username, u.Role)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.Username, err)
		}
		if _, err := e.db.CreateUser(u.Username, string(hash), u.Role); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
		e.logFn("seeded user %s (%s)", u.Username, u.Role)
	}
	return nil
}

// Authenticate checks a username and password.
func (e *Engine) Authenticate(username, password string) (*store.User, error) {
	u, err := e.db.GetUserByUsername(username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// Stop shuts the engine down.
func (e *Engine) Stop() {
	e.logFn("Engine stopped")
}

// DB returns the database handle.
func (e *Engine) DB() *store.DB { return e.db }

// AppConfig returns the app config.
func (e *Engine) AppConfig() *config.Config { return e.cfg }

// ConfigPath returns the config file path.
func (e *Engine) ConfigPath() string { return e.configPath }

// Registry returns the field schema registry.
func (e *Engine) Registry() *schema.Registry { return e.registry }

// Batches returns the batch lifecycle service.
func (e *Engine) Batches() *batch.Service { return e.batches }

// Records returns the record service.
func (e *Engine) Records() *record.Service { return e.records }

// Sessions returns the session manager.
func (e *Engine) Sessions() *session.Manager { return e.sessions }

// Metrics returns the metrics recorder, or nil.
func (e *Engine) Metrics() *metrics.Recorder { return e.metrics }

// DebugLog logs only when the engine runs in debug mode.
func (e *Engine) DebugLog(format string, args ...any) { e.debugFn(format, args...) }
