package fitAuth

import (
	"errors"
	"time"

	"github.com/fitlife/fitAuth/audit"
	"github.com/fitlife/fitAuth/demo"
	"github.com/fitlife/fitAuth/localauth"
	"github.com/fitlife/fitAuth/password"
	"github.com/fitlife/fitAuth/remote"
	"github.com/fitlife/fitAuth/session"
	"github.com/fitlife/fitAuth/storage"
	"github.com/fitlife/fitAuth/token"
	"go.uber.org/zap"
)

// Builder wires an Engine. Every collaborator is optional: stores default to
// in-process memory, the remote service to an HTTP client for
// Config.Remote.BaseURL, and the logger to a no-op logger.
type Builder struct {
	config Config

	remote    remote.Service
	remoteSet bool
	durable   storage.Store
	tab       storage.Store
	log       *zap.Logger
	probe     audit.EnvironmentProbe
	auditSink audit.Sink
	hasher    password.Hasher
	seeds     []localauth.Seed
	seedsSet  bool
	now       func() time.Time

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRemote sets the remote auth service. A nil service disables remote
// calls regardless of Config.Remote.
func (b *Builder) WithRemote(svc remote.Service) *Builder {
	b.remote = svc
	b.remoteSet = true
	return b
}

// WithDurableStore sets the store that outlives the tab: tokens, the demo
// usage record, audit logs, offline registrations and remembered credentials.
func (b *Builder) WithDurableStore(s storage.Store) *Builder {
	b.durable = s
	return b
}

// WithTabStore sets the tab-lifetime store holding the session id and the
// local session snapshot.
func (b *Builder) WithTabStore(s storage.Store) *Builder {
	b.tab = s
	return b
}

func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.log = log
	return b
}

// WithProbe sets the environment probe used to annotate audit records.
func (b *Builder) WithProbe(p audit.EnvironmentProbe) *Builder {
	b.probe = p
	return b
}

// WithAuditSink receives every activity record when Config.Audit.Async is set.
func (b *Builder) WithAuditSink(sink audit.Sink) *Builder {
	b.auditSink = sink
	return b
}

// WithHasher replaces the argon2 hasher built from Config.Password.Hash.
func (b *Builder) WithHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

// WithSeeds replaces the built-in local accounts.
func (b *Builder) WithSeeds(seeds []localauth.Seed) *Builder {
	b.seeds = seeds
	b.seedsSet = true
	return b
}

func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and returns the Engine. A Builder can be
// used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	log := b.log
	if log == nil {
		log = zap.NewNop()
	}
	durable := b.durable
	if durable == nil {
		durable = storage.NewMemory()
	}
	tab := b.tab
	if tab == nil {
		tab = storage.NewMemory()
	}

	// -------- REMOTE --------
	svc := b.remote
	if !b.remoteSet && cfg.Remote.Enabled {
		svc = remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout)
	}

	// -------- LOCAL TABLE --------
	hasher := b.hasher
	if hasher == nil {
		h, err := password.NewArgon2(cfg.Password.Hash)
		if err != nil {
			return nil, err
		}
		hasher = h
	}
	seeds := localauth.DefaultSeeds()
	if b.seedsSet {
		seeds = b.seeds
	}
	table, err := localauth.NewTable(durable, hasher, seeds, now)
	if err != nil {
		return nil, err
	}

	// -------- SESSION, TOKENS --------
	sessions := session.NewStore(tab, now)
	tokens := token.NewManager(durable, now)

	// -------- DEMO GOVERNOR --------
	governor := demo.NewGovernor(
		demo.Config{
			Email:         cfg.Demo.Email,
			Window:        cfg.Demo.Window,
			WarnAfter:     cfg.Demo.WarnAfter,
			WarnAfterUses: cfg.Demo.WarnAfterUses,
		},
		demo.NewStoreRepository(durable),
		sessions.TabID,
		now,
		log.Named("demo"),
	)

	// -------- AUDIT --------
	auditLogger := audit.NewLogger(
		audit.Config{
			MaxActivities: cfg.Audit.MaxActivities,
			MaxLogins:     cfg.Audit.MaxLogins,
			Dispatch: audit.DispatchConfig{
				Enabled:    cfg.Audit.Async,
				BufferSize: cfg.Audit.BufferSize,
				DropIfFull: cfg.Audit.DropIfFull,
			},
		},
		audit.Deps{
			Repository: audit.NewStoreRepository(durable),
			Probe:      b.probe,
			SessionID:  sessions.TabID,
			Now:        now,
			Sink:       b.auditSink,
			Log:        log.Named("audit"),
		},
	)

	b.built = true

	return &Engine{
		config:   cfg,
		remote:   svc,
		tokens:   tokens,
		sessions: sessions,
		table:    table,
		demo:     governor,
		audit:    auditLogger,
		metrics:  NewMetrics(cfg.Metrics),
		durable:  durable,
		log:      log,
		now:      now,
	}, nil
}
