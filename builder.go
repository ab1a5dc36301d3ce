package goSession

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/logger"
	"github.com/MrEthical07/goSession/storage"
	"github.com/MrEthical07/goSession/transport"
)

// Builder assembles a Manager.
//
// Builder instances are intended to be configured during initialization and then
// discarded; Build may be called once.
type Builder struct {
	config Config

	durable   storage.Store
	ephemeral storage.Store

	client        APIClient
	httpTransport http.RoundTripper
	jar           http.CookieJar

	logger    Logger
	auditSink AuditSink
	reloader  Reloader

	clock func() time.Time

	built bool
}

// New returns a Builder carrying DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets Config.API.BaseURL.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.API.BaseURL = baseURL
	return b
}

// WithDurableStore sets the store holding the session record. It is shared with
// other instances; when it implements storage.Watcher, Build starts cross-instance
// synchronization.
func (b *Builder) WithDurableStore(s storage.Store) *Builder {
	b.durable = s
	return b
}

// WithEphemeralStore sets the per-instance store for the verification record,
// initialization marker and property cache. Defaults to a storage.MemoryStore.
func (b *Builder) WithEphemeralStore(s storage.Store) *Builder {
	b.ephemeral = s
	return b
}

// WithAPIClient replaces the HTTP client built from Config.API.
func (b *Builder) WithAPIClient(c APIClient) *Builder {
	b.client = c
	return b
}

// WithHTTPTransport sets the round tripper beneath the bearer transport.
func (b *Builder) WithHTTPTransport(rt http.RoundTripper) *Builder {
	b.httpTransport = rt
	return b
}

// WithCookieJar sets the jar used for API cookies; Logout expires the configured
// auth cookies in it.
func (b *Builder) WithCookieJar(jar http.CookieJar) *Builder {
	b.jar = jar
	return b
}

func (b *Builder) WithLogger(l Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the audit destination. Only used when Config.Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithReloader sets the hook invoked after every logout.
func (b *Builder) WithReloader(r Reloader) *Builder {
	b.reloader = r
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and returns a Manager in StateUninitialized.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.durable == nil {
		return nil, errors.New("durable store required")
	}
	ephemeral := b.ephemeral
	if ephemeral == nil {
		ephemeral = storage.NewMemoryStore()
	}

	// -------- API CLIENT --------
	client := b.client
	if client == nil {
		if cfg.API.BaseURL == "" {
			return nil, errors.New("API BaseURL or API client required")
		}
		c, err := api.NewClient(cfg.API.BaseURL, api.Options{
			Timeout:   cfg.API.Timeout,
			RateLimit: rate.Limit(cfg.API.RateLimit),
			Burst:     cfg.API.Burst,
			Bearer:    transport.NewBearer(b.httpTransport),
			Jar:       b.jar,
		})
		if err != nil {
			return nil, err
		}
		client = c
	}

	var cookieURL *url.URL
	if cfg.API.BaseURL != "" {
		cookieURL, _ = url.Parse(cfg.API.BaseURL)
	} else if c, ok := client.(interface{ BaseURL() *url.URL }); ok {
		cookieURL = c.BaseURL()
	}

	log := b.logger
	if log == nil {
		log = logger.New(os.Stderr, logger.LevelInfo)
	}

	now := b.clock
	if now == nil {
		now = time.Now
	}

	m := &Manager{
		cfg:       cfg,
		records:   flows.Records{Durable: b.durable, Ephemeral: ephemeral},
		durable:   b.durable,
		client:    client,
		bearer:    client.Bearer(),
		jar:       b.jar,
		cookieURL: cookieURL,
		log:       log,
		reloader:  b.reloader,
		metrics:   NewMetrics(cfg.Metrics),
		now:       now,
		instance:  uuid.NewString(),
		subs:      make(map[uint64]func(Event)),
	}
	if cfg.Audit.Enabled {
		m.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
		m.audit.instance = m.instance
		m.audit.now = now
	}
	m.flows = flows.New(m.flowDeps())

	// -------- CROSS-INSTANCE SYNC --------
	if _, ok := b.durable.(storage.Watcher); ok && !cfg.Sync.Disabled {
		if err := m.StartSync(context.Background()); err != nil {
			m.log.Warnf("goSession: cross-instance sync not started: %v", err)
		}
	}

	b.built = true
	return m, nil
}
