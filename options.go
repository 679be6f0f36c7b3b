package msgdex

import (
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/msgdex/internal/domain"
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	driver   string
	addrs    []string
	username string
	password string
	db       int

	embedder         domain.Embedder
	vectorDimensions int
	hnswM            int
	hnswEFConstruct  int

	vectorWeight  float64
	keywordWeight float64
	noDedup       bool

	readinessTimeout time.Duration
	logger           *zap.Logger
}

// WithValkey connects to a Valkey instance.
func WithValkey(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithRedis connects to a Redis instance.
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithAuth sets the database username and logical database number.
func WithAuth(username string, db int) Option {
	return func(c *clientConfig) {
		c.username = username
		c.db = db
	}
}

// WithEmbedder installs an embedding provider. Without one the vector
// and hybrid modes are unavailable and segments are indexed text-only.
func WithEmbedder(e domain.Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithVectorDimensions overrides the embedding dimensionality used by
// the message index (default 1536).
func WithVectorDimensions(n int) Option {
	return func(c *clientConfig) {
		c.vectorDimensions = n
	}
}

// WithHNSW tunes the vector index graph parameters.
func WithHNSW(m, efConstruct int) Option {
	return func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	}
}

// WithRanking sets the hybrid score fusion weights.
func WithRanking(vectorWeight, keywordWeight float64) Option {
	return func(c *clientConfig) {
		c.vectorWeight = vectorWeight
		c.keywordWeight = keywordWeight
	}
}

// WithoutDeduplication disables content-hash deduplication of hits.
func WithoutDeduplication() Option {
	return func(c *clientConfig) {
		c.noDedup = true
	}
}

// WithReadinessTimeout bounds the initial connection wait.
func WithReadinessTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.readinessTimeout = d
	}
}

// WithLogger installs a logger; default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}
