package mailer

import (
	"context"
	"errors"
	"sync"
	"time"

	"lynixmail/internal/models"
)

// ErrNotConfigured means SMTP host or username is missing at send time.
// Fatal to that one send attempt, never to the process.
var ErrNotConfigured = errors.New("smtp host and username are not configured")

const transportTTL = 5 * time.Minute

// Cache owns the process-wide SMTP transport. The transport is rebuilt
// lazily from current settings on first use, after the TTL elapses, or after
// Invalidate. The cache is the only shared mutable state between trigger
// invocations.
type Cache struct {
	settings *Settings

	// injectable for tests
	build func(cfg *models.SMTPConfig) Transport
	now   func() time.Time

	mu        sync.Mutex
	transport Transport
	builtAt   time.Time
}

func NewCache(settings *Settings) *Cache {
	return &Cache{
		settings: settings,
		build:    NewSMTPTransport,
		now:      time.Now,
	}
}

// Transporter returns the cached transport when it is younger than the TTL,
// otherwise rebuilds it from the current settings.
func (c *Cache) Transporter(ctx context.Context) (Transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.transport != nil && c.now().Sub(c.builtAt) < transportTTL {
		return c.transport, nil
	}

	cfg := c.settings.SMTPConfig(ctx)
	if cfg.Host == "" || cfg.Username == "" {
		return nil, ErrNotConfigured
	}

	c.transport = c.build(&cfg)
	c.builtAt = c.now()

	return c.transport, nil
}

// Invalidate drops the cached transport so the next Transporter call
// rebuilds from current settings. Called whenever SMTP settings change.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transport = nil
	c.builtAt = time.Time{}
}
