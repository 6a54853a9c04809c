// Package app coordinates the catalog, persistence, images and quote
// sessions behind one lock.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/data-power-io/partsquote/internal/catalog"
	"github.com/data-power-io/partsquote/internal/diagram"
	"github.com/data-power-io/partsquote/internal/money"
	"github.com/data-power-io/partsquote/internal/quote"
	"github.com/data-power-io/partsquote/internal/session"
	"github.com/data-power-io/partsquote/internal/store"
)

// Options tunes a Coordinator.
type Options struct {
	// VATRate is applied to quote subtotals. Zero disables VAT.
	VATRate decimal.Decimal
	// Money formats prices in marker tooltips.
	Money *money.Formatter
	// Now replaces time.Now.
	Now func() time.Time
}

// Coordinator owns the persisted record. Catalog reads take a read lock,
// every mutation takes the write lock and is saved before it is released.
type Coordinator struct {
	mu       sync.RWMutex
	record   *store.Record
	registry *catalog.Registry

	docs     store.DocumentStore
	images   store.ImageStore
	sessions *session.Manager
	renderer *diagram.Renderer

	vatRate decimal.Decimal
	now     func() time.Time
	logger  *zap.Logger
}

// New creates a coordinator holding an empty record. Call Load to read the
// persisted one.
func New(docs store.DocumentStore, images store.ImageStore, sessions *session.Manager, opts Options, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if images == nil {
		images = store.DataURLStore{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Coordinator{
		docs:     docs,
		images:   images,
		sessions: sessions,
		renderer: diagram.NewRenderer(opts.Money),
		vatRate:  opts.VATRate,
		now:      opts.Now,
		logger:   logger,
	}
	c.setRecord(store.NewRecord())
	return c
}

func (c *Coordinator) setRecord(r *store.Record) {
	c.record = r
	c.registry = catalog.NewRegistry(&r.Catalog, c.logger)
}

// Load replaces the in-memory record with the persisted one, if any.
func (c *Coordinator) Load(ctx context.Context) error {
	r, err := c.docs.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load record from %s: %w", c.docs.Name(), err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if r == nil {
		c.logger.Info("No saved record, starting empty", zap.String("store", c.docs.Name()))
		c.setRecord(store.NewRecord())
		return nil
	}
	c.setRecord(r)
	stats := r.Stats()
	c.logger.Info("Record loaded",
		zap.String("store", c.docs.Name()),
		zap.Int("brands", stats.Brands),
		zap.Int("models", stats.Models),
		zap.Int("parts", stats.Parts))
	return nil
}

// persist saves the record. The caller holds the write lock. Failures are
// logged and never surface to the caller.
func (c *Coordinator) persist(ctx context.Context) {
	if err := c.docs.Save(ctx, c.record); err != nil {
		c.logger.Error("Failed to save record", zap.String("store", c.docs.Name()), zap.Error(err))
	}
}

// Snapshot returns a copy of the current record.
func (c *Coordinator) Snapshot() (*store.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.record.Clone()
}

// Stats counts brands, models, diagrams, part catalogs and parts.
func (c *Coordinator) Stats() catalog.Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.record.Stats()
}

// Settings are the shop-wide quote settings.
type Settings struct {
	LaborRate    int64              `json:"laborRate"`
	ShopInfo     quote.ShopInfo     `json:"shopInfo"`
	CustomerInfo quote.CustomerInfo `json:"customerInfo"`
	VATRate      string             `json:"vatRate"`
}

// Settings returns the current settings.
func (c *Coordinator) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Settings{
		LaborRate:    c.record.LaborRate,
		ShopInfo:     c.record.ShopInfo,
		CustomerInfo: c.record.CustomerInfo,
		VATRate:      c.vatRate.String(),
	}
}

// SetLaborRate changes the hourly labor rate. Outstanding selections keep
// their hours and are re-priced on their next totals call.
func (c *Coordinator) SetLaborRate(ctx context.Context, rate int64) error {
	if rate <= 0 {
		return fmt.Errorf("%w: labor rate must be positive", catalog.ErrInvalidPart)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.record.LaborRate = rate
	c.persist(ctx)
	c.logger.Info("Labor rate changed", zap.Int64("labor_rate", rate))
	return nil
}

// SetShopInfo replaces the shop details printed on quotes.
func (c *Coordinator) SetShopInfo(ctx context.Context, info quote.ShopInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.record.ShopInfo = info
	c.persist(ctx)
}

// SetCustomerInfo replaces the vehicle details printed on quotes.
func (c *Coordinator) SetCustomerInfo(ctx context.Context, info quote.CustomerInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.record.CustomerInfo = info
	c.persist(ctx)
}

// Sessions exposes the session manager.
func (c *Coordinator) Sessions() *session.Manager {
	return c.sessions
}
