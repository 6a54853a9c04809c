// Package store persists the catalog record and diagram images.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/data-power-io/partsquote/internal/catalog"
	"github.com/data-power-io/partsquote/internal/quote"
)

// DocumentID is the id of the single persisted record.
const DocumentID = "main"

// Record is the whole persisted application state.
type Record struct {
	catalog.Catalog
	ShopInfo     quote.ShopInfo     `json:"shopInfo"`
	CustomerInfo quote.CustomerInfo `json:"customerInfo"`
	LaborRate    int64              `json:"laborRate"`
}

// NewRecord returns an empty record with the default labor rate.
func NewRecord() *Record {
	r := &Record{}
	r.Normalize()
	return r
}

// Normalize fills in collections and the labor rate missing from older
// documents.
func (r *Record) Normalize() {
	r.Catalog.Normalize()
	if r.LaborRate <= 0 {
		r.LaborRate = quote.DefaultLaborRate
	}
}

// Clone returns a deep copy of r.
func (r *Record) Clone() (*Record, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return DecodeRecord(data)
}

// DecodeRecord parses a stored document and normalizes it.
func DecodeRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	r.Normalize()
	return &r, nil
}

// DocumentStore loads and saves the record.
type DocumentStore interface {
	// Name identifies the store in logs and metrics.
	Name() string
	// Load returns nil, nil when no record has been saved yet.
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, r *Record) error
	Close() error
}
