package store

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/data-power-io/partsquote/libs/metrics"
)

// FallbackStore prefers a cloud store and falls back to a local one.
//
// Save writes to the cloud store and only writes locally when that fails.
// Load reads the cloud store and reads locally when it fails or holds no
// record yet. With a nil cloud store every call goes to the local store.
type FallbackStore struct {
	cloud  DocumentStore
	local  DocumentStore
	logger *zap.Logger
}

// NewFallbackStore combines cloud and local. cloud may be nil.
func NewFallbackStore(cloud, local DocumentStore, logger *zap.Logger) *FallbackStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackStore{cloud: cloud, local: local, logger: logger}
}

func (s *FallbackStore) Name() string {
	if s.cloud == nil {
		return s.local.Name()
	}
	return s.cloud.Name() + "+" + s.local.Name()
}

func (s *FallbackStore) Load(ctx context.Context) (*Record, error) {
	if s.cloud != nil {
		r, err := timedLoad(ctx, s.cloud)
		switch {
		case err != nil:
			s.logger.Warn("Cloud load failed, using local store", zap.String("store", s.cloud.Name()), zap.Error(err))
			metrics.RecordFallback("load")
		case r == nil:
			s.logger.Info("No cloud document yet, using local store", zap.String("store", s.cloud.Name()))
		default:
			return r, nil
		}
	}
	return timedLoad(ctx, s.local)
}

func (s *FallbackStore) Save(ctx context.Context, r *Record) error {
	if s.cloud != nil {
		err := timedSave(ctx, s.cloud, r)
		if err == nil {
			return nil
		}
		s.logger.Warn("Cloud save failed, writing local store", zap.String("store", s.cloud.Name()), zap.Error(err))
		metrics.RecordFallback("save")
	}
	return timedSave(ctx, s.local, r)
}

func (s *FallbackStore) Close() error {
	var errs []error
	if s.cloud != nil {
		errs = append(errs, s.cloud.Close())
	}
	errs = append(errs, s.local.Close())
	return errors.Join(errs...)
}

func timedLoad(ctx context.Context, s DocumentStore) (*Record, error) {
	timer := metrics.NewTimer()
	r, err := s.Load(ctx)
	metrics.RecordStoreCall(s.Name(), "load", err, timer.Duration())
	return r, err
}

func timedSave(ctx context.Context, s DocumentStore, r *Record) error {
	timer := metrics.NewTimer()
	err := s.Save(ctx, r)
	metrics.RecordStoreCall(s.Name(), "save", err, timer.Duration())
	return err
}
