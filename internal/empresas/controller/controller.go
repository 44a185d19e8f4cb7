// Package controller implements the destructive operations on the
// companies table: bulk replace from a parsed spreadsheet and clear-all.
// Both run under one lock and report an audit event.
package controller

import (
	"context"
	"fmt"
	"sync"

	e "github.com/gartstein/empresas/internal/empresas/errors"
	"github.com/gartstein/empresas/internal/empresas/events"
	"github.com/gartstein/empresas/internal/empresas/loader"
	"github.com/gartstein/empresas/internal/empresas/models"
	"github.com/gartstein/empresas/internal/empresas/schema"
	"go.uber.org/zap"
)

// BatchSize is the number of rows per insert statement.
const BatchSize = 500

type EventProducer interface {
	Produce(event events.Event)
}

// Repository is the write side of the companies table.
type Repository interface {
	InsertCompanies(ctx context.Context, rows []map[string]interface{}) error
	DeleteCompaniesWhereNotNull(ctx context.Context, column string) (int64, error)
}

// ReplaceResult summarizes a completed bulk replace.
type ReplaceResult struct {
	Deleted    int64
	Inserted   int
	Convention schema.Convention
	// ReloadErr is set when the records were written but reading them back
	// into the cache failed.
	ReloadErr error
}

// CompanyService runs bulk replace and clear-all against the repository,
// keeping the loader's cache and the naming convention in step.
type CompanyService struct {
	repo     Repository
	loader   *loader.Loader
	resolver *schema.Resolver
	producer EventProducer
	table    string
	mu       sync.Mutex
	logger   *zap.Logger
}

// NewCompanyService constructs a CompanyService. table is only used to label
// audit events.
func NewCompanyService(repo Repository, l *loader.Loader, resolver *schema.Resolver,
	producer EventProducer, table string, logger *zap.Logger) *CompanyService {
	return &CompanyService{
		repo:     repo,
		loader:   l,
		resolver: resolver,
		producer: producer,
		table:    table,
		logger:   logger.Named("company_service"),
	}
}

// ReplaceAll deletes every record and inserts rows in batches. Rows are
// written with the lowercase columns first; if any batch fails, the whole
// set is written again with the uppercase columns. Batches that made it in
// before a failure are not rolled back.
func (s *CompanyService) ReplaceAll(ctx context.Context, rows []models.Company, actor string) (*ReplaceResult, error) {
	valid := make([]models.Company, 0, len(rows))
	for _, r := range rows {
		if r.Nombre != "" {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return nil, e.ErrNoValidRows
	}

	if !s.mu.TryLock() {
		return nil, e.ErrBusy
	}
	defer s.mu.Unlock()

	deleted, err := s.clearAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", e.ErrClearFailed, err)
	}

	conv := schema.Lower
	if err := s.insertAll(ctx, conv, valid); err != nil {
		s.logger.Warn("insert with lowercase columns failed, retrying with uppercase",
			zap.Error(err),
			zap.Int("rows", len(valid)),
		)
		conv = schema.Upper
		if err := s.insertAll(ctx, conv, valid); err != nil {
			s.loader.Cache().Invalidate()
			return nil, fmt.Errorf("%w: %w", e.ErrInsertFailed, err)
		}
	}
	s.resolver.Set(conv)

	s.logger.Info("companies replaced",
		zap.Int64("deleted", deleted),
		zap.Int("inserted", len(valid)),
		zap.Stringer("convention", conv),
		zap.String("actor", actor),
	)
	reloadErr := s.reload(ctx)
	s.producer.Produce(events.Event{
		Type:       events.CompaniesReplaced,
		Table:      s.table,
		Actor:      actor,
		Inserted:   len(valid),
		Deleted:    deleted,
		Convention: conv.String(),
	})
	return &ReplaceResult{Deleted: deleted, Inserted: len(valid), Convention: conv, ReloadErr: reloadErr}, nil
}

func (s *CompanyService) insertAll(ctx context.Context, conv schema.Convention, rows []models.Company) error {
	for start := 0; start < len(rows); start += BatchSize {
		end := start + BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.repo.InsertCompanies(ctx, conv.EncodeAll(rows[start:end])); err != nil {
			return fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// ClearAll deletes every record and empties the cache.
func (s *CompanyService) ClearAll(ctx context.Context, actor string) (int64, error) {
	if !s.mu.TryLock() {
		return 0, e.ErrBusy
	}
	defer s.mu.Unlock()

	deleted, err := s.clearAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", e.ErrClearFailed, err)
	}
	s.loader.Cache().Clear()

	s.logger.Info("companies cleared", zap.Int64("deleted", deleted), zap.String("actor", actor))
	s.producer.Produce(events.Event{
		Type:    events.CompaniesCleared,
		Table:   s.table,
		Actor:   actor,
		Deleted: deleted,
	})
	return deleted, nil
}

// clearAll deletes where id is not null, falling back to the lowercase and
// then the uppercase name column for tables without an id.
func (s *CompanyService) clearAll(ctx context.Context) (int64, error) {
	columns := []string{schema.IDColumn, schema.Lower.NameColumn(), schema.Upper.NameColumn()}
	var lastErr error
	for _, col := range columns {
		deleted, err := s.repo.DeleteCompaniesWhereNotNull(ctx, col)
		if err == nil {
			return deleted, nil
		}
		s.logger.Debug("delete attempt failed", zap.String("column", col), zap.Error(err))
		lastErr = err
	}
	return 0, lastErr
}

func (s *CompanyService) reload(ctx context.Context) error {
	if _, err := s.loader.LoadAll(ctx); err != nil {
		s.logger.Warn("failed to reload companies after replace", zap.Error(err))
		return err
	}
	return nil
}
