// Package loader retrieves company records under whichever naming
// convention the deployed table uses, keeps the admin view's in-memory
// cache and tracks per-visitor pagination for the public search.
package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/gartstein/empresas/internal/empresas/db"
	"github.com/gartstein/empresas/internal/empresas/models"
	"github.com/gartstein/empresas/internal/empresas/schema"
	"go.uber.org/zap"
)

const (
	// LoadAllCap bounds the unpaginated admin fetch.
	LoadAllCap = 5000
	// PageSize is the public search window.
	PageSize = 200
)

// CompanyStore is the read side of the companies table.
type CompanyStore interface {
	SelectCompanies(ctx context.Context, q db.Query) (*db.Page, error)
}

// Page is one window of search results.
type Page struct {
	Term  string
	Page  int
	Rows  []models.Company
	Total *int64
}

// Loader fetches companies and fixes the naming convention on first
// success.
type Loader struct {
	store    CompanyStore
	resolver *schema.Resolver
	cache    *Cache
	logger   *zap.Logger
}

// NewLoader constructs a Loader sharing resolver with the write side.
func NewLoader(store CompanyStore, resolver *schema.Resolver, logger *zap.Logger) *Loader {
	return &Loader{
		store:    store,
		resolver: resolver,
		cache:    &Cache{},
		logger:   logger.Named("loader"),
	}
}

// Cache is the admin view's row cache.
func (l *Loader) Cache() *Cache {
	return l.cache
}

// LoadAll fetches up to LoadAllCap rows, unordered, detects the naming
// convention from the first row and replaces the cache. On error the
// cache is cleared.
func (l *Loader) LoadAll(ctx context.Context) ([]models.Company, error) {
	page, err := l.store.SelectCompanies(ctx, db.Query{Limit: LoadAllCap})
	if err != nil {
		l.cache.Clear()
		l.logger.Error("failed to load companies", zap.Error(err))
		return nil, fmt.Errorf("failed to load companies: %w", err)
	}

	conv := l.resolver.Active()
	if len(page.Rows) > 0 {
		conv = schema.Detect(page.Rows[0])
		l.resolver.Set(conv)
	}

	rows := conv.DecodeAll(page.Rows)
	l.cache.Replace(rows)
	l.logger.Info("companies loaded",
		zap.Int("rows", len(rows)),
		zap.Stringer("convention", conv),
	)
	return rows, nil
}

// Search returns one page of companies ordered by name, filtered to names
// containing term (ignoring case), with the exact total. While no
// convention is fixed, each candidate name column is tried in turn and the
// first that succeeds is fixed; if all fail, the last error is returned.
func (l *Loader) Search(ctx context.Context, term string, page int) (*Page, error) {
	term = strings.TrimSpace(term)
	if page < 0 {
		page = 0
	}

	if conv, ok := l.resolver.Get(); ok {
		result, err := l.searchWith(ctx, conv, term, page)
		if err != nil {
			l.logger.Error("search failed", zap.Error(err), zap.String("term", term))
			return nil, fmt.Errorf("failed to search companies: %w", err)
		}
		return result, nil
	}

	var lastErr error
	for _, conv := range schema.Candidates() {
		result, err := l.searchWith(ctx, conv, term, page)
		if err != nil {
			l.logger.Debug("name column probe failed",
				zap.Error(err),
				zap.String("column", conv.NameColumn()),
			)
			lastErr = err
			continue
		}
		l.resolver.Set(conv)
		l.logger.Info("naming convention detected", zap.Stringer("convention", conv))
		return result, nil
	}

	l.logger.Error("search failed for every naming convention", zap.Error(lastErr))
	return nil, fmt.Errorf("failed to search companies: %w", lastErr)
}

func (l *Loader) searchWith(ctx context.Context, conv schema.Convention, term string, page int) (*Page, error) {
	col := conv.NameColumn()
	result, err := l.store.SelectCompanies(ctx, db.Query{
		OrderBy:      col,
		SearchColumn: col,
		Term:         term,
		Offset:       page * PageSize,
		Limit:        PageSize,
		Count:        true,
	})
	if err != nil {
		return nil, err
	}
	return &Page{
		Term:  term,
		Page:  page,
		Rows:  conv.DecodeAll(result.Rows),
		Total: result.Total,
	}, nil
}

// NewSearch starts a new search on the pager and fetches its first page.
// A result superseded by a newer request on the same pager is discarded
// with ErrStaleRequest.
func (l *Loader) NewSearch(ctx context.Context, p *Pager, term string) (*Page, error) {
	return l.run(ctx, p, p.Begin(term))
}

// LoadMore fetches the next page for the pager's current term. It returns
// an empty page when nothing is left to load.
func (l *Loader) LoadMore(ctx context.Context, p *Pager) (*Page, error) {
	ticket, ok := p.Next()
	if !ok {
		state := p.State()
		return &Page{Term: state.Term, Page: state.Page, Total: state.Total}, nil
	}
	return l.run(ctx, p, ticket)
}

func (l *Loader) run(ctx context.Context, p *Pager, ticket Ticket) (*Page, error) {
	page, err := l.Search(ctx, ticket.Term, ticket.Page)
	if err != nil {
		p.Fail(ticket)
		return nil, err
	}
	if err := p.Commit(ticket, page); err != nil {
		return nil, err
	}
	return page, nil
}
