// Package resolver executes query plans against PostgreSQL and shapes the
// rows into API documents.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"OutdoorAPI/internal/apperror"
	"OutdoorAPI/internal/logger"
	"OutdoorAPI/internal/model"
	"OutdoorAPI/internal/plan"

	"github.com/georgysavva/scany/v2/pgxscan"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("outdoorapi/resolver")

// ErrNotFound is returned by Single when no row matches.
var ErrNotFound = errors.New("not found")

// Resolver runs plans built from verified requests.
type Resolver struct {
	registry *model.Registry
	db       Querier
	cache    Cache
}

// New creates a resolver. cache may be nil.
func New(registry *model.Registry, db Querier, cache Cache) *Resolver {
	return &Resolver{registry: registry, db: db, cache: cache}
}

// List returns one page of documents and the total number of matches.
func (r *Resolver) List(ctx context.Context, p *plan.Plan) (*Page, error) {
	ctx, span := tracer.Start(ctx, "resolver.list", trace.WithAttributes(attribute.String("entity", p.Entity)))
	defer span.End()

	key := r.cacheKey("list", p)
	var page Page
	if r.cachedJSON(ctx, key, &page) {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return &page, nil
	}

	e, err := r.entity(p.Entity)
	if err != nil {
		return nil, err
	}

	var (
		docs  []map[string]any
		count int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		docs, err = r.fetch(gctx, e, p, nil, nil)
		return err
	})
	g.Go(func() (err error) {
		count, err = r.count(gctx, e, p)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if docs == nil {
		docs = []map[string]any{}
	}

	page = Page{Count: count, Limit: p.Limit, Offset: p.Offset, Documents: docs}
	r.storeJSON(ctx, key, page)
	return &page, nil
}

// Single returns the first document matching p, or ErrNotFound.
func (r *Resolver) Single(ctx context.Context, p *plan.Plan) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "resolver.single", trace.WithAttributes(attribute.String("entity", p.Entity)))
	defer span.End()

	key := r.cacheKey("single", p)
	var doc map[string]any
	if r.cachedJSON(ctx, key, &doc) {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return doc, nil
	}

	e, err := r.entity(p.Entity)
	if err != nil {
		return nil, err
	}
	docs, err := r.fetch(ctx, e, p, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	r.storeJSON(ctx, key, docs[0])
	return docs[0], nil
}

func (r *Resolver) entity(name string) (*model.Entity, error) {
	e, ok := r.registry.Get(name)
	if !ok {
		return nil, apperror.NewConfiguration(fmt.Errorf("resolver: entity %s not found", name))
	}
	return e, nil
}

// fetch reads the rows of one plan level and, recursively, their relations.
func (r *Resolver) fetch(ctx context.Context, e *model.Entity, p *plan.Plan, rel *model.Relation, parents []any) ([]map[string]any, error) {
	q := &selectQuery{entity: e, plan: p, rel: rel, parents: parents}
	sqlizer, err := q.rows()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	sqlStr, args, err := sqlizer.ToSql()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	logger.Debug("sql", map[string]any{
		"entity": e.Name,
		"sql":    sqlStr,
		"args":   args,
	})

	var rows []map[string]any
	if err := pgxscan.Select(ctx, r.db, &rows, sqlStr, args...); err != nil {
		return nil, dbError(err)
	}
	if err := r.attach(ctx, e, p, rows); err != nil {
		return nil, err
	}
	shapeRows(rows)
	return rows, nil
}

func (r *Resolver) count(ctx context.Context, e *model.Entity, p *plan.Plan) (int64, error) {
	q := &selectQuery{entity: e, plan: p}
	sqlizer, err := q.count()
	if err != nil {
		return 0, apperror.NewInternal(err)
	}
	sqlStr, args, err := sqlizer.ToSql()
	if err != nil {
		return 0, apperror.NewInternal(err)
	}
	logger.Debug("sql", map[string]any{
		"entity": e.Name,
		"sql":    sqlStr,
		"args":   args,
	})
	var count int64
	if err := pgxscan.Get(ctx, r.db, &count, sqlStr, args...); err != nil {
		return 0, dbError(err)
	}
	return count, nil
}

func dbError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return apperror.NewTimeout(err)
	}
	return apperror.NewDatabase(err)
}

func (r *Resolver) cachedJSON(ctx context.Context, key string, dst any) bool {
	if r.cache == nil || key == "" {
		return false
	}
	data, ok := r.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logger.Warn("cache_decode_failed", map[string]any{"key": key, "error": err.Error()})
		return false
	}
	return true
}

func (r *Resolver) storeJSON(ctx context.Context, key string, v any) {
	if r.cache == nil || key == "" {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		logger.Warn("cache_encode_failed", map[string]any{"key": key, "error": err.Error()})
		return
	}
	r.cache.Set(ctx, key, data)
}

func (r *Resolver) cacheKey(kind string, p *plan.Plan) string {
	if r.cache == nil {
		return ""
	}
	key, err := CacheKey(kind, p)
	if err != nil {
		logger.Warn("cache_key_failed", map[string]any{"entity": p.Entity, "error": err.Error()})
		return ""
	}
	return key
}
