package sql

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"sqlreport/internal/domain/query"
	"sqlreport/internal/usecase/repository"
)

// PoolConfig describes one named reporting database.
type PoolConfig struct {
	Driver          string        `mapstructure:"driver" validate:"required,oneof=postgres pgx sqlite3"`
	DSN             string        `mapstructure:"dsn" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	StatementCache  int           `mapstructure:"statement_cache"`
}

// Pool is a named *sql.DB that reports lost connections as
// query.LostConnectionError and can be reopened.
type Pool struct {
	name     string
	cfg      PoolConfig
	logger   *logrus.Logger
	rebinder *Rebinder

	mu sync.RWMutex
	db *sql.DB
}

// Open creates a pool. The database is not contacted until first use.
func Open(name string, cfg PoolConfig, logger *logrus.Logger) (*Pool, error) {
	rebinder, err := NewRebinder(PlaceholderFor(cfg.Driver), cfg.StatementCache)
	if err != nil {
		return nil, err
	}
	p := &Pool{name: name, cfg: cfg, logger: logger, rebinder: rebinder}
	db, err := p.open()
	if err != nil {
		return nil, err
	}
	p.db = db
	return p, nil
}

func (p *Pool) open() (*sql.DB, error) {
	db, err := sql.Open(p.cfg.Driver, p.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pool %s: open %s: %w", p.name, p.cfg.Driver, err)
	}
	if p.cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.cfg.MaxOpenConns)
	}
	if p.cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(p.cfg.MaxIdleConns)
	}
	if p.cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(p.cfg.ConnMaxLifetime)
	}
	return db, nil
}

// Name returns the configured pool name.
func (p *Pool) Name() string { return p.name }

// DB exposes the current handle.
func (p *Pool) DB() *sql.DB {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.db
}

// Query runs a SELECT with named binds and returns every row in column order.
func (p *Pool) Query(ctx context.Context, text string, binds query.Binds) (*query.Rows, error) {
	positional, args, err := p.rebinder.Rebind(text, binds)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := p.DB().QueryContext(ctx, positional, args...)
	if err != nil {
		return nil, p.classify(err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, p.classify(err)
	}
	result := &query.Rows{Columns: make([]query.Column, len(types)), Values: [][]any{}}
	for i, ct := range types {
		result.Columns[i] = query.Column{Name: ct.Name(), DatabaseType: ct.DatabaseTypeName()}
	}

	for rows.Next() {
		vals := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range ptrs {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, p.classify(err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		result.Values = append(result.Values, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, p.classify(err)
	}

	p.logger.WithFields(logrus.Fields{
		"pool":     p.name,
		"rows":     len(result.Values),
		"duration": time.Since(start),
	}).Debug("query executed")
	return result, nil
}

func (p *Pool) classify(err error) error {
	if IsLostConnection(err) {
		return &query.LostConnectionError{Err: fmt.Errorf("pool %s: %w", p.name, err)}
	}
	return fmt.Errorf("pool %s: %w", p.name, err)
}

// Reconnect closes the current handle, opens a new one and pings it.
func (p *Pool) Reconnect(ctx context.Context) error {
	db, err := p.open()
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("pool %s: ping: %w", p.name, err)
	}

	p.mu.Lock()
	old := p.db
	p.db = db
	p.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			p.logger.WithError(err).WithField("pool", p.name).Warn("closing stale connection pool")
		}
	}
	p.logger.WithField("pool", p.name).Info("pool reconnected")
	return nil
}

// Ping checks the database is reachable.
func (p *Pool) Ping(ctx context.Context) error {
	return p.DB().PingContext(ctx)
}

// Close releases the handle.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

// Pools is the registry of named reporting databases.
type Pools struct {
	pools map[string]*Pool
}

// OpenPools opens every configured pool.
func OpenPools(configs map[string]PoolConfig, logger *logrus.Logger) (*Pools, error) {
	registry := &Pools{pools: make(map[string]*Pool, len(configs))}
	for name, cfg := range configs {
		pool, err := Open(name, cfg, logger)
		if err != nil {
			registry.Close()
			return nil, err
		}
		registry.pools[name] = pool
		logger.WithFields(logrus.Fields{"pool": name, "driver": cfg.Driver}).Info("pool configured")
	}
	return registry, nil
}

// NewPools wraps already opened pools.
func NewPools(pools ...*Pool) *Pools {
	registry := &Pools{pools: make(map[string]*Pool, len(pools))}
	for _, p := range pools {
		registry.pools[p.Name()] = p
	}
	return registry
}

// Pool returns a pool by name.
func (r *Pools) Pool(name string) (*Pool, error) {
	p, ok := r.pools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPool, name)
	}
	return p, nil
}

// Connection implements repository.ConnectionProvider.
func (r *Pools) Connection(name string) (repository.Connection, error) {
	p, err := r.Pool(name)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Names lists configured pools in lexical order.
func (r *Pools) Names() []string {
	names := make([]string, 0, len(r.pools))
	for name := range r.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every pool and returns the first error.
func (r *Pools) Close() error {
	var first error
	for _, p := range r.pools {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
