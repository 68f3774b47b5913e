package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	portsrepo "github.com/simpleaccounts/ledger-core/internal/core/ports/repositories"
	portssvc "github.com/simpleaccounts/ledger-core/internal/core/ports/services"
	"github.com/simpleaccounts/ledger-core/internal/core/services"
	"github.com/simpleaccounts/ledger-core/internal/migration"
	"github.com/simpleaccounts/ledger-core/internal/platform/config"
	"github.com/simpleaccounts/ledger-core/internal/repositories/database/boltdb"
	"github.com/simpleaccounts/ledger-core/internal/repositories/database/pgsql"
	"github.com/simpleaccounts/ledger-core/pkg/database"
)

const dateLayout = "2006-01-02"

// ledger is an opened store with the services wired on top of it.
type ledger struct {
	repos portsrepo.RepositoryProvider
	svc   *portssvc.ServiceContainer
}

func (l *ledger) Close() error {
	return l.repos.Store.Close()
}

// openLedger opens the configured store and wires the service container.
func (o *rootOptions) openLedger(ctx context.Context) (*ledger, error) {
	repos, err := o.openRepositories(ctx)
	if err != nil {
		return nil, err
	}
	if o.cfg.EnableDBCheck {
		if err := repos.Store.Ping(ctx); err != nil {
			_ = repos.Store.Close()
			return nil, fmt.Errorf("storage health check failed: %w", err)
		}
	}

	svc, err := services.NewServiceContainer(o.cfg, repos)
	if err != nil {
		_ = repos.Store.Close()
		return nil, err
	}
	return &ledger{repos: repos, svc: svc}, nil
}

func (o *rootOptions) openRepositories(ctx context.Context) (portsrepo.RepositoryProvider, error) {
	switch o.cfg.LedgerStore {
	case config.StoreBolt:
		o.logger.Debug("Opening bolt store", slog.String("path", o.cfg.BoltPath))
		store, err := boltdb.Open(o.cfg.BoltPath)
		if err != nil {
			return portsrepo.RepositoryProvider{}, err
		}
		return boltdb.NewRepositoryProvider(store), nil
	default:
		if o.cfg.AutoMigrate {
			if _, err := migration.Up(o.cfg.DatabaseURL, o.logger); err != nil {
				return portsrepo.RepositoryProvider{}, err
			}
		}
		pool, err := database.NewPgxPool(ctx, o.cfg.DatabaseURL, o.logger)
		if err != nil {
			return portsrepo.RepositoryProvider{}, err
		}
		return pgsql.NewRepositoryProvider(pool), nil
	}
}

// withLedger opens the ledger for the duration of fn.
func (o *rootOptions) withLedger(ctx context.Context, fn func(*ledger) error) error {
	l, err := o.openLedger(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := l.Close(); cerr != nil {
			o.logger.Error("Failed to close store", slog.String("error", cerr.Error()))
		}
	}()
	return fn(l)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// parseOptionalDate parses a YYYY-MM-DD flag value; empty means unset.
func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: expected %s", s, dateLayout)
	}
	return &t, nil
}
