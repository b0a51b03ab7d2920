// Package server initializes and runs the docanchor server: it opens the
// database, applies migrations, wires the content store and ledger
// backends into the integrity service and serves it over gRPC until a
// shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/docanchor/internal/logging"
	"github.com/dmitrijs2005/docanchor/internal/server/config"
	"github.com/dmitrijs2005/docanchor/internal/server/contentstore"
	"github.com/dmitrijs2005/docanchor/internal/server/ledger"
	"github.com/dmitrijs2005/docanchor/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docanchor/internal/server/services"
	"github.com/dmitrijs2005/docanchor/internal/server/storage"

	gs "github.com/dmitrijs2005/docanchor/internal/server/grpc"
)

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	service *services.IntegrityService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	svc, err := newIntegrityService(ctx, c, db, rm, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{config: c, logger: logger, db: db, service: svc}, nil
}

func newIntegrityService(ctx context.Context, c *config.Config, db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) (*services.IntegrityService, error) {
	files, err := storage.NewLocal(c.UploadDir, c.MaxFileSize)
	if err != nil {
		return nil, err
	}
	cs, err := newContentStore(ctx, c, logger)
	if err != nil {
		return nil, err
	}
	ldg, err := newLedger(ctx, c, logger)
	if err != nil {
		return nil, err
	}
	return services.NewIntegrityService(db, rm, files, cs, ldg, c, logger), nil
}

func newContentStore(ctx context.Context, c *config.Config, logger logging.Logger) (*contentstore.Client, error) {
	var backend contentstore.Backend
	switch c.ContentStore {
	case config.ContentStoreIPFS:
		backend = contentstore.NewIPFS(c.IPFSURL, c.ContentStoreTimeout)
	case config.ContentStoreS3:
		b, err := contentstore.NewS3(ctx, contentstore.S3Options{
			Region:   c.S3Region,
			User:     c.S3RootUser,
			Password: c.S3RootPassword,
			Bucket:   c.S3Bucket,
			Endpoint: c.S3BaseEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("content store: %w", err)
		}
		backend = b
	case config.ContentStoreNone:
		backend = contentstore.None{}
	default:
		return nil, fmt.Errorf("unknown content store %q", c.ContentStore)
	}
	return contentstore.New(backend, c.ContentStoreTimeout, logger), nil
}

func newLedger(ctx context.Context, c *config.Config, logger logging.Logger) (*ledger.Client, error) {
	var backend ledger.Backend
	switch c.Ledger {
	case config.LedgerEthereum:
		b, err := ledger.NewEthereum(ctx, ledger.EthereumOptions{
			RPCURL:     c.EthereumRPCURL,
			Contract:   c.ContractAddress,
			PrivateKey: c.PrivateKey,
		})
		if err != nil {
			return nil, fmt.Errorf("ledger: %w", err)
		}
		backend = b
	case config.LedgerMemory:
		backend = ledger.NewMemory()
	default:
		return nil, fmt.Errorf("unknown ledger %q", c.Ledger)
	}
	return ledger.New(backend, c.LedgerTimeout, logger), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.service, app.config.SecretKey, app.config.MaxFileSize)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a shutdown signal arrives or the server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...",
		"content_store", app.config.ContentStore, "ledger", app.config.Ledger)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.WithoutCancel(ctx), "db close error", "error", err)
	}
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
}
