// Package main provides the backend for PustakLink, the campus book sharing service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codingconcepts/env"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/sync/errgroup"
)

// Config stores configuration variables that can be specified in the environment
// (or in a .env file in the working directory).
// They are:
// PORT (required). Specifies the port number. If the port number is 443, we automatically do a TLS setup and
//   get a certificate from Let's Encrypt. Otherwise, we just do a normal HTTP setup.
// CACHEDIR (default:"/var/www/.cache"). Specifies where on disk the cache information for TLS/Let's Encrypt is stored.
// MAXLIMIT (default 100). The maximum number of items that can be returned at once, even if the query
//   specifies a limit value.
// SHUTDOWN_TIMEOUT (default 5s): maximum time the server will wait to try to shutdown nicely when interrupted.
// CATALOG. Path to a YAML catalog of lending books. If empty, the built-in seed catalog is used.
// WATCH_CATALOG (default true). Reload the catalog whenever the CATALOG file changes.
// COLLEGES (comma-separated, default all). When loading the catalog, only books lent from one of
//   these colleges are kept.
// EMAIL_DOMAIN (default vitstudent.ac.in). Students must log in with an email ending in this domain.
// DELIVERY_FEE (default 50). Added to every non-empty cart, in rupees.
// LISTING_RATE, LISTING_WINDOW (default 5 per 24h). How many listings one address may create.
// ISBN_RATE, ISBN_WINDOW (default 10 per 1m). How many ISBN lookups one address may make.
// OPENLIBRARY_URL (default https://openlibrary.org) and ISBN_TIMEOUT (default 8s) control ISBN lookups.
// SEED_LISTINGS (default true). Start the marketplace with ten demo listings.
// LOG_LEVEL (default info). One of debug, info, warn, error.
type Config struct {
	CacheDir        string        `env:"CACHEDIR" default:"/var/www/.cache"`
	Port            int           `env:"PORT" required:"true"`
	MaxLimit        int           `env:"MAXLIMIT" default:"100"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"5s"`
	Catalog         string        `env:"CATALOG"`
	WatchCatalog    bool          `env:"WATCH_CATALOG" default:"true"`
	Colleges        []string      `env:"COLLEGES" delimiter:","`
	EmailDomain     string        `env:"EMAIL_DOMAIN" default:"vitstudent.ac.in"`
	DeliveryFee     int           `env:"DELIVERY_FEE" default:"50"`
	ListingRate     int           `env:"LISTING_RATE" default:"5"`
	ListingWindow   time.Duration `env:"LISTING_WINDOW" default:"24h"`
	ISBNRate        int           `env:"ISBN_RATE" default:"10"`
	ISBNWindow      time.Duration `env:"ISBN_WINDOW" default:"1m"`
	OpenLibraryURL  string        `env:"OPENLIBRARY_URL" default:"https://openlibrary.org"`
	ISBNTimeout     time.Duration `env:"ISBN_TIMEOUT" default:"8s"`
	SeedListings    bool          `env:"SEED_LISTINGS" default:"true"`
	LogLevel        string        `env:"LOG_LEVEL" default:"info"`
}

func newLogger(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("bad LOG_LEVEL: %w", err)
	}
	config.Level = lvl
	return config.Build()
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("couldn't read .env: %v", err)
	}

	var cfg Config
	if err := env.Set(&cfg); err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	svc := newService(cfg, logger)
	if _, err := svc.loadCatalog(); err != nil {
		logger.Fatal("couldn't load catalog", zap.String("catalog", cfg.Catalog), zap.Error(err))
	}
	if cfg.SeedListings {
		n, err := svc.Listings.SeedIfEmpty(context.Background(), rand.New(rand.NewSource(time.Now().UnixNano())))
		if err != nil {
			logger.Fatal("couldn't seed listings", zap.Error(err))
		}
		logger.Info("seeded listings", zap.Int("count", n))
	}

	e := svc.newEcho()
	e.AutoTLSManager.Cache = autocert.DirCache(cfg.CacheDir)

	// If the port is the SSL port, then do a TLS setup, otherwise just do normal HTTP
	startfunc := e.Start
	if cfg.Port == 443 {
		startfunc = e.StartAutoTLS
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := startfunc(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.Catalog != "" && cfg.WatchCatalog {
		w := newCatalogWatcher(cfg.Catalog, svc.reloadCatalog, logger)
		g.Go(func() error {
			return w.Run(gctx)
		})
	}
	g.Go(func() error {
		return svc.sweepLimiters(gctx, time.Minute)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down the server")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return e.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
