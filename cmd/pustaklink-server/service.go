package main

import (
	"context"
	"errors"
	"fmt"
	htmltmpl "html/template"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/pustaklink/pustaklink/pkg/books"
	"github.com/pustaklink/pustaklink/pkg/isbn"
	"github.com/pustaklink/pustaklink/pkg/listings"
	"github.com/pustaklink/pustaklink/pkg/ratelimit"
	"github.com/pustaklink/pustaklink/pkg/session"
)

type service struct {
	Config        Config
	Books         *books.BookData
	Sessions      *session.Registry
	Listings      *listings.Store
	ISBN          *isbn.Client
	ListingLimit  *ratelimit.SlidingWindow
	ISBNLimit     *ratelimit.SlidingWindow
	HTMLTemplates map[string]*htmltmpl.Template

	logger *zap.Logger
	today  func() books.Date
}

func newService(cfg Config, logger *zap.Logger) *service {
	svc := &service{
		Config: cfg,
		Books:  books.NewBookData(),
		Sessions: session.NewRegistry(
			session.EmailDomainOpt(cfg.EmailDomain),
			session.DeliveryFeeOpt(cfg.DeliveryFee),
		),
		Listings: listings.NewStore(listings.MaxLimitOpt(cfg.MaxLimit)),
		ISBN: isbn.NewClient(
			isbn.BaseURLOpt(cfg.OpenLibraryURL),
			isbn.TimeoutOpt(cfg.ISBNTimeout),
			isbn.LoggerOpt(logger.Named("isbn")),
		),
		ListingLimit: ratelimit.New(cfg.ListingRate, cfg.ListingWindow),
		ISBNLimit:    ratelimit.New(cfg.ISBNRate, cfg.ISBNWindow),
		logger:       logger,
		today:        books.Today,
	}
	svc.loadTemplates()
	return svc
}

// loadCatalog replaces the catalog with the contents of the configured CATALOG file,
// or with the built-in catalog when none is configured.
func (svc *service) loadCatalog() (books.LoadResult, error) {
	var rdr io.Reader
	name := svc.Config.Catalog
	if name == "" {
		name = "built-in"
		rdr = books.DefaultCatalogReader()
	} else {
		f, err := os.Open(name)
		if err != nil {
			return books.LoadResult{}, fmt.Errorf("couldn't open catalog %s: %w", name, err)
		}
		defer f.Close()
		rdr = f
	}

	var opts []books.LoaderOption
	if len(svc.Config.Colleges) > 0 {
		opts = append(opts, books.RecordFilterOpt(books.CollegeFilter(svc.Config.Colleges...)))
	}

	starttime := time.Now()
	res, err := books.NewLoader(rdr, opts...).Load(svc.Books)
	if err != nil {
		return res, err
	}
	for _, invalid := range res.Invalid {
		svc.logger.Warn("skipped catalog record", zap.String("catalog", name), zap.Error(invalid))
	}
	svc.logger.Info("catalog loading complete",
		zap.String("catalog", name),
		zap.Int("loaded", res.Loaded),
		zap.Int("skipped", res.Skipped),
		zap.Int("books", svc.Books.NBooks()),
		zap.Duration("took", time.Since(starttime)),
	)
	return res, nil
}

// reloadCatalog is loadCatalog for the file watcher, which only cares about failure.
func (svc *service) reloadCatalog() error {
	_, err := svc.loadCatalog()
	return err
}

// sweepLimiters periodically drops idle identifiers from the rate limiters until ctx is done.
func (svc *service) sweepLimiters(ctx context.Context, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n := svc.ListingLimit.Sweep() + svc.ISBNLimit.Sweep()
			if n > 0 {
				svc.logger.Debug("swept rate limiters", zap.Int("dropped", n))
			}
		}
	}
}

// newEcho builds the echo instance with middleware and routes installed.
func (svc *service) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = svc
	e.HTTPErrorHandler = svc.httpErrorHandler
	svc.setupMiddleware(e)
	svc.setupRoutes(e)
	return e
}

func (svc *service) setupMiddleware(e *echo.Echo) {
	// logging
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			svc.logger.Info("request", fields...)
			return nil
		},
	}))
	// crash handling
	e.Use(middleware.Recover())
}

func (svc *service) setupRoutes(e *echo.Echo) {
	// Routes
	e.GET("/", svc.err400)
	e.GET("/doc", svc.doc)
	e.GET("/health", svc.health)
	e.GET("/qr", svc.qrcodegen)

	// lending catalog
	e.GET("/books/filter", svc.bookFilter)
	e.GET("/books/filter/html", svc.bookFilterHTML)
	e.GET("/books/query", svc.bookQuery)
	e.GET("/books/summary", svc.bookSummary)
	e.GET("/book/:id", svc.bookByID)
	e.GET("/book/:id/contact", svc.bookContact)
	e.GET("/book/:id/qr", svc.bookQR)

	// per-user state
	e.POST("/session", svc.sessionCreate)
	e.GET("/session/:sid", svc.sessionGet)
	e.DELETE("/session/:sid", svc.sessionDelete)
	e.PUT("/session/:sid/view", svc.sessionView)
	e.PUT("/session/:sid/filter", svc.sessionFilter)
	e.GET("/session/:sid/books", svc.sessionBooks)
	e.GET("/session/:sid/wishlist", svc.wishlistGet)
	e.GET("/session/:sid/wishlist/stats", svc.wishlistStats)
	e.PUT("/session/:sid/wishlist/:id", svc.wishlistAdd)
	e.DELETE("/session/:sid/wishlist/:id", svc.wishlistRemove)
	e.POST("/session/:sid/wishlist/:id/toggle", svc.wishlistToggle)
	e.GET("/session/:sid/cart", svc.cartGet)
	e.PUT("/session/:sid/cart", svc.cartAdd)
	e.DELETE("/session/:sid/cart/:id", svc.cartRemove)
	e.POST("/session/:sid/payment", svc.paymentStart)
	e.POST("/session/:sid/payment/complete", svc.paymentComplete)
	e.POST("/session/:sid/lend", svc.lendBook)
	e.POST("/session/:sid/borrow/confirm", svc.borrowConfirm)
	e.POST("/session/:sid/borrow/:id", svc.borrowBook)
	e.POST("/session/:sid/return/:id", svc.returnBook)
	e.GET("/session/:sid/stats", svc.profileStats)

	// marketplace
	e.POST("/listing", svc.listingCreate, svc.rateLimit(svc.ListingLimit))
	e.GET("/listing", svc.listingQuery)
	e.GET("/listing/:id", svc.listingGet)
	e.POST("/listing/:id/mark_sold", svc.listingMarkSold)
	e.GET("/listing/:id/reports", svc.listingReports)
	e.POST("/report", svc.reportCreate)
	e.GET("/isbn/:isbn", svc.isbnLookup, svc.rateLimit(svc.ISBNLimit))
}

// rateLimit limits a route per client address.
func (svc *service) rateLimit(store middleware.RateLimiterStore) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			svc.logger.Info("rate limited", zap.String("identifier", identifier), zap.String("path", c.Path()))
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
		},
	})
}

// httpErrorHandler reports every error as {"detail": message}.
func (svc *service) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
		if he.Internal != nil {
			err = he.Internal
		}
	}
	if code >= http.StatusInternalServerError {
		svc.logger.Error("request failed", zap.String("uri", c.Request().RequestURI), zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]string{"detail": msg})
	}
	if err != nil {
		svc.logger.Warn("couldn't send error response", zap.Error(err))
	}
}
