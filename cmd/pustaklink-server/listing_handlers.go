package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pustaklink/pustaklink/pkg/isbn"
	"github.com/pustaklink/pustaklink/pkg/listings"
)

// listingError turns store errors into HTTP errors.
func listingError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, listings.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Listing not found")
	case errors.Is(err, listings.ErrInvalid):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return err
	}
}

func listingID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusUnprocessableEntity, "listing id must be an integer")
	}
	return id, nil
}

// optionalFloat parses a query parameter that may be absent.
func optionalFloat(c echo.Context, name string) (*float64, error) {
	s := c.QueryParam(name)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnprocessableEntity, name+" must be a number")
	}
	return &f, nil
}

func (svc *service) listingCreate(c echo.Context) error {
	var lc listings.ListingCreate
	if err := c.Bind(&lc); err != nil {
		return err
	}
	l, err := svc.Listings.Create(c.Request().Context(), lc)
	if err != nil {
		return listingError(err)
	}
	svc.logger.Info("listing created", zap.Int64("id", l.ID), zap.String("isbn", l.ISBN), zap.String("ip", c.RealIP()))
	return c.JSON(http.StatusOK, l)
}

// listingQuery narrows the marketplace with the college, subject, semester, price_min, price_max,
// condition, edition, sort, limit and offset query parameters.
func (svc *service) listingQuery(c echo.Context) error {
	var q listings.Query
	err := echo.QueryParamsBinder(c).
		String("college", &q.College).
		String("subject", &q.Subject).
		Int("semester", &q.Semester).
		String("condition", &q.Condition).
		Int("edition", &q.Edition).
		String("sort", &q.Sort).
		Int("limit", &q.Limit).
		Int("offset", &q.Offset).
		BindError()
	if err != nil {
		var be *echo.BindingError
		if errors.As(err, &be) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, be.Field+" must be an integer")
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "bad query parameters")
	}
	if q.PriceMin, err = optionalFloat(c, "price_min"); err != nil {
		return err
	}
	if q.PriceMax, err = optionalFloat(c, "price_max"); err != nil {
		return err
	}
	result, err := svc.Listings.Query(c.Request().Context(), q)
	if err != nil {
		return listingError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (svc *service) listingGet(c echo.Context) error {
	id, err := listingID(c)
	if err != nil {
		return err
	}
	l, err := svc.Listings.Get(c.Request().Context(), id)
	if err != nil {
		return listingError(err)
	}
	return c.JSON(http.StatusOK, l)
}

func (svc *service) listingMarkSold(c echo.Context) error {
	id, err := listingID(c)
	if err != nil {
		return err
	}
	if err := svc.Listings.MarkSold(c.Request().Context(), id); err != nil {
		return listingError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "message": "Listing marked as sold"})
}

func (svc *service) listingReports(c echo.Context) error {
	id, err := listingID(c)
	if err != nil {
		return err
	}
	reports, err := svc.Listings.Reports(c.Request().Context(), id)
	if err != nil {
		return listingError(err)
	}
	return c.JSON(http.StatusOK, reports)
}

func (svc *service) reportCreate(c echo.Context) error {
	var rc listings.ReportCreate
	if err := c.Bind(&rc); err != nil {
		return err
	}
	r, err := svc.Listings.Report(c.Request().Context(), rc)
	if err != nil {
		return listingError(err)
	}
	svc.logger.Info("listing reported", zap.Int64("listing", r.ListingID), zap.String("reason", r.Reason))
	return c.JSON(http.StatusOK, r)
}

// isbnLookup fetches book metadata from OpenLibrary. Malformed and unknown ISBNs are both 404.
func (svc *service) isbnLookup(c echo.Context) error {
	info, err := svc.ISBN.Lookup(c.Request().Context(), c.Param("isbn"))
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, info)
	case errors.Is(err, isbn.ErrInvalid), errors.Is(err, isbn.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, isbn.ErrNotFound.Error())
	default:
		return err
	}
}
