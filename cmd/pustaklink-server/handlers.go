package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pustaklink/pustaklink/pkg/books"
	"github.com/pustaklink/pustaklink/pkg/contact"
	"github.com/pustaklink/pustaklink/pkg/session"
)

func parseIntWithDefault(input string, def int) (int, error) {
	if input == "" {
		return def, nil
	}

	n, err := strconv.Atoi(input)
	if err != nil {
		return def, echo.NewHTTPError(http.StatusBadRequest, "parameter must be an integer")
	}
	return n, nil
}

// err400 returns 400 and is used to discourage random queries
func (svc *service) err400(c echo.Context) error {
	return c.String(http.StatusBadRequest, "Go away.")
}

// doc returns a documentation page
func (svc *service) doc(c echo.Context) error {
	doctext := `
	<h1>PustakLink</h1>
	<p>This service lets students lend textbooks to each other for free, and buy and
	sell used ones. Browse the lending catalog at /books/filter, the marketplace at
	/listing, and look up a book by ISBN at /isbn/{isbn}.
	</p>
	`
	return c.HTML(http.StatusOK, doctext)
}

// health returns 200 Ok and can be used by a load balancer to indicate
// that the service is stable
func (svc *service) health(c echo.Context) error {
	return c.String(http.StatusOK, "Ok\n")
}

// qrParams reads the optional size and level query parameters shared by the QR handlers.
// * size is a number of the pixel size of the png; default is 256.
// * level is the recovery level - options are "l" (low), "m" (medium -- default), "h" (high), "x" (max)
func qrParams(c echo.Context) (int, error) {
	size, err := parseIntWithDefault(c.QueryParam("size"), contact.DefaultQRSize)
	if err != nil {
		return 0, err
	}
	if size < contact.MinQRSize || size > contact.MaxQRSize {
		return 0, echo.NewHTTPError(http.StatusBadRequest, contact.ErrQRSize.Error())
	}
	return size, nil
}

func renderQR(c echo.Context, content string) error {
	size, err := qrParams(c)
	if err != nil {
		return err
	}
	level, err := contact.ParseLevel(c.QueryParam("level"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "level parameter must be one of l,m,h,x")
	}
	png, err := contact.QRCode(content, level, size)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not encode that URL")
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// qrcodegen is a handler that returns a png image of a QR code
//
// Required query parameter is url, which is used as the body of the QR code
func (svc *service) qrcodegen(c echo.Context) error {
	url := c.QueryParam("url")
	if url == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "URL query parameter required")
	}
	return renderQR(c, url)
}

// bindCriteria reads filter criteria from the query string.
func bindCriteria(c echo.Context) (books.FilterCriteria, error) {
	var fc books.FilterCriteria
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &fc); err != nil {
		return fc, echo.NewHTTPError(http.StatusBadRequest, "bad filter parameters")
	}
	return fc, nil
}

// bookFilter narrows the lending catalog with search, subject, author, college and condition.
func (svc *service) bookFilter(c echo.Context) error {
	fc, err := bindCriteria(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, svc.Books.Filter(fc))
}

// bookFilterHTML is bookFilter rendered as a page.
func (svc *service) bookFilterHTML(c echo.Context) error {
	fc, err := bindCriteria(c)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "results", resultsPage{
		Criteria: fc,
		Books:    svc.Books.Filter(fc),
	})
}

// bookQuery does a book query based on a query specification.
func (svc *service) bookQuery(c echo.Context) error {
	values := c.QueryParams()
	constraints := books.NewConstraintSpec()

	for k, vals := range values {
		// once for each copy of a given key
		for _, v := range vals {
			switch k {
			case "or":
				constraints.IncludeCombiner = books.Or
			case "and":
				constraints.IncludeCombiner = books.And
			case "-or":
				constraints.ExcludeCombiner = books.Or
			case "-and":
				constraints.ExcludeCombiner = books.And
			case "limit", "lim":
				n, _ := strconv.Atoi(v)
				if n > 0 && n <= svc.Config.MaxLimit {
					constraints.Limit = n
				}
			case "page", "pg":
				n, _ := strconv.Atoi(v)
				constraints.Page = n
			default:
				constraint, exclude, err := books.ConstraintFromText(k, v)
				if err != nil {
					return echo.NewHTTPError(http.StatusBadRequest, "constraint error: "+err.Error())
				}
				if exclude {
					constraints.Excludes = append(constraints.Excludes, constraint)
				} else {
					constraints.Includes = append(constraints.Includes, constraint)
				}
			}
		}
	}
	// ok, we have a constraint spec -- execute it
	result := svc.Books.Query(constraints)
	return c.JSON(http.StatusOK, result)
}

func (svc *service) bookSummary(c echo.Context) error {
	return c.JSON(http.StatusOK, svc.Books.Summary())
}

func (svc *service) book(c echo.Context) (books.BookRecord, error) {
	b, ok := svc.Books.Get(c.Param("id"))
	if !ok {
		return b, echo.NewHTTPError(http.StatusNotFound, books.ErrNotFound.Error())
	}
	return b, nil
}

func (svc *service) bookByID(c echo.Context) error {
	b, err := svc.book(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

// requester works out who is asking for a book: the profile of the session named by
// the "session" query parameter, or else the name, college, phone and email parameters.
func (svc *service) requester(c echo.Context) (contact.Requester, error) {
	if sid := c.QueryParam("session"); sid != "" {
		var p session.UserProfile
		err := svc.Sessions.With(sid, func(s *session.Session) error {
			var ok bool
			if p, ok = s.Profile(); !ok {
				return session.ErrNotLoggedIn
			}
			return nil
		})
		return p, sessionError(err)
	}
	return contact.Requester{
		Name:    c.QueryParam("name"),
		College: c.QueryParam("college"),
		Phone:   c.QueryParam("phone"),
		Email:   c.QueryParam("email"),
	}, nil
}

// bookContact returns the phone, email and WhatsApp links for asking the lender for a book.
func (svc *service) bookContact(c echo.Context) error {
	b, err := svc.book(c)
	if err != nil {
		return err
	}
	r, err := svc.requester(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contact.ForBook(b, r))
}

// bookQR is a QR code of one of the contact links, chosen by the channel parameter
// (tel, mailto or whatsapp; default whatsapp).
func (svc *service) bookQR(c echo.Context) error {
	b, err := svc.book(c)
	if err != nil {
		return err
	}
	r, err := svc.requester(c)
	if err != nil {
		return err
	}
	ch := contact.Channel(c.QueryParam("channel"))
	if ch == "" {
		ch = contact.WhatsApp
	}
	link, err := contact.ForBook(b, r).Get(ch)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "channel parameter must be one of tel,mailto,whatsapp")
	}
	return renderQR(c, link)
}

// sessionError turns session errors into HTTP errors.
func sessionError(err error) error {
	var he *echo.HTTPError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &he):
		return err
	case errors.Is(err, session.ErrNoSession):
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrNotLoggedIn):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, session.ErrEmailDomain):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, session.ErrNoSelection), errors.Is(err, session.ErrEmptyCart):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNotFound), errors.Is(err, books.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
