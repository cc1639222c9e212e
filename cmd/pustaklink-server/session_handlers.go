package main

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pustaklink/pustaklink/pkg/books"
	"github.com/pustaklink/pustaklink/pkg/contact"
	"github.com/pustaklink/pustaklink/pkg/session"
)

// withSession runs f on the session named by the sid path parameter.
func (svc *service) withSession(c echo.Context, f func(*session.Session) error) error {
	return sessionError(svc.Sessions.With(c.Param("sid"), f))
}

// sessionCreate logs a student in and opens a session for them.
// A profile that fails validation does not leave a session behind.
func (svc *service) sessionCreate(c echo.Context) error {
	var p session.UserProfile
	if err := c.Bind(&p); err != nil {
		return err
	}
	sid := svc.Sessions.Create()
	var st session.State
	err := svc.Sessions.With(sid, func(s *session.Session) error {
		if err := s.Login(p); err != nil {
			return err
		}
		st = s.Snapshot()
		return nil
	})
	if err != nil {
		_ = svc.Sessions.Delete(sid)
		return sessionError(err)
	}
	svc.logger.Info("session created", zap.String("session", sid), zap.String("college", p.College))
	return c.JSON(http.StatusCreated, st)
}

// sessionGet returns the session's state, after marking anything past its return date as overdue.
func (svc *service) sessionGet(c echo.Context) error {
	var st session.State
	err := svc.withSession(c, func(s *session.Session) error {
		s.RefreshStatuses(svc.today())
		st = s.Snapshot()
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

// sessionDelete logs out and forgets the session.
func (svc *service) sessionDelete(c echo.Context) error {
	err := svc.withSession(c, func(s *session.Session) error {
		s.Logout()
		return nil
	})
	if err != nil {
		return err
	}
	if err := svc.Sessions.Delete(c.Param("sid")); err != nil {
		return sessionError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// sessionView navigates; the body is {"view": "..."}.
func (svc *service) sessionView(c echo.Context) error {
	var body struct {
		View string `json:"view"`
	}
	if err := c.Bind(&body); err != nil {
		return err
	}
	var st session.State
	err := svc.withSession(c, func(s *session.Session) error {
		if err := s.Navigate(session.View(body.View)); err != nil {
			return err
		}
		st = s.Snapshot()
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

// sessionFilter replaces the session's browse criteria with the body.
// Fields left out of the body go back to their defaults.
func (svc *service) sessionFilter(c echo.Context) error {
	body := books.DefaultCriteria()
	if err := c.Bind(&body); err != nil {
		return err
	}
	var fc books.FilterCriteria
	err := svc.withSession(c, func(s *session.Session) error {
		s.ResetFilter()
		for field, value := range map[string]string{
			books.FieldSearch:    body.Search,
			books.FieldSubject:   body.Subject,
			books.FieldAuthor:    body.Author,
			books.FieldCollege:   body.College,
			books.FieldCondition: body.Condition,
		} {
			if err := s.SetFilter(field, value); err != nil {
				return err
			}
		}
		fc = s.Filter()
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, fc)
}

// sessionBooks is the catalog seen through the session's filter.
func (svc *service) sessionBooks(c echo.Context) error {
	var result []books.BookRecord
	err := svc.withSession(c, func(s *session.Session) error {
		result = s.Books(svc.Books.All())
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (svc *service) wishlistGet(c echo.Context) error {
	var result []books.BookRecord
	err := svc.withSession(c, func(s *session.Session) error {
		result = s.Wishlist()
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (svc *service) wishlistStats(c echo.Context) error {
	var ws session.WishlistStats
	err := svc.withSession(c, func(s *session.Session) error {
		ws = s.WishlistStats()
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ws)
}

// wishlistResult reports whether the book is now on the wishlist and whether the call changed anything.
type wishlistResult struct {
	ID         string `json:"id"`
	InWishlist bool   `json:"in_wishlist"`
	Changed    bool   `json:"changed"`
}

func (svc *service) wishlistAdd(c echo.Context) error {
	b, err := svc.book(c)
	if err != nil {
		return err
	}
	res := wishlistResult{ID: b.ID}
	err = svc.withSession(c, func(s *session.Session) error {
		res.Changed = s.AddToWishlist(b)
		res.InWishlist = true
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// wishlistRemove works on the ID alone, so books gone from the catalog can still be removed.
func (svc *service) wishlistRemove(c echo.Context) error {
	res := wishlistResult{ID: c.Param("id")}
	err := svc.withSession(c, func(s *session.Session) error {
		res.Changed = s.RemoveFromWishlist(res.ID)
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (svc *service) wishlistToggle(c echo.Context) error {
	b, err := svc.book(c)
	if err != nil {
		return err
	}
	res := wishlistResult{ID: b.ID, Changed: true}
	err = svc.withSession(c, func(s *session.Session) error {
		res.InWishlist = s.ToggleWishlist(b)
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// cartResult is the cart and its totals.
type cartResult struct {
	Items  []session.CartItem `json:"items"`
	Totals session.CartTotals `json:"totals"`
}

func cartOf(s *session.Session) cartResult {
	return cartResult{Items: s.Cart(), Totals: s.CartTotals()}
}

func (svc *service) cartGet(c echo.Context) error {
	var res cartResult
	err := svc.withSession(c, func(s *session.Session) error {
		res = cartOf(s)
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// cartAdd puts the item in the body in the cart, unless an item with its ID is already there.
func (svc *service) cartAdd(c echo.Context) error {
	var item session.CartItem
	if err := c.Bind(&item); err != nil {
		return err
	}
	if item.BookID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "book_id is required")
	}
	var res cartResult
	err := svc.withSession(c, func(s *session.Session) error {
		s.AddToCart(item)
		res = cartOf(s)
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (svc *service) cartRemove(c echo.Context) error {
	var res cartResult
	err := svc.withSession(c, func(s *session.Session) error {
		if !s.RemoveFromCart(c.Param("id")) {
			return session.ErrNotFound
		}
		res = cartOf(s)
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (svc *service) paymentStart(c echo.Context) error {
	var totals session.CartTotals
	err := svc.withSession(c, func(s *session.Session) error {
		var err error
		totals, err = s.ProceedToPayment()
		return err
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, totals)
}

func (svc *service) paymentComplete(c echo.Context) error {
	var st session.State
	err := svc.withSession(c, func(s *session.Session) error {
		if s.Current() != session.Payment {
			return echo.NewHTTPError(http.StatusConflict, "no payment in progress")
		}
		s.CompletePayment()
		st = s.Snapshot()
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

// lendBook posts a book from the lend form in the body and adds it to the catalog.
func (svc *service) lendBook(c echo.Context) error {
	var form session.LendForm
	if err := c.Bind(&form); err != nil {
		return err
	}
	var rec books.BookRecord
	err := svc.withSession(c, func(s *session.Session) error {
		var err error
		rec, err = s.PostBook(form, svc.today())
		return err
	})
	if err != nil {
		return err
	}
	svc.Books.Add(rec)
	svc.logger.Info("book lent", zap.String("id", rec.ID), zap.String("title", rec.Title), zap.String("college", rec.LenderCollege))
	return c.JSON(http.StatusCreated, rec)
}

// borrowResult is a selected book and the links for contacting its lender.
type borrowResult struct {
	Book    books.BookRecord `json:"book"`
	Contact contact.Links    `json:"contact"`
}

// borrowBook selects a catalog book and returns the ways of contacting its lender.
func (svc *service) borrowBook(c echo.Context) error {
	b, err := svc.book(c)
	if err != nil {
		return err
	}
	var res borrowResult
	err = svc.withSession(c, func(s *session.Session) error {
		if err := s.BorrowNow(b); err != nil {
			return err
		}
		p, _ := s.Profile()
		res = borrowResult{Book: b, Contact: contact.ForBook(b, p)}
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (svc *service) borrowConfirm(c echo.Context) error {
	var bb session.BorrowedBook
	err := svc.withSession(c, func(s *session.Session) error {
		var err error
		bb, err = s.ConfirmBorrow(svc.today())
		return err
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, bb)
}

func (svc *service) returnBook(c echo.Context) error {
	var ps session.ProfileStats
	err := svc.withSession(c, func(s *session.Session) error {
		if err := s.MarkReturned(c.Param("id")); err != nil {
			return err
		}
		ps = s.ProfileStats()
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ps)
}

func (svc *service) profileStats(c echo.Context) error {
	var ps session.ProfileStats
	err := svc.withSession(c, func(s *session.Session) error {
		s.RefreshStatuses(svc.today())
		ps = s.ProfileStats()
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ps)
}
