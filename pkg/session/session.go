// Package session holds the per-user state of one PustakLink visit: who is signed in,
// which view they are on, their filter, and the books they have collected.
//
// A Session is not safe for concurrent use; callers that share one across goroutines
// go through a Registry.
package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pustaklink/pustaklink/pkg/books"
)

// Errors returned by session operations.
var (
	ErrIncompleteProfile = errors.New("name, college, phone and email are all required")
	ErrEmailDomain       = errors.New("access not permitted")
	ErrNotLoggedIn       = errors.New("not logged in")
	ErrNoSelection       = errors.New("no book selected")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrNotFound          = errors.New("not found in session")
)

// DefaultEmailDomain is the suffix every student email must carry.
const DefaultEmailDomain = "vitstudent.ac.in"

// DefaultDeliveryFee is charged once per non-empty cart, in rupees.
const DefaultDeliveryFee = 50

// UserProfile is what a student fills in on the login form.
type UserProfile struct {
	Name    string `json:"name"`
	College string `json:"college"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// Validate checks that every field is present and that the email ends with domain.
func (p UserProfile) Validate(domain string) error {
	for _, f := range []string{p.Name, p.College, p.Phone, p.Email} {
		if strings.TrimSpace(f) == "" {
			return ErrIncompleteProfile
		}
	}
	if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(p.Email)), strings.ToLower(domain)) {
		return fmt.Errorf("%w: please use your student email ID ending with %s", ErrEmailDomain, domain)
	}
	return nil
}

// Session is an explicit state container for one user.
type Session struct {
	ID string

	emailDomain string
	deliveryFee int

	view     View
	profile  *UserProfile
	selected *books.BookRecord
	filter   books.FilterCriteria
	wishlist []books.BookRecord
	cart     []CartItem
	lent     []LentBook
	borrowed []BorrowedBook
}

// Option modifies a Session as it is created.
type Option func(*Session)

// EmailDomainOpt replaces the required email suffix.
func EmailDomainOpt(domain string) Option {
	return func(s *Session) {
		if domain != "" {
			s.emailDomain = domain
		}
	}
}

// DeliveryFeeOpt replaces the per-cart delivery fee.
func DeliveryFeeOpt(fee int) Option {
	return func(s *Session) {
		s.deliveryFee = fee
	}
}

// New creates a signed-out session with a fresh ID.
func New(options ...Option) *Session {
	s := &Session{
		ID:          uuid.NewString(),
		emailDomain: DefaultEmailDomain,
		deliveryFee: DefaultDeliveryFee,
		view:        Login,
		filter:      books.DefaultCriteria(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Login validates the profile and, if it passes, signs the user in and moves to home.
// A rejected profile leaves the session unchanged.
func (s *Session) Login(p UserProfile) error {
	if err := p.Validate(s.emailDomain); err != nil {
		return err
	}
	s.profile = &p
	s.view = Home
	return nil
}

// Logout forgets the user and everything they collected.
func (s *Session) Logout() {
	s.profile = nil
	s.selected = nil
	s.filter = books.DefaultCriteria()
	s.wishlist = nil
	s.cart = nil
	s.lent = nil
	s.borrowed = nil
	s.view = Login
}

// LoggedIn reports whether a profile is set.
func (s *Session) LoggedIn() bool {
	return s.profile != nil
}

// Profile returns the signed-in profile.
func (s *Session) Profile() (UserProfile, bool) {
	if s.profile == nil {
		return UserProfile{}, false
	}
	return *s.profile, true
}

// Current is the view to show. Without a profile it is always the login view,
// and the contact view falls back to browsing when no book is selected.
func (s *Session) Current() View {
	switch {
	case s.profile == nil:
		return Login
	case s.view == BookContact && s.selected == nil:
		return Borrow
	default:
		return s.view
	}
}

// Navigate moves to another view.
func (s *Session) Navigate(v View) error {
	if _, err := ParseView(string(v)); err != nil {
		return err
	}
	if s.profile == nil && v != Login {
		return ErrNotLoggedIn
	}
	s.view = v
	return nil
}

// Selected is the book picked with BorrowNow, if any.
func (s *Session) Selected() (books.BookRecord, bool) {
	if s.selected == nil {
		return books.BookRecord{}, false
	}
	return *s.selected, true
}

// Filter returns the current browse criteria.
func (s *Session) Filter() books.FilterCriteria {
	return s.filter
}

// SetFilter changes one browse criterion by field name.
func (s *Session) SetFilter(field, value string) error {
	return s.filter.Set(field, value)
}

// ResetFilter goes back to the criteria of a freshly opened browse view.
func (s *Session) ResetFilter() {
	s.filter = books.DefaultCriteria()
}

// Books applies the session's filter to a catalog.
func (s *Session) Books(catalog []books.BookRecord) []books.BookRecord {
	return books.Filter(catalog, s.filter)
}

// State is a read-only snapshot of a session, suitable for JSON.
type State struct {
	ID       string               `json:"id"`
	View     View                 `json:"view"`
	Profile  *UserProfile         `json:"profile,omitempty"`
	Selected *books.BookRecord    `json:"selected,omitempty"`
	Filter   books.FilterCriteria `json:"filter"`
	Wishlist []books.BookRecord   `json:"wishlist"`
	Cart     []CartItem           `json:"cart"`
	Lent     []LentBook           `json:"lent"`
	Borrowed []BorrowedBook       `json:"borrowed"`
}

// Snapshot copies the session's state.
func (s *Session) Snapshot() State {
	st := State{
		ID:       s.ID,
		View:     s.Current(),
		Filter:   s.filter,
		Wishlist: s.Wishlist(),
		Cart:     s.Cart(),
		Lent:     s.Lent(),
		Borrowed: s.Borrowed(),
	}
	if p, ok := s.Profile(); ok {
		st.Profile = &p
	}
	if b, ok := s.Selected(); ok {
		st.Selected = &b
	}
	return st
}
