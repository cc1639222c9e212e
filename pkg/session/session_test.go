package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pustaklink/pustaklink/pkg/books"
)

func student() UserProfile {
	return UserProfile{
		Name:    "Ananya Iyer",
		College: "VIT Vellore",
		Phone:   "+91 99999 11111",
		Email:   "ananya.iyer2023@vitstudent.ac.in",
	}
}

func loggedIn(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s := New(opts...)
	require.NoError(t, s.Login(student()))
	return s
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(*UserProfile)
		wantErr error
	}{
		{"ok", func(*UserProfile) {}, nil},
		{"upper case email", func(p *UserProfile) { p.Email = "A.B@VITSTUDENT.AC.IN" }, nil},
		{"missing name", func(p *UserProfile) { p.Name = "" }, ErrIncompleteProfile},
		{"blank phone", func(p *UserProfile) { p.Phone = "   " }, ErrIncompleteProfile},
		{"missing email", func(p *UserProfile) { p.Email = "" }, ErrIncompleteProfile},
		{"gmail", func(p *UserProfile) { p.Email = "ananya@gmail.com" }, ErrEmailDomain},
		{"staff domain", func(p *UserProfile) { p.Email = "ananya@vit.ac.in" }, ErrEmailDomain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			p := student()
			tt.edit(&p)
			err := s.Login(p)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, Home, s.Current())
				assert.True(t, s.LoggedIn())
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Equal(t, Login, s.Current())
			assert.False(t, s.LoggedIn())
		})
	}
}

func TestLogin_EmailDomainOpt(t *testing.T) {
	s := New(EmailDomainOpt("example.edu"))
	p := student()
	err := s.Login(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "example.edu")

	p.Email = "ananya@example.edu"
	assert.NoError(t, s.Login(p))
}

func TestNavigate(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.Navigate(Borrow), ErrNotLoggedIn)
	assert.Equal(t, Login, s.Current())

	require.NoError(t, s.Login(student()))
	require.NoError(t, s.Navigate(Wishlist))
	assert.Equal(t, Wishlist, s.Current())
	assert.Error(t, s.Navigate(View("checkout")))
	assert.Equal(t, Wishlist, s.Current())

	// the contact view needs a selected book
	require.NoError(t, s.Navigate(BookContact))
	assert.Equal(t, Borrow, s.Current())
}

func TestParseView(t *testing.T) {
	v, err := ParseView(" Book-Contact ")
	require.NoError(t, err)
	assert.Equal(t, BookContact, v)
	_, err = ParseView("settings")
	assert.Error(t, err)
}

func TestLogout(t *testing.T) {
	s := loggedIn(t)
	catalog := books.DefaultCatalog()
	s.AddToWishlist(catalog[0])
	s.AddToCart(CartItem{BookID: "b1", SalePrice: 300})
	require.NoError(t, s.SetFilter(books.FieldSubject, "Physics"))
	require.NoError(t, s.BorrowNow(catalog[1]))
	_, err := s.ConfirmBorrow(books.Date{Year: 2025, Month: 1, Day: 1})
	require.NoError(t, err)

	s.Logout()
	st := s.Snapshot()
	assert.Equal(t, Login, st.View)
	assert.Nil(t, st.Profile)
	assert.Nil(t, st.Selected)
	assert.Empty(t, st.Wishlist)
	assert.Empty(t, st.Cart)
	assert.Empty(t, st.Borrowed)
	assert.Empty(t, st.Lent)
	assert.Equal(t, books.DefaultCriteria(), st.Filter)
}

func TestSessionFilter(t *testing.T) {
	s := loggedIn(t)
	catalog := books.DefaultCatalog()
	assert.Len(t, s.Books(catalog), 8)

	require.NoError(t, s.SetFilter(books.FieldCollege, "VIT Bhopal"))
	got := s.Books(catalog)
	require.Len(t, got, 2)
	assert.Equal(t, "4", got[0].ID)
	assert.Equal(t, "8", got[1].ID)

	require.NoError(t, s.SetFilter(books.FieldSearch, "organic"))
	assert.Len(t, s.Books(catalog), 1)

	assert.Error(t, s.SetFilter("price", "100"))
	s.ResetFilter()
	assert.Len(t, s.Books(catalog), 8)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(DeliveryFeeOpt(40))
	id := r.Create()
	assert.Equal(t, 1, r.Len())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = r.With(id, func(s *Session) error {
				s.AddToCart(CartItem{BookID: string(rune('a' + i)), SalePrice: 10})
				return nil
			})
		}(i)
	}
	wg.Wait()

	err := r.With(id, func(s *Session) error {
		assert.Equal(t, CartTotals{Items: 20, Subtotal: 200, DeliveryFee: 40, Total: 240}, s.CartTotals())
		return nil
	})
	require.NoError(t, err)

	assert.ErrorIs(t, r.With("nope", func(*Session) error { return nil }), ErrNoSession)
	require.NoError(t, r.Delete(id))
	assert.ErrorIs(t, r.Delete(id), ErrNoSession)
	assert.Equal(t, 0, r.Len())
}
