package session

import (
	"math"

	"github.com/kentquirk/stringset/v2"

	"github.com/pustaklink/pustaklink/pkg/books"
)

// AddToWishlist appends book unless a book with the same ID is already there.
// It returns true if the book was added.
func (s *Session) AddToWishlist(book books.BookRecord) bool {
	if s.InWishlist(book.ID) {
		return false
	}
	s.wishlist = append(s.wishlist, book)
	return true
}

// RemoveFromWishlist drops the book with the given ID; it returns false if it wasn't there.
func (s *Session) RemoveFromWishlist(id string) bool {
	for i := range s.wishlist {
		if s.wishlist[i].ID == id {
			s.wishlist = append(s.wishlist[:i:i], s.wishlist[i+1:]...)
			return true
		}
	}
	return false
}

// ToggleWishlist adds the book if absent and removes it if present.
// It returns whether the book is in the wishlist afterwards.
func (s *Session) ToggleWishlist(book books.BookRecord) bool {
	if s.RemoveFromWishlist(book.ID) {
		return false
	}
	s.wishlist = append(s.wishlist, book)
	return true
}

// InWishlist reports whether a book ID is in the wishlist.
func (s *Session) InWishlist(id string) bool {
	for i := range s.wishlist {
		if s.wishlist[i].ID == id {
			return true
		}
	}
	return false
}

// ClearWishlist empties the wishlist.
func (s *Session) ClearWishlist() {
	s.wishlist = nil
}

// Wishlist returns a copy of the wishlist in insertion order.
func (s *Session) Wishlist() []books.BookRecord {
	out := make([]books.BookRecord, len(s.wishlist))
	copy(out, s.wishlist)
	return out
}

// WishlistStats summarizes the wishlist.
type WishlistStats struct {
	Count                 int `json:"count"`
	Subjects              int `json:"subjects"`
	AverageBorrowDuration int `json:"average_borrow_duration"`
}

// WishlistStats counts the books and distinct subjects, and averages the borrow duration
// rounded to whole days. An empty wishlist averages to 0.
func (s *Session) WishlistStats() WishlistStats {
	subjects := stringset.New()
	days := 0
	for _, b := range s.wishlist {
		subjects.Add(b.Subject)
		days += b.BorrowDuration
	}
	st := WishlistStats{Count: len(s.wishlist), Subjects: subjects.Length()}
	if st.Count > 0 {
		st.AverageBorrowDuration = int(math.Round(float64(days) / float64(st.Count)))
	}
	return st
}

// CartItem is a book offered for sale in the buy view.
type CartItem struct {
	BookID        string `json:"book_id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Subject       string `json:"subject"`
	SellerName    string `json:"seller_name"`
	SellerCollege string `json:"seller_college"`
	MRP           int    `json:"mrp"`
	SalePrice     int    `json:"sale_price"`
}

// AddToCart appends item unless its BookID is already in the cart.
func (s *Session) AddToCart(item CartItem) bool {
	if s.InCart(item.BookID) {
		return false
	}
	s.cart = append(s.cart, item)
	return true
}

// RemoveFromCart drops an item by BookID.
func (s *Session) RemoveFromCart(id string) bool {
	for i := range s.cart {
		if s.cart[i].BookID == id {
			s.cart = append(s.cart[:i:i], s.cart[i+1:]...)
			return true
		}
	}
	return false
}

// ToggleCart adds the item if absent and removes it if present.
func (s *Session) ToggleCart(item CartItem) bool {
	if s.RemoveFromCart(item.BookID) {
		return false
	}
	s.cart = append(s.cart, item)
	return true
}

// InCart reports whether a book ID is in the cart.
func (s *Session) InCart(id string) bool {
	for i := range s.cart {
		if s.cart[i].BookID == id {
			return true
		}
	}
	return false
}

// Cart returns a copy of the cart in insertion order.
func (s *Session) Cart() []CartItem {
	out := make([]CartItem, len(s.cart))
	copy(out, s.cart)
	return out
}

// CartTotals is what the cart and payment views display.
type CartTotals struct {
	Items       int `json:"items"`
	Subtotal    int `json:"subtotal"`
	DeliveryFee int `json:"delivery_fee"`
	Total       int `json:"total"`
}

// CartTotals sums the sale prices; the delivery fee applies only to a non-empty cart.
func (s *Session) CartTotals() CartTotals {
	ct := CartTotals{Items: len(s.cart)}
	for _, item := range s.cart {
		ct.Subtotal += item.SalePrice
	}
	if ct.Items > 0 {
		ct.DeliveryFee = s.deliveryFee
	}
	ct.Total = ct.Subtotal + ct.DeliveryFee
	return ct
}

// ProceedToPayment moves a non-empty cart to the payment view and returns its totals.
// Nothing is charged.
func (s *Session) ProceedToPayment() (CartTotals, error) {
	if s.profile == nil {
		return CartTotals{}, ErrNotLoggedIn
	}
	if len(s.cart) == 0 {
		return CartTotals{}, ErrEmptyCart
	}
	s.view = Payment
	return s.CartTotals(), nil
}

// CompletePayment empties the cart and returns home.
func (s *Session) CompletePayment() {
	s.cart = nil
	s.view = Home
}
