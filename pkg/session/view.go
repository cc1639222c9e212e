package session

import (
	"fmt"
	"strings"
)

// View identifies which screen a session is looking at.
type View string

// The views a session moves between.
const (
	Login       View = "login"
	Home        View = "home"
	Lend        View = "lend"
	Borrow      View = "borrow"
	BookContact View = "book-contact"
	Profile     View = "profile"
	Wishlist    View = "wishlist"
	Buy         View = "buy"
	Cart        View = "cart"
	Payment     View = "payment"
)

var views = []View{Login, Home, Lend, Borrow, BookContact, Profile, Wishlist, Buy, Cart, Payment}

// ParseView accepts a view name in any case.
func ParseView(s string) (View, error) {
	v := View(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range views {
		if v == valid {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown view %q", s)
}
