package session

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pustaklink/pustaklink/pkg/books"
)

// Status is the state of a lend or borrow.
type Status string

// Lend and borrow states.
const (
	Active   Status = "active"
	Returned Status = "returned"
	Overdue  Status = "overdue"
)

// Placeholders for a posted book nobody has borrowed yet.
const (
	UnclaimedBorrower = "Available for lending"
	PendingContact    = "Pending"
)

// LentBook is a book this user has offered.
type LentBook struct {
	books.BookRecord
	DateIssued      books.Date `json:"date_issued"`
	ReturnDate      books.Date `json:"return_date"`
	BorrowerName    string     `json:"borrower_name"`
	BorrowerContact string     `json:"borrower_contact"`
	Status          Status     `json:"status"`
}

// BorrowedBook is a book this user has taken from someone else.
type BorrowedBook struct {
	books.BookRecord
	DateIssued    books.Date `json:"date_issued"`
	ReturnDate    books.Date `json:"return_date"`
	LenderContact string     `json:"lender_contact"`
	Status        Status     `json:"status"`
}

// LendForm is what a user fills in to offer a book.
type LendForm struct {
	Subject        string `json:"subject"`
	Title          string `json:"title"`
	Author         string `json:"author"`
	Condition      string `json:"condition"`
	BorrowDuration int    `json:"borrow_duration"`
}

// PostBook turns a lend form into a catalog record owned by the signed-in user,
// records it as lent from today, and returns home. The caller adds the record to the catalog.
func (s *Session) PostBook(form LendForm, today books.Date) (books.BookRecord, error) {
	if s.profile == nil {
		return books.BookRecord{}, ErrNotLoggedIn
	}
	cond, err := books.ParseCondition(form.Condition)
	if err != nil {
		return books.BookRecord{}, err
	}
	rec := books.BookRecord{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(form.Title),
		Author:         strings.TrimSpace(form.Author),
		Subject:        strings.TrimSpace(form.Subject),
		Condition:      cond,
		LenderName:     s.profile.Name,
		LenderCollege:  s.profile.College,
		LenderContact:  s.profile.Phone,
		LenderEmail:    s.profile.Email,
		BorrowDuration: form.BorrowDuration,
	}
	if err := rec.Validate(); err != nil {
		return books.BookRecord{}, err
	}
	s.lent = append(s.lent, LentBook{
		BookRecord:      rec,
		DateIssued:      today,
		ReturnDate:      today.AddDays(rec.BorrowDuration),
		BorrowerName:    UnclaimedBorrower,
		BorrowerContact: PendingContact,
		Status:          Active,
	})
	s.view = Home
	return rec, nil
}

// BorrowNow selects a book and opens its contact view.
func (s *Session) BorrowNow(book books.BookRecord) error {
	if s.profile == nil {
		return ErrNotLoggedIn
	}
	s.selected = &book
	s.view = BookContact
	return nil
}

// ConfirmBorrow records the selected book as borrowed from today and opens the profile.
func (s *Session) ConfirmBorrow(today books.Date) (BorrowedBook, error) {
	if s.profile == nil {
		return BorrowedBook{}, ErrNotLoggedIn
	}
	if s.selected == nil {
		return BorrowedBook{}, ErrNoSelection
	}
	bb := BorrowedBook{
		BookRecord:    *s.selected,
		DateIssued:    today,
		ReturnDate:    today.AddDays(s.selected.BorrowDuration),
		LenderContact: s.selected.LenderContact,
		Status:        Active,
	}
	s.borrowed = append(s.borrowed, bb)
	s.view = Profile
	return bb, nil
}

// MarkReturned closes every lend or borrow of the book with the given ID.
func (s *Session) MarkReturned(id string) error {
	found := false
	for i := range s.lent {
		if s.lent[i].ID == id && s.lent[i].Status != Returned {
			s.lent[i].Status = Returned
			found = true
		}
	}
	for i := range s.borrowed {
		if s.borrowed[i].ID == id && s.borrowed[i].Status != Returned {
			s.borrowed[i].Status = Returned
			found = true
		}
	}
	if !found {
		return fmt.Errorf("book %q: %w", id, ErrNotFound)
	}
	return nil
}

// RefreshStatuses marks active records whose return date has passed as overdue,
// and returns how many changed.
func (s *Session) RefreshStatuses(today books.Date) int {
	n := 0
	for i := range s.lent {
		if s.lent[i].Status == Active && s.lent[i].ReturnDate.CompareTo(today) < 0 {
			s.lent[i].Status = Overdue
			n++
		}
	}
	for i := range s.borrowed {
		if s.borrowed[i].Status == Active && s.borrowed[i].ReturnDate.CompareTo(today) < 0 {
			s.borrowed[i].Status = Overdue
			n++
		}
	}
	return n
}

// Lent returns a copy of the lent records.
func (s *Session) Lent() []LentBook {
	out := make([]LentBook, len(s.lent))
	copy(out, s.lent)
	return out
}

// Borrowed returns a copy of the borrowed records.
func (s *Session) Borrowed() []BorrowedBook {
	out := make([]BorrowedBook, len(s.borrowed))
	copy(out, s.borrowed)
	return out
}

// ProfileStats are the counters on the profile view.
type ProfileStats struct {
	Shared          int `json:"shared"`
	Borrowed        int `json:"borrowed"`
	ActiveLends     int `json:"active_lends"`
	ActiveBorrows   int `json:"active_borrows"`
	CommunityImpact int `json:"community_impact"`
}

// ProfileStats counts lends and borrows.
func (s *Session) ProfileStats() ProfileStats {
	ps := ProfileStats{Shared: len(s.lent), Borrowed: len(s.borrowed)}
	for _, l := range s.lent {
		if l.Status == Active {
			ps.ActiveLends++
		}
	}
	for _, b := range s.borrowed {
		if b.Status == Active {
			ps.ActiveBorrows++
		}
	}
	ps.CommunityImpact = ps.Shared + ps.Borrowed
	return ps
}
