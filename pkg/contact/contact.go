// Package contact builds the deep links a borrower uses to reach a lender:
// a phone call, an email with a prefilled request, and a WhatsApp message.
package contact

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pustaklink/pustaklink/pkg/books"
	"github.com/pustaklink/pustaklink/pkg/session"
)

// Channel names a way of reaching a lender.
type Channel string

// The supported channels.
const (
	Phone    Channel = "tel"
	Email    Channel = "mailto"
	WhatsApp Channel = "whatsapp"
)

// Requester is the student asking for a book.
type Requester = session.UserProfile

// Links holds one deep link per channel.
type Links struct {
	Tel      string `json:"tel"`
	Mailto   string `json:"mailto"`
	WhatsApp string `json:"whatsapp"`
}

// Get returns the link for a channel.
func (l Links) Get(ch Channel) (string, error) {
	switch ch {
	case Phone:
		return l.Tel, nil
	case Email:
		return l.Mailto, nil
	case WhatsApp:
		return l.WhatsApp, nil
	default:
		return "", fmt.Errorf("unknown channel %q", ch)
	}
}

// encodeURIComponent escapes s the way browsers do for a URI component:
// everything but letters, digits and -_.!~*'() is percent-encoded, spaces as %20.
func encodeURIComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// digits keeps only the ASCII digits of s.
func digits(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Tel is a telephone link. The number is used as given.
func Tel(phone string) string {
	return "tel:" + phone
}

// Mailto is an email link; email may be empty, leaving the recipient for the user to fill in.
func Mailto(email, subject, body string) string {
	return fmt.Sprintf("mailto:%s?subject=%s&body=%s", email, encodeURIComponent(subject), encodeURIComponent(body))
}

// WhatsAppLink opens a chat with a phone number, which is reduced to its digits.
func WhatsAppLink(phone, text string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", digits(phone), encodeURIComponent(text))
}

// EmailSubject is the subject line of a borrow request.
func EmailSubject(book books.BookRecord) string {
	return "Book Request: " + book.Title
}

// EmailBody is the body of a borrow request.
func EmailBody(book books.BookRecord, requester Requester) string {
	return fmt.Sprintf("Hi %s,\n\nI'm interested in borrowing your book \"%s\" by %s.\n\n"+
		"My details:\nName: %s\nCollege: %s\nPhone: %s\nEmail: %s\n\n"+
		"Let me know when would be a good time to arrange the pickup.\n\nThanks!\n%s",
		book.LenderName, book.Title, book.Author,
		requester.Name, requester.College, requester.Phone, requester.Email,
		requester.Name)
}

// WhatsAppMessage is the chat message of a borrow request.
func WhatsAppMessage(book books.BookRecord, requester Requester) string {
	return fmt.Sprintf("Hi %s! I'm interested in borrowing your book \"%s\" by %s. I'm %s from %s. Can we arrange a pickup? 📚",
		book.LenderName, book.Title, book.Author, requester.Name, requester.College)
}

// ForBook builds every link a requester needs to ask for a book.
func ForBook(book books.BookRecord, requester Requester) Links {
	return Links{
		Tel:      Tel(book.LenderContact),
		Mailto:   Mailto(book.LenderEmail, EmailSubject(book), EmailBody(book, requester)),
		WhatsApp: WhatsAppLink(book.LenderContact, WhatsAppMessage(book, requester)),
	}
}
