package books

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kentquirk/stringset/v2"
)

// Condition is the physical condition of a shared book.
type Condition string

// These are the only conditions a lender can choose from.
const (
	Excellent Condition = "excellent"
	Good      Condition = "good"
	Fair      Condition = "fair"
	Poor      Condition = "poor"
)

// Conditions lists the valid conditions, best first.
var Conditions = []Condition{Excellent, Good, Fair, Poor}

// ParseCondition accepts a condition name in any case.
func ParseCondition(s string) (Condition, error) {
	c := Condition(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range Conditions {
		if c == valid {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown condition %q", s)
}

// BookRecord is a single book offered for free lending.
type BookRecord struct {
	ID             string    `json:"id" yaml:"id"`
	Title          string    `json:"title" yaml:"title"`
	Author         string    `json:"author" yaml:"author"`
	Subject        string    `json:"subject" yaml:"subject"`
	Condition      Condition `json:"condition" yaml:"condition"`
	LenderName     string    `json:"lender_name" yaml:"lender_name"`
	LenderCollege  string    `json:"lender_college" yaml:"lender_college"`
	LenderContact  string    `json:"lender_contact" yaml:"lender_contact"`
	LenderEmail    string    `json:"lender_email,omitempty" yaml:"lender_email,omitempty"`
	BorrowDuration int       `json:"borrow_duration" yaml:"borrow_duration"`

	Words *stringset.StringSet `json:"-" yaml:"-"`
}

// wordPat is a pattern we use when we need to extract all the alphanumeric elements in a string
var wordPat = regexp.MustCompile("[^a-z0-9_]+")

// GetWords retrieves a lowercased list of alphanumeric strings from an input string
func GetWords(s string) []string {
	splits := wordPat.Split(strings.ToLower(s), -1)
	words := splits[:0]
	for _, w := range splits {
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// extractWords fills in the word index used by the word-boundary constraints.
func (b *BookRecord) extractWords() {
	w := stringset.New().Add(GetWords(b.Title)...)
	w.Add(GetWords(b.Author)...)
	w.Add(GetWords(b.Subject)...)
	w.Add(GetWords(b.LenderName)...)
	w.Add(GetWords(b.LenderCollege)...)
	b.Words = w
}

// Validate checks the fields a lender is required to fill in.
func (b BookRecord) Validate() error {
	switch {
	case strings.TrimSpace(b.Title) == "":
		return fmt.Errorf("book %q: title is required", b.ID)
	case strings.TrimSpace(b.Author) == "":
		return fmt.Errorf("book %q: author is required", b.ID)
	case strings.TrimSpace(b.Subject) == "":
		return fmt.Errorf("book %q: subject is required", b.ID)
	case b.BorrowDuration <= 0:
		return fmt.Errorf("book %q: borrow duration must be positive, got %d", b.ID, b.BorrowDuration)
	}
	if _, err := ParseCondition(string(b.Condition)); err != nil {
		return fmt.Errorf("book %q: %w", b.ID, err)
	}
	return nil
}
