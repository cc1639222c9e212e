package books

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kentquirk/stringset/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// fieldFunc extracts one text field from a record.
type fieldFunc func(BookRecord) string

func titleField(rec BookRecord) string   { return rec.Title }
func authorField(rec BookRecord) string  { return rec.Author }
func subjectField(rec BookRecord) string { return rec.Subject }
func collegeField(rec BookRecord) string { return rec.LenderCollege }
func lenderField(rec BookRecord) string  { return rec.LenderName }
func conditionField(rec BookRecord) string {
	return string(rec.Condition)
}

func nilFunctor(BookRecord) bool {
	return false
}

func anyFunctor(BookRecord) bool {
	return true
}

// This pattern tests for a case-independent complete word
var wholeWord = `(?is:\b%s\b)`

// fold normalizes a string for case-insensitive comparison.
// A Caser is stateful, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// Or returns the logical OR of a set of functors; if any one of them returns true, the result is true.
// Uses short-circuit evaluation.
// If there are no arguments, returns nilFunctor.
func Or(cfs ...ConstraintFunctor) ConstraintFunctor {
	if len(cfs) == 0 {
		return nilFunctor
	}
	return func(rec BookRecord) bool {
		for _, cf := range cfs {
			if cf(rec) {
				return true
			}
		}
		return false
	}
}

// And returns the logical AND of a set of functors; returns true only if all of them return true.
// Uses short-circuit evaluation.
// If there are no arguments, returns nilFunctor.
func And(cfs ...ConstraintFunctor) ConstraintFunctor {
	if len(cfs) == 0 {
		return nilFunctor
	}
	return func(rec BookRecord) bool {
		for _, cf := range cfs {
			if !cf(rec) {
				return false
			}
		}
		return true
	}
}

// Not inverts a functor.
func Not(cf ConstraintFunctor) ConstraintFunctor {
	return func(rec BookRecord) bool {
		return !cf(rec)
	}
}

// testContains matches when the field contains value, ignoring case.
func testContains(field fieldFunc, value string) ConstraintFunctor {
	v := fold(value)
	return func(rec BookRecord) bool {
		return strings.Contains(fold(field(rec)), v)
	}
}

// testEquals matches when the field is exactly value. No folding, no trimming.
func testEquals(field fieldFunc, value string) ConstraintFunctor {
	return func(rec BookRecord) bool {
		return field(rec) == value
	}
}

// testWords evaluates a value to see if it even possibly matches any of the whole words
// in the query before passing it on to a regexp-based matcher.
func testWords(value string, matchGen ConstraintFunctorGen) ConstraintFunctor {
	words := stringset.New().Add(GetWords(value)...)
	pat, err := regexp.Compile(fmt.Sprintf(wholeWord, regexp.QuoteMeta(value)))
	if err != nil {
		return nilFunctor
	}
	f := matchGen(pat)
	return func(rec BookRecord) bool {
		if rec.Words != nil && words.Intersection(rec.Words).Length() != words.Length() {
			return false
		}
		// we know all the words in the search term were found in this
		// record, but now we have to test to see if they're actually in the desired field.
		return f(rec)
	}
}

func matchField(field fieldFunc) ConstraintFunctorGen {
	return func(pat *regexp.Regexp) ConstraintFunctor {
		return func(rec BookRecord) bool {
			return pat.MatchString(field(rec))
		}
	}
}

var (
	matchTitle   = matchField(titleField)
	matchAuthor  = matchField(authorField)
	matchSubject = matchField(subjectField)
	matchCollege = matchField(collegeField)
	matchLender  = matchField(lenderField)
)

// tests conditions for exact equality, and allows multiple conditions
// separated by period (.)
func testCondition(value string) ConstraintFunctor {
	conds := strings.Split(value, ".")
	return func(rec BookRecord) bool {
		for _, c := range conds {
			if string(rec.Condition) == c {
				return true
			}
		}
		return false
	}
}

type dayComparison int

// These comparisons are for the borrow duration of the book as compared to the target.
const (
	daysEQ dayComparison = iota
	daysGE
	daysLE
)

// testDays checks the book's borrow duration. An empty value matches everything,
// so that open-ended ranges like "14-" work.
func testDays(value string, cmp dayComparison) ConstraintFunctor {
	if value == "" {
		return anyFunctor
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nilFunctor
	}
	return func(rec BookRecord) bool {
		switch cmp {
		case daysEQ:
			return rec.BorrowDuration == n
		case daysGE:
			return rec.BorrowDuration >= n
		case daysLE:
			return rec.BorrowDuration <= n
		default:
			return false
		}
	}
}
