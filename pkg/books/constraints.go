package books

import (
	"errors"
	"regexp"
	"strings"
)

// createRegex constructs a regex from a glob-style expression.
// glob-style: . means any single character and _ means any number of characters.
// This is similar to file pattern matching on the command line, except that ? and * are replaced
// by . and _, in order to be URL-safe.
//
// The expression is evaluated against the entire string, and case is insignificant.
// For example, if a list of lenders is Rahul, Priya, Priyanka, and Ravi, these are matches for
// various globs:
// Priya_ matches Priya and Priyanka
// Priya matches only Priya
// R.v_ matches Ravi
// _a.i matches Ravi
func createRegex(value string) (*regexp.Regexp, error) {
	// quote everything else so that a title like "C++" is safe to glob against.
	parts := strings.Split(value, "_")
	for i := range parts {
		dots := strings.Split(parts[i], ".")
		for j := range dots {
			dots[j] = regexp.QuoteMeta(dots[j])
		}
		parts[i] = strings.Join(dots, ".")
	}
	return regexp.Compile("(?is:^" + strings.Join(parts, ".*") + "$)")
}

// ConstraintFromText creates a ConstraintFunctor by parsing name and value fields.
//
// Constraints supported are:
// search, any: value matches title OR author
// title: value matches title field
// author, auth: value matches author field
// subject, subj: value matches subject field
// college, coll: value matches the lender's college
// lender: value matches the lender's name
// condition, cond: value is one of excellent, good, fair, poor; multiple values separated by .
// days: value is a borrow duration in days, or a range with one end omitted (14, 7-14, -10, 14-)
//
// All matches are case-insensitive. For non-glob queries, the specified string is tested at
// word boundaries for the specified field or fields.
// If the subject is "Computer Science", "science" is considered a match, but "sci" is not.
//
// Patterns can be specified with "glob-style" queries, which are queries whose names
// are preceded by a tilde (~) character. See createRegex for the glob rules.
//
// Names can also be preceded by a hyphen (-) character, which means that the match is
// inverted -- matched items are *excluded* from the results. If an item is included by
// one constraint but excluded by another, the exclusion wins.
//
// Both - and ~ can be used on the same name in either order.
//
// The return values are the generated constraint functor, a boolean indicating if the
// constraint is an exclude constraint, and an error.
func ConstraintFromText(name string, value string) (ConstraintFunctor, bool, error) {
	exclude := false
	useRegexp := false
	name = strings.ToLower(name)
	value = strings.ToLower(value)
outer:
	for len(name) > 0 {
		switch name[0] {
		case '-':
			exclude = true
			name = name[1:]
		case '~':
			useRegexp = true
			name = name[1:]
		default:
			break outer
		}
	}
	var pat *regexp.Regexp
	var err error
	if useRegexp {
		pat, err = createRegex(value)
		if err != nil {
			return nilFunctor, false, err
		}
	}

	// pick picks the glob or the word-boundary form of the same field test
	pick := func(gen ConstraintFunctorGen) ConstraintFunctor {
		if useRegexp {
			return gen(pat)
		}
		return testWords(value, gen)
	}

	retfunc := nilFunctor
	switch name {
	case "search", "any":
		retfunc = Or(pick(matchTitle), pick(matchAuthor))
	case "title":
		retfunc = pick(matchTitle)
	case "author", "auth":
		retfunc = pick(matchAuthor)
	case "subject", "subj":
		retfunc = pick(matchSubject)
	case "college", "coll":
		retfunc = pick(matchCollege)
	case "lender":
		retfunc = pick(matchLender)
	case "condition", "cond":
		retfunc = testCondition(value)
	case "days":
		splits := strings.Split(value, "-")
		if len(splits) == 1 {
			retfunc = testDays(splits[0], daysEQ)
		} else if len(splits) == 2 {
			retfunc = And(testDays(splits[0], daysGE), testDays(splits[1], daysLE))
		}
	default:
		return retfunc, false, errors.New("bad constraint definition")
	}
	return retfunc, exclude, nil
}
