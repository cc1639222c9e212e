package books

// RecordFilter is a function that evaluates a BookRecord while loading and returns
// true if the record "passes". Only if a record passes all filters is
// it included in the output.
type RecordFilter func(*BookRecord) bool

// CollegeFilter is a convenience function that returns a RecordFilter which
// returns true if the lender belongs to any of the colleges specified.
// With no colleges it passes everything.
func CollegeFilter(colleges ...string) RecordFilter {
	return func(b *BookRecord) bool {
		if len(colleges) == 0 {
			return true
		}
		for _, c := range colleges {
			if b.LenderCollege == c {
				return true
			}
		}
		return false
	}
}

// ConditionFilter is a convenience function that returns a RecordFilter which
// returns true if the book is in any one of the specified conditions.
func ConditionFilter(conditions ...Condition) RecordFilter {
	return func(b *BookRecord) bool {
		for _, c := range conditions {
			if b.Condition == c {
				return true
			}
		}
		return false
	}
}
