package books

import (
	"fmt"
	"strings"
)

// Sentinel values for the exact-match fields. Any of them, or an empty string,
// means "no constraint". Comparison against them is exact.
const (
	All           = "All"
	AllSubjects   = "All Subjects"
	AllCampuses   = "All Campuses"
	AllColleges   = "All Colleges"
	AllConditions = "All Conditions"
)

var sentinels = map[string]bool{
	All:           true,
	AllSubjects:   true,
	AllCampuses:   true,
	AllColleges:   true,
	AllConditions: true,
}

// Criteria field names, as used in query strings and by Set.
const (
	FieldSearch    = "search"
	FieldSubject   = "subject"
	FieldAuthor    = "author"
	FieldCollege   = "college"
	FieldCondition = "condition"
)

// FilterCriteria is the set of optional predicates a user narrows the catalog with.
// The zero value matches every record.
type FilterCriteria struct {
	Search    string `json:"search,omitempty" query:"search"`
	Subject   string `json:"subject,omitempty" query:"subject"`
	Author    string `json:"author,omitempty" query:"author"`
	College   string `json:"college,omitempty" query:"college"`
	Condition string `json:"condition,omitempty" query:"condition"`
}

// DefaultCriteria is what a freshly opened browse view starts with.
func DefaultCriteria() FilterCriteria {
	return FilterCriteria{
		Subject:   AllSubjects,
		College:   AllCampuses,
		Condition: AllConditions,
	}
}

// Set changes one field by name.
func (fc *FilterCriteria) Set(field, value string) error {
	switch strings.ToLower(field) {
	case FieldSearch:
		fc.Search = value
	case FieldSubject:
		fc.Subject = value
	case FieldAuthor:
		fc.Author = value
	case FieldCollege:
		fc.College = value
	case FieldCondition:
		fc.Condition = value
	default:
		return fmt.Errorf("unknown filter field %q", field)
	}
	return nil
}

// IsEmpty is true when no field constrains anything.
func (fc FilterCriteria) IsEmpty() bool {
	return len(fc.Constraints()) == 0
}

func unset(v string) bool {
	return v == "" || sentinels[v]
}

// Constraints translates the active criteria into functors, one per active field.
func (fc FilterCriteria) Constraints() []ConstraintFunctor {
	cfs := make([]ConstraintFunctor, 0, 5)
	if fc.Search != "" {
		cfs = append(cfs, Or(testContains(titleField, fc.Search), testContains(authorField, fc.Search)))
	}
	if !unset(fc.Subject) {
		cfs = append(cfs, testEquals(subjectField, fc.Subject))
	}
	if fc.Author != "" {
		cfs = append(cfs, testContains(authorField, fc.Author))
	}
	if !unset(fc.College) {
		cfs = append(cfs, testEquals(collegeField, fc.College))
	}
	if !unset(fc.Condition) {
		cfs = append(cfs, testEquals(conditionField, fc.Condition))
	}
	return cfs
}

// Predicate combines all active criteria with And.
func (fc FilterCriteria) Predicate() ConstraintFunctor {
	cfs := fc.Constraints()
	if len(cfs) == 0 {
		return anyFunctor
	}
	return And(cfs...)
}

// Filter returns the records that satisfy every active criterion, in their original order.
// It never fails: empty criteria return everything, and values that no record has
// simply match nothing. The input slice is not modified.
func Filter(records []BookRecord, criteria FilterCriteria) []BookRecord {
	pred := criteria.Predicate()
	result := make([]BookRecord, 0, len(records))
	for i := range records {
		if pred(records[i]) {
			result = append(result, records[i])
		}
	}
	return result
}
