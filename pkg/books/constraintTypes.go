package books

import "regexp"

// ConstraintFunctor is the type of the function used to evaluate a constraint.
type ConstraintFunctor func(BookRecord) bool

// ConstraintFunctorGen is a function that generates a ConstraintFunctor from a pattern.
type ConstraintFunctorGen func(pat *regexp.Regexp) ConstraintFunctor

// ConstraintCombiner is an operator that can combine a set of constraints, like AND or OR.
type ConstraintCombiner func(...ConstraintFunctor) ConstraintFunctor

// ConstraintSpec is used to store a complete set of constraints.
// Page is in units of a multiple of Limit.
type ConstraintSpec struct {
	Includes        []ConstraintFunctor
	IncludeCombiner ConstraintCombiner
	Excludes        []ConstraintFunctor
	ExcludeCombiner ConstraintCombiner
	Limit           int
	Page            int
}

// NewConstraintSpec creates an empty constraint spec that will return all results 25 at a time.
func NewConstraintSpec() *ConstraintSpec {
	return &ConstraintSpec{
		Includes:        make([]ConstraintFunctor, 0),
		IncludeCombiner: And,
		Excludes:        make([]ConstraintFunctor, 0),
		ExcludeCombiner: Or,
		Limit:           25,
		Page:            0,
	}
}

// Predicate folds the spec into a single functor, ignoring Limit and Page.
// An empty include list means include all; an empty exclude list means exclude none.
// If a record is included by one constraint but excluded by another, the exclusion wins.
func (cs *ConstraintSpec) Predicate() ConstraintFunctor {
	include := anyFunctor
	if len(cs.Includes) != 0 {
		include = cs.IncludeCombiner(cs.Includes...)
	}
	if len(cs.Excludes) == 0 {
		return include
	}
	exclude := cs.ExcludeCombiner(cs.Excludes...)
	return func(rec BookRecord) bool {
		return include(rec) && !exclude(rec)
	}
}
