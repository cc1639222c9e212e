package books

import (
	"errors"
	"math"
	"sync"
)

// ErrNotFound is returned when a book ID is not in the catalog.
var ErrNotFound = errors.New("book not found")

// BookData is the type that we use to contain the book data and wrap all the queries.
// This is intended to be an opaque data structure; use accessors and query methods
// to retrieve data. It is safe for concurrent use.
//
// Records come from two places: a catalog (set by Update) and records added one at a
// time at runtime (Add). Update replaces the catalog records only; added records stay,
// after the catalog, unless the new catalog has a record with the same ID.
type BookData struct {
	mu    sync.RWMutex
	books []BookRecord
	added []BookRecord
}

// NewBookData constructs a BookData object
func NewBookData() *BookData {
	return &BookData{
		books: make([]BookRecord, 0),
	}
}

// indexed copies bs, building the word index of any record that lacks one.
func indexed(bs []BookRecord) []BookRecord {
	out := make([]BookRecord, len(bs))
	copy(out, bs)
	for i := range out {
		if out[i].Words == nil {
			out[i].extractWords()
		}
	}
	return out
}

// Add appends one or more records to the BookData, preserving their order.
// Added records survive later calls to Update.
func (b *BookData) Add(bs ...BookRecord) {
	recs := indexed(bs)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.books = append(b.books, recs...)
	b.added = append(b.added, recs...)
}

// Update replaces the catalog records of the BookData with a copy of bs.
func (b *BookData) Update(bs []BookRecord) {
	recs := indexed(bs)
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make(map[string]struct{}, len(recs))
	for i := range recs {
		ids[recs[i].ID] = struct{}{}
	}
	kept := b.added[:0]
	for _, rec := range b.added {
		if _, dup := ids[rec.ID]; !dup {
			kept = append(kept, rec)
		}
	}
	b.added = kept
	b.books = append(recs, b.added...)
}

// Get retrieves a book by its ID, or returns false in its second argument.
// This searches linearly, which is fine at the size of a campus catalog.
func (b *BookData) Get(id string) (BookRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i := range b.books {
		if b.books[i].ID == id {
			return b.books[i], true
		}
	}
	return BookRecord{}, false
}

// Remove deletes a book by ID.
func (b *BookData) Remove(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.added {
		if b.added[i].ID == id {
			b.added = append(b.added[:i:i], b.added[i+1:]...)
			break
		}
	}
	for i := range b.books {
		if b.books[i].ID == id {
			b.books = append(b.books[:i:i], b.books[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// NBooks returns the number of books in the dataset.
func (b *BookData) NBooks() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.books)
}

// All returns a copy of every record, in catalog order.
func (b *BookData) All() []BookRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]BookRecord, len(b.books))
	copy(out, b.books)
	return out
}

// Filter applies FilterCriteria to the whole catalog.
func (b *BookData) Filter(criteria FilterCriteria) []BookRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Filter(b.books, criteria)
}

// SummaryData is the data structure used to return collection-level information
// about the data on hand.
type SummaryData struct {
	TotalBooks            int               `json:"total_books"`
	Subjects              map[string]int    `json:"subjects"`
	Colleges              map[string]int    `json:"colleges"`
	Conditions            map[Condition]int `json:"conditions"`
	AverageBorrowDuration int               `json:"average_borrow_duration"`
}

// Summary returns aggregated information about the data being stored.
func (b *BookData) Summary() SummaryData {
	sd := SummaryData{
		Subjects:   make(map[string]int),
		Colleges:   make(map[string]int),
		Conditions: make(map[Condition]int),
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	days := 0
	for i := range b.books {
		sd.TotalBooks++
		sd.Subjects[b.books[i].Subject]++
		sd.Colleges[b.books[i].LenderCollege]++
		sd.Conditions[b.books[i].Condition]++
		days += b.books[i].BorrowDuration
	}
	if sd.TotalBooks > 0 {
		sd.AverageBorrowDuration = int(math.Round(float64(days) / float64(sd.TotalBooks)))
	}
	return sd
}

// Query does a query against the book data according to a ConstraintSpec.
// It skips Page*Limit matches and returns at most Limit records, in catalog order.
func (b *BookData) Query(constraints *ConstraintSpec) []BookRecord {
	result := make([]BookRecord, 0)
	if constraints.Limit <= 0 {
		return result
	}
	pred := constraints.Predicate()
	skip := constraints.Limit * constraints.Page

	b.mu.RLock()
	defer b.mu.RUnlock()
	matchCount := 0
	for k := range b.books {
		if len(result) >= constraints.Limit {
			break
		}
		if !pred(b.books[k]) {
			continue
		}
		matchCount++
		if matchCount <= skip {
			continue
		}
		result = append(result, b.books[k])
	}
	return result
}
