// Package listings is the priced marketplace: students list textbooks for sale,
// browse active listings, mark them sold, and report bad ones.
// Everything is kept in memory.
package listings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Errors returned by the store.
var (
	ErrNotFound = errors.New("listing not found")
	ErrInvalid  = errors.New("invalid listing")
)

// Listing conditions, best first.
const (
	New     = "new"
	LikeNew = "like_new"
	Used    = "used"
	Worn    = "worn"
)

// Conditions lists the valid listing conditions.
var Conditions = []string{New, LikeNew, Used, Worn}

// Sort orders accepted by Query.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

// DefaultLimit is the page size when a query names none.
const DefaultLimit = 20

// Listing is a textbook offered for sale.
type Listing struct {
	ID          int64     `json:"id"`
	ISBN        string    `json:"isbn"`
	Price       float64   `json:"price"`
	Condition   string    `json:"condition"`
	Subject     string    `json:"subject"`
	Semester    int       `json:"semester"`
	Edition     int       `json:"edition"`
	Description string    `json:"description,omitempty"`
	Images      []string  `json:"images,omitempty"`
	Location    string    `json:"location"`
	SellerID    int64     `json:"seller_id"`
	CreatedAt   time.Time `json:"created_at"`
	IsActive    bool      `json:"is_active"`
}

// ListingCreate is the body of a new listing.
type ListingCreate struct {
	ISBN        string   `json:"isbn"`
	Price       float64  `json:"price"`
	Condition   string   `json:"condition"`
	Subject     string   `json:"subject"`
	Semester    int      `json:"semester"`
	Edition     int      `json:"edition"`
	Description string   `json:"description,omitempty"`
	Images      []string `json:"images,omitempty"`
	Location    string   `json:"location"`
	SellerID    int64    `json:"seller_id,omitempty"`
}

// Validate checks the required fields and ranges.
func (lc ListingCreate) Validate() error {
	switch {
	case strings.TrimSpace(lc.ISBN) == "":
		return fmt.Errorf("%w: isbn is required", ErrInvalid)
	case strings.TrimSpace(lc.Subject) == "":
		return fmt.Errorf("%w: subject is required", ErrInvalid)
	case strings.TrimSpace(lc.Location) == "":
		return fmt.Errorf("%w: location is required", ErrInvalid)
	case lc.Price < 0:
		return fmt.Errorf("%w: price cannot be negative", ErrInvalid)
	case lc.Semester < 1 || lc.Semester > 8:
		return fmt.Errorf("%w: semester must be between 1 and 8", ErrInvalid)
	case lc.Edition < 1:
		return fmt.Errorf("%w: edition must be at least 1", ErrInvalid)
	}
	for _, c := range Conditions {
		if lc.Condition == c {
			return nil
		}
	}
	return fmt.Errorf("%w: condition must be one of %s", ErrInvalid, strings.Join(Conditions, ", "))
}

// Query narrows and orders the active listings. Zero values mean "no constraint",
// except that Limit 0 means DefaultLimit.
type Query struct {
	Subject   string
	College   string
	Semester  int
	PriceMin  *float64
	PriceMax  *float64
	Condition string
	Edition   int
	Sort      string
	Limit     int
	Offset    int
}

func (q Query) matches(l *Listing) bool {
	switch {
	case !l.IsActive:
		return false
	case q.Subject != "" && !strings.Contains(strings.ToLower(l.Subject), strings.ToLower(q.Subject)):
		return false
	case q.College != "" && !strings.Contains(strings.ToLower(l.Location), strings.ToLower(q.College)):
		return false
	case q.Semester != 0 && l.Semester != q.Semester:
		return false
	case q.PriceMin != nil && l.Price < *q.PriceMin:
		return false
	case q.PriceMax != nil && l.Price > *q.PriceMax:
		return false
	case q.Condition != "" && l.Condition != q.Condition:
		return false
	case q.Edition != 0 && l.Edition != q.Edition:
		return false
	}
	return true
}

// Report flags a listing for moderation.
type Report struct {
	ID          int64     `json:"id"`
	ListingID   int64     `json:"listing_id"`
	ReporterID  int64     `json:"reporter_id"`
	Reason      string    `json:"reason"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReportCreate is the body of a new report.
type ReportCreate struct {
	ListingID   int64  `json:"listing_id"`
	ReporterID  int64  `json:"reporter_id,omitempty"`
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

// Store holds listings and reports. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	listings []*Listing
	reports  []Report
	nextID   int64
	nextRep  int64
	maxLimit int
	now      func() time.Time
}

// Option modifies a Store as it is created.
type Option func(*Store)

// MaxLimitOpt caps the page size of a query.
func MaxLimitOpt(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// ClockOpt replaces the time source used for created_at.
func ClockOpt(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty store.
func NewStore(options ...Option) *Store {
	s := &Store{
		maxLimit: 100,
		now:      time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Create validates and stores a new active listing.
func (s *Store) Create(ctx context.Context, lc ListingCreate) (Listing, error) {
	if err := ctx.Err(); err != nil {
		return Listing{}, err
	}
	if err := lc.Validate(); err != nil {
		return Listing{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	l := &Listing{
		ID:          s.nextID,
		ISBN:        strings.TrimSpace(lc.ISBN),
		Price:       lc.Price,
		Condition:   lc.Condition,
		Subject:     strings.TrimSpace(lc.Subject),
		Semester:    lc.Semester,
		Edition:     lc.Edition,
		Description: lc.Description,
		Images:      append([]string(nil), lc.Images...),
		Location:    strings.TrimSpace(lc.Location),
		SellerID:    lc.SellerID,
		CreatedAt:   s.now().UTC(),
		IsActive:    true,
	}
	s.listings = append(s.listings, l)
	return *l, nil
}

func (s *Store) find(id int64) *Listing {
	for _, l := range s.listings {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// Get returns an active listing.
func (s *Store) Get(ctx context.Context, id int64) (Listing, error) {
	if err := ctx.Err(); err != nil {
		return Listing{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l := s.find(id)
	if l == nil || !l.IsActive {
		return Listing{}, ErrNotFound
	}
	return *l, nil
}

// Query returns one page of the active listings that match q.
func (s *Store) Query(ctx context.Context, q Query) ([]Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch {
	case q.Limit < 0:
		return nil, fmt.Errorf("%w: limit must be at least 1", ErrInvalid)
	case q.Offset < 0:
		return nil, fmt.Errorf("%w: offset cannot be negative", ErrInvalid)
	case q.Limit == 0:
		q.Limit = DefaultLimit
	}
	if q.Limit > s.maxLimit {
		q.Limit = s.maxLimit
	}

	s.mu.RLock()
	matched := make([]Listing, 0)
	for _, l := range s.listings {
		if q.matches(l) {
			matched = append(matched, *l)
		}
	}
	s.mu.RUnlock()

	var less func(a, b Listing) bool
	switch q.Sort {
	case SortPriceAsc:
		less = func(a, b Listing) bool { return a.Price < b.Price }
	case SortPriceDesc:
		less = func(a, b Listing) bool { return a.Price > b.Price }
	default:
		less = func(a, b Listing) bool {
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID > b.ID
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return less(matched[i], matched[j]) })

	if q.Offset >= len(matched) {
		return []Listing{}, nil
	}
	end := q.Offset + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[q.Offset:end], nil
}

// MarkSold takes a listing off the market. Marking a sold listing again is not an error.
func (s *Store) MarkSold(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.find(id)
	if l == nil {
		return ErrNotFound
	}
	l.IsActive = false
	return nil
}

// Report files a report against an active listing.
func (s *Store) Report(ctx context.Context, rc ReportCreate) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	if strings.TrimSpace(rc.Reason) == "" {
		return Report{}, fmt.Errorf("%w: reason is required", ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.find(rc.ListingID)
	if l == nil || !l.IsActive {
		return Report{}, ErrNotFound
	}
	s.nextRep++
	r := Report{
		ID:          s.nextRep,
		ListingID:   rc.ListingID,
		ReporterID:  rc.ReporterID,
		Reason:      strings.TrimSpace(rc.Reason),
		Description: rc.Description,
		CreatedAt:   s.now().UTC(),
	}
	s.reports = append(s.reports, r)
	return r, nil
}

// Reports lists the reports filed against a listing, oldest first.
func (s *Store) Reports(ctx context.Context, listingID int64) ([]Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Report, 0)
	for _, r := range s.reports {
		if r.ListingID == listingID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Len counts every listing, sold or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings)
}
