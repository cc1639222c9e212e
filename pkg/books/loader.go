package books

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed data/catalog.yaml
var defaultCatalog []byte

// ErrEmptyCatalog is returned when a catalog file has no books key at all, which is
// what an empty or truncated file decodes to.
var ErrEmptyCatalog = errors.New("empty catalog")

// yamlCatalog is the structure of a catalog file.
type yamlCatalog struct {
	Books []BookRecord `yaml:"books"`
}

// Loader loads a YAML catalog given a reader to it
type Loader struct {
	reader   io.Reader
	filters  []RecordFilter
	loadOnly int
}

// LoaderOption is the type of a function used to set loader options;
// It modifies the Loader passed into it.
type LoaderOption func(*Loader)

// LoadResult reports what a load did.
type LoadResult struct {
	Loaded  int
	Skipped int
	// Invalid holds one error per record that failed validation.
	Invalid []error
}

// NewLoader constructs a catalog Loader from a reader.
func NewLoader(r io.Reader, options ...LoaderOption) *Loader {
	loader := &Loader{reader: r}
	for _, opt := range options {
		opt(loader)
	}
	return loader
}

// RecordFilterOpt returns a LoaderOption that adds a RecordFilter
func RecordFilterOpt(f RecordFilter) LoaderOption {
	return func(ldr *Loader) {
		ldr.filters = append(ldr.filters, f)
	}
}

// LoadAtMostOpt returns a LoaderOption that limits the number of items loaded
func LoadAtMostOpt(n int) LoaderOption {
	return func(ldr *Loader) {
		ldr.loadOnly = n
	}
}

// Records decodes the catalog and returns the records that are valid and pass every filter,
// in file order. Records without an ID are given one.
func (r *Loader) Records() ([]BookRecord, LoadResult, error) {
	var res LoadResult
	var data yamlCatalog
	if err := yaml.NewDecoder(r.reader).Decode(&data); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, res, ErrEmptyCatalog
		}
		return nil, res, fmt.Errorf("decode catalog: %w", err)
	}
	if data.Books == nil {
		return nil, res, ErrEmptyCatalog
	}

	records := make([]BookRecord, 0, len(data.Books))
eachbook:
	for i := range data.Books {
		rec := data.Books[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if cond, err := ParseCondition(string(rec.Condition)); err == nil {
			rec.Condition = cond
		}
		if err := rec.Validate(); err != nil {
			res.Skipped++
			res.Invalid = append(res.Invalid, err)
			continue
		}
		for _, filt := range r.filters {
			if !filt(&rec) {
				res.Skipped++
				continue eachbook
			}
		}
		rec.extractWords()
		records = append(records, rec)
		if r.loadOnly > 0 && len(records) >= r.loadOnly {
			break // end early because loadOnly
		}
	}
	res.Loaded = len(records)
	return records, res, nil
}

// Load replaces the bookdata's contents with the records read by the loader.
// On a decode error or an empty catalog the bookdata is left untouched.
func (r *Loader) Load(bookdata *BookData) (LoadResult, error) {
	records, res, err := r.Records()
	if err != nil {
		return res, err
	}
	bookdata.Update(records)
	return res, nil
}

// DefaultCatalog returns the records of the built-in seed catalog.
func DefaultCatalog() []BookRecord {
	records, _, err := NewLoader(bytes.NewReader(defaultCatalog)).Records()
	if err != nil {
		// the embedded catalog is part of the build; a decode failure is a programming error
		panic(err)
	}
	return records
}

// DefaultCatalogReader returns a reader over the built-in seed catalog.
func DefaultCatalogReader() io.Reader {
	return bytes.NewReader(defaultCatalog)
}
