package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pustaklink/pustaklink/pkg/books"
)

const oneBook = `
books:
  - id: "w1"
    title: Signals and Systems
    author: Alan V. Oppenheim
    subject: Electrical
    condition: good
    lender_name: Meera Das
    lender_college: VIT Vellore
    lender_contact: "+91 90000 00001"
    borrow_duration: 7
`

const twoBooks = oneBook + `
  - id: "w2"
    title: Engineering Electromagnetics
    author: William Hayt
    subject: Electrical
    condition: fair
    lender_name: Meera Das
    lender_college: VIT Vellore
    lender_contact: "+91 90000 00001"
    borrow_duration: 10
`

func TestCatalogWatcher_Reloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(oneBook), 0o644))

	svc, _ := newTestService(t, func(c *Config) { c.Catalog = path })
	require.Equal(t, 1, svc.Books.NBooks())

	w := newCatalogWatcher(path, svc.reloadCatalog, zaptest.NewLogger(t))
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	// give the watcher time to register before changing the file
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(twoBooks), 0o644))
	assert.Eventually(t, func() bool { return svc.Books.NBooks() == 2 }, 5*time.Second, 20*time.Millisecond)

	// a broken file keeps the last good catalog
	require.NoError(t, os.WriteFile(path, []byte("books: [unclosed"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 2, svc.Books.NBooks())

	// so does a file truncated to nothing
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 2, svc.Books.NBooks())
}

func TestReloadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(oneBook), 0o644))
	svc, e := newTestService(t, func(c *Config) { c.Catalog = path })
	sid := login(t, svc)

	rec := doRequest(e, http.MethodPost, "/session/"+sid+"/lend", `{"subject":"Electrical","title":"Power Electronics","author":"Rashid","condition":"good","borrow_duration":7}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var lent books.BookRecord
	decode(t, rec, &lent)

	tests := []struct {
		name      string
		contents  string
		wantErr   bool
		wantBooks int
	}{
		{"same file", oneBook, false, 2},
		{"more books", twoBooks, false, 3},
		{"empty file", "", true, 3},
		{"only a comment", "# saving...\n", true, 3},
		{"broken yaml", "books: [unclosed", true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, os.WriteFile(path, []byte(tt.contents), 0o644))
			err := svc.reloadCatalog()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantBooks, svc.Books.NBooks())
			_, ok := svc.Books.Get(lent.ID)
			assert.True(t, ok, "lent book survives the reload")
			rec := doRequest(e, http.MethodGet, "/book/"+lent.ID, "")
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestCatalogWatcher_MissingDir(t *testing.T) {
	w := newCatalogWatcher("/does/not/exist/catalog.yaml", func() error { return nil }, zaptest.NewLogger(t))
	err := w.Run(context.Background())
	assert.Error(t, err)
}
