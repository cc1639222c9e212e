package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/pustaklink/pustaklink/pkg/books"
	"github.com/pustaklink/pustaklink/pkg/contact"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

var testToday = books.Date{Year: 2025, Month: 8, Day: 25}

func testConfig() Config {
	return Config{
		Port:            8000,
		MaxLimit:        100,
		ShutdownTimeout: time.Second,
		EmailDomain:     "vitstudent.ac.in",
		DeliveryFee:     50,
		ListingRate:     5,
		ListingWindow:   24 * time.Hour,
		ISBNRate:        10,
		ISBNWindow:      time.Minute,
		ISBNTimeout:     2 * time.Second,
	}
}

func newTestService(t *testing.T, edits ...func(*Config)) (*service, *echo.Echo) {
	t.Helper()
	cfg := testConfig()
	for _, edit := range edits {
		edit(&cfg)
	}
	svc := newService(cfg, zaptest.NewLogger(t))
	svc.today = func() books.Date { return testToday }
	_, err := svc.loadCatalog()
	require.NoError(t, err)
	return svc, svc.newEcho()
}

func doRequest(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	decode(t, rec, &body)
	return body.Detail
}

func bookIDs(recs []books.BookRecord) string {
	ids := make([]string, len(recs))
	for i := range recs {
		ids[i] = recs[i].ID
	}
	return strings.Join(ids, ",")
}

func TestBasics(t *testing.T) {
	_, e := newTestService(t)

	rec := doRequest(e, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Go away.", rec.Body.String())

	rec = doRequest(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ok\n", rec.Body.String())

	rec = doRequest(e, http.MethodGet, "/doc", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>PustakLink</h1>")

	rec = doRequest(e, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", detail(t, rec))
}

func TestBookFilter(t *testing.T) {
	_, e := newTestService(t)
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"everything", "", "1,2,3,4,5,6,7,8"},
		{"sentinels", "?subject=All%20Subjects&college=All%20Campuses&condition=All%20Conditions", "1,2,3,4,5,6,7,8"},
		{"subject", "?subject=Computer%20Science", "1,5,7"},
		{"search title", "?search=algorithms", "1,5"},
		{"search author", "?search=stewart", "2"},
		{"college and condition", "?college=VIT%20Chennai&condition=excellent", "6"},
		{"author", "?author=resnick", "3"},
		{"no match", "?subject=Astrology", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(e, http.MethodGet, "/books/filter"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code)
			var got []books.BookRecord
			decode(t, rec, &got)
			assert.Equal(t, tt.want, bookIDs(got))
		})
	}
}

func TestBookFilterHTML(t *testing.T) {
	_, e := newTestService(t)

	rec := doRequest(e, http.MethodGet, "/books/filter/html?search=calculus", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "1 books found")
	assert.Contains(t, body, "Calculus: Early Transcendentals (8th Edition)")
	assert.Contains(t, body, "Lent by Priya Singh, VIT Chennai, for up to 10 days")

	rec = doRequest(e, http.MethodGet, "/books/filter/html?subject=Astrology", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No books match.")
}

func TestBookQuery(t *testing.T) {
	_, e := newTestService(t)
	tests := []struct {
		name     string
		query    string
		wantCode int
		want     string
	}{
		{"words", "?subject=computer&cond=good", http.StatusOK, "5,7"},
		{"exclude", "?-college=vellore", http.StatusOK, "2,4,6,8"},
		{"glob", "?~title=princ_", http.StatusOK, "3,6"},
		{"limit and page", "?limit=3&page=1", http.StatusOK, "4,5,6"},
		{"days", "?days=14", http.StatusOK, "1,4,6,8"},
		{"or", "?subject=physics&subject=chemistry&or", http.StatusOK, "3,4"},
		{"bad constraint", "?color=red", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(e, http.MethodGet, "/books/query"+tt.query, "")
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				assert.Contains(t, detail(t, rec), "constraint error")
				return
			}
			var got []books.BookRecord
			decode(t, rec, &got)
			assert.Equal(t, tt.want, bookIDs(got))
		})
	}
}

func TestBookSummary(t *testing.T) {
	_, e := newTestService(t)
	rec := doRequest(e, http.MethodGet, "/books/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sd books.SummaryData
	decode(t, rec, &sd)
	assert.Equal(t, 8, sd.TotalBooks)
	assert.Equal(t, 3, sd.Subjects["Computer Science"])
	assert.Equal(t, 4, sd.Colleges["VIT Vellore"])
	assert.Equal(t, 4, sd.Conditions[books.Excellent])
	assert.Equal(t, 13, sd.AverageBorrowDuration)
}

func TestBookByID(t *testing.T) {
	_, e := newTestService(t)

	rec := doRequest(e, http.MethodGet, "/book/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var b books.BookRecord
	decode(t, rec, &b)
	assert.Equal(t, "Priya Singh", b.LenderName)
	assert.Equal(t, books.Good, b.Condition)

	rec = doRequest(e, http.MethodGet, "/book/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "book not found", detail(t, rec))
}

func TestBookContact(t *testing.T) {
	svc, e := newTestService(t)

	rec := doRequest(e, http.MethodGet, "/book/1/contact?name=Ananya%20Iyer&college=VIT%20Vellore&phone=1&email=a%40vitstudent.ac.in", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var links contact.Links
	decode(t, rec, &links)
	assert.Equal(t, "tel:+91 98765 43210", links.Tel)
	assert.True(t, strings.HasPrefix(links.WhatsApp, "https://wa.me/919876543210?text=Hi%20Rahul%20Sharma!"), links.WhatsApp)
	assert.True(t, strings.HasPrefix(links.Mailto, "mailto:?subject=Book%20Request%3A%20Introduction%20to%20Algorithms"), links.Mailto)
	assert.Contains(t, links.WhatsApp, "I'm%20Ananya%20Iyer%20from%20VIT%20Vellore")

	// the requester can come from a session instead
	sid := svc.Sessions.Create()
	rec = doRequest(e, http.MethodGet, "/book/1/contact?session="+sid, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(e, http.MethodGet, "/book/1/contact?session=nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "session not found", detail(t, rec))

	rec = doRequest(e, http.MethodGet, "/book/99/contact", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQR(t *testing.T) {
	_, e := newTestService(t)
	tests := []struct {
		name     string
		target   string
		wantCode int
	}{
		{"url", "/qr?url=https%3A%2F%2Fexample.com", http.StatusOK},
		{"url with options", "/qr?url=x&size=128&level=h", http.StatusOK},
		{"missing url", "/qr", http.StatusBadRequest},
		{"small", "/qr?url=x&size=127", http.StatusBadRequest},
		{"large", "/qr?url=x&size=1025", http.StatusBadRequest},
		{"not a number", "/qr?url=x&size=big", http.StatusBadRequest},
		{"bad level", "/qr?url=x&level=q", http.StatusBadRequest},
		{"book default channel", "/book/1/qr?name=A", http.StatusOK},
		{"book tel", "/book/1/qr?channel=tel&size=128", http.StatusOK},
		{"book bad channel", "/book/1/qr?channel=fax", http.StatusBadRequest},
		{"book missing", "/book/99/qr", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(e, http.MethodGet, tt.target, "")
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
				assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))
			}
		})
	}
}

func TestLoadCatalog_Colleges(t *testing.T) {
	svc, _ := newTestService(t, func(c *Config) {
		c.Colleges = []string{"VIT Bhopal"}
	})
	assert.Equal(t, 2, svc.Books.NBooks())
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	svc := newService(testConfig(), zaptest.NewLogger(t))
	svc.Config.Catalog = "/does/not/exist.yaml"
	_, err := svc.loadCatalog()
	assert.Error(t, err)
}
