// Package apiclient is a thin client for the PustakLink HTTP API.
// Calls are made once: there is no retry and no cache, and the caller decides ordering.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/pustaklink/pustaklink/pkg/books"
	"github.com/pustaklink/pustaklink/pkg/contact"
	"github.com/pustaklink/pustaklink/pkg/isbn"
	"github.com/pustaklink/pustaklink/pkg/listings"
)

// DefaultBaseURL is where a locally started server listens.
const DefaultBaseURL = "http://localhost:8000"

// ErrRateLimited matches, via errors.Is, any *Error caused by an HTTP 429.
var ErrRateLimited = errors.New("rate limited")

// Error is a failed call. Message comes from the server's "detail" field when it sent one.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrRateLimited) true for 429 responses.
func (e *Error) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// User is an account on the auth service.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	College   string `json:"college"`
	CreatedAt string `json:"created_at"`
}

// SignupData registers a new account.
type SignupData struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	College  string `json:"college"`
}

// LoginData signs in; Username is the email address.
type LoginData struct {
	Username string
	Password string
}

// AuthResponse carries the bearer token.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ListingParams narrows GetListings. Empty strings and zero integers are left out of the query;
// the price bounds are pointers because zero is a meaningful price.
type ListingParams struct {
	College   string
	Subject   string
	Semester  int
	PriceMin  *float64
	PriceMax  *float64
	Condition string
	Edition   int
	Sort      string
	Limit     int
	Offset    int
}

// Values encodes the set parameters.
func (p ListingParams) Values() url.Values {
	v := url.Values{}
	setString := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	setInt := func(k string, n int) {
		if n != 0 {
			v.Set(k, strconv.Itoa(n))
		}
	}
	setString("college", p.College)
	setString("subject", p.Subject)
	setInt("semester", p.Semester)
	if p.PriceMin != nil {
		v.Set("price_min", strconv.FormatFloat(*p.PriceMin, 'f', -1, 64))
	}
	if p.PriceMax != nil {
		v.Set("price_max", strconv.FormatFloat(*p.PriceMax, 'f', -1, 64))
	}
	setString("condition", p.Condition)
	setInt("edition", p.Edition)
	setString("sort", p.Sort)
	setInt("limit", p.Limit)
	setInt("offset", p.Offset)
	return v
}

// Client talks to one server. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// Option modifies a Client as it is created.
type Option func(*Client)

// HTTPClientOpt replaces the http.Client.
func HTTPClientOpt(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// TokenOpt starts the client with a bearer token.
func TokenOpt(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// New creates a client for the server at baseURL; empty means DefaultBaseURL.
func New(baseURL string, options ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// SetToken sets the bearer token sent with every call.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// ClearToken forgets the bearer token.
func (c *Client) ClearToken() {
	c.SetToken("")
}

// Logout is ClearToken.
func (c *Client) Logout() {
	c.ClearToken()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// call describes one request.
type call struct {
	method   string
	path     string
	query    url.Values
	body     io.Reader
	ctype    string
	fallback string
	// limited replaces the message of a 429, when set
	limited string
}

func (c *Client) jsonCall(method, path string, in interface{}, fallback string) (call, error) {
	cl := call{method: method, path: path, fallback: fallback}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return cl, err
		}
		cl.body = bytes.NewReader(b)
		cl.ctype = "application/json"
	}
	return cl, nil
}

func (c *Client) do(ctx context.Context, cl call, out interface{}) error {
	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, u, cl.body)
	if err != nil {
		return err
	}
	if cl.ctype != "" {
		req.Header.Set("Content-Type", cl.ctype)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{StatusCode: resp.StatusCode, Message: cl.fallback}
		if resp.StatusCode == http.StatusTooManyRequests && cl.limited != "" {
			apiErr.Message = cl.limited
			return apiErr
		}
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.NewDecoder(resp.Body).Decode(&detail) == nil && detail.Detail != "" {
			apiErr.Message = detail.Detail
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", cl.path, err)
	}
	return nil
}

// Signup registers an account with the auth service.
func (c *Client) Signup(ctx context.Context, data SignupData) (User, error) {
	var u User
	cl, err := c.jsonCall(http.MethodPost, "/auth/signup", data, "Signup failed")
	if err != nil {
		return u, err
	}
	return u, c.do(ctx, cl, &u)
}

// Login posts the credentials as a form and keeps the returned token.
func (c *Client) Login(ctx context.Context, data LoginData) (AuthResponse, error) {
	var ar AuthResponse
	form := url.Values{"username": {data.Username}, "password": {data.Password}}
	cl := call{
		method:   http.MethodPost,
		path:     "/auth/login",
		body:     strings.NewReader(form.Encode()),
		ctype:    "application/x-www-form-urlencoded",
		fallback: "Login failed",
	}
	if err := c.do(ctx, cl, &ar); err != nil {
		return ar, err
	}
	c.SetToken(ar.AccessToken)
	return ar, nil
}

// GetBookInfo looks up an ISBN through the server.
func (c *Client) GetBookInfo(ctx context.Context, isbnCode string) (isbn.BookInfo, error) {
	var info isbn.BookInfo
	cl, _ := c.jsonCall(http.MethodGet, "/isbn/"+url.PathEscape(isbnCode), nil, "Book not found")
	cl.limited = "Rate limit exceeded. Please try again later."
	return info, c.do(ctx, cl, &info)
}

// CreateListing offers a book for sale.
func (c *Client) CreateListing(ctx context.Context, data listings.ListingCreate) (listings.Listing, error) {
	var l listings.Listing
	cl, err := c.jsonCall(http.MethodPost, "/listing", data, "Failed to create listing")
	if err != nil {
		return l, err
	}
	cl.limited = "You have exceeded the maximum of 5 listings per day"
	return l, c.do(ctx, cl, &l)
}

// GetListings queries active listings.
func (c *Client) GetListings(ctx context.Context, params ListingParams) ([]listings.Listing, error) {
	var ls []listings.Listing
	cl, _ := c.jsonCall(http.MethodGet, "/listing", nil, "Failed to fetch listings")
	cl.query = params.Values()
	return ls, c.do(ctx, cl, &ls)
}

// GetListing fetches one active listing.
func (c *Client) GetListing(ctx context.Context, id int64) (listings.Listing, error) {
	var l listings.Listing
	cl, _ := c.jsonCall(http.MethodGet, "/listing/"+strconv.FormatInt(id, 10), nil, "Listing not found")
	return l, c.do(ctx, cl, &l)
}

// MarkSold takes a listing off the market.
func (c *Client) MarkSold(ctx context.Context, id int64) error {
	cl, _ := c.jsonCall(http.MethodPost, "/listing/"+strconv.FormatInt(id, 10)+"/mark_sold", nil, "Failed to mark listing as sold")
	return c.do(ctx, cl, nil)
}

// ReportListing flags a listing.
func (c *Client) ReportListing(ctx context.Context, id int64, reason, description string) (listings.Report, error) {
	var r listings.Report
	cl, err := c.jsonCall(http.MethodPost, "/report", listings.ReportCreate{
		ListingID:   id,
		Reason:      reason,
		Description: description,
	}, "Failed to report listing")
	if err != nil {
		return r, err
	}
	return r, c.do(ctx, cl, &r)
}

// FilterCatalog runs the catalog filter on the server.
func (c *Client) FilterCatalog(ctx context.Context, criteria books.FilterCriteria) ([]books.BookRecord, error) {
	var recs []books.BookRecord
	q := url.Values{}
	for k, v := range map[string]string{
		books.FieldSearch:    criteria.Search,
		books.FieldSubject:   criteria.Subject,
		books.FieldAuthor:    criteria.Author,
		books.FieldCollege:   criteria.College,
		books.FieldCondition: criteria.Condition,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	cl, _ := c.jsonCall(http.MethodGet, "/books/filter", nil, "Failed to filter books")
	cl.query = q
	return recs, c.do(ctx, cl, &recs)
}

// GetBook fetches one lending record.
func (c *Client) GetBook(ctx context.Context, id string) (books.BookRecord, error) {
	var rec books.BookRecord
	cl, _ := c.jsonCall(http.MethodGet, "/book/"+url.PathEscape(id), nil, "Book not found")
	return rec, c.do(ctx, cl, &rec)
}

// GetContact fetches the deep links for asking a lender for a book.
func (c *Client) GetContact(ctx context.Context, id string, requester contact.Requester) (contact.Links, error) {
	var links contact.Links
	cl, _ := c.jsonCall(http.MethodGet, "/book/"+url.PathEscape(id)+"/contact", nil, "Book not found")
	cl.query = url.Values{
		"name":    {requester.Name},
		"college": {requester.College},
		"phone":   {requester.Phone},
		"email":   {requester.Email},
	}
	return links, c.do(ctx, cl, &links)
}
