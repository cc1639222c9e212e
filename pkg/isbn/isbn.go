// Package isbn looks up book metadata by ISBN from OpenLibrary.
package isbn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Errors returned by Lookup.
var (
	ErrInvalid  = errors.New("ISBN invalid")
	ErrNotFound = errors.New("Book not found or ISBN invalid")
)

// Defaults for a Client.
const (
	DefaultBaseURL = "https://openlibrary.org"
	DefaultTimeout = 8 * time.Second
)

// BookInfo is the subset of OpenLibrary's edition record we pass on.
type BookInfo struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	PublishDate   string   `json:"publish_date,omitempty"`
	Publishers    []string `json:"publishers,omitempty"`
	NumberOfPages int      `json:"number_of_pages,omitempty"`
	ISBN          string   `json:"isbn"`
}

// edition is the shape of https://openlibrary.org/isbn/{isbn}.json
type edition struct {
	Title   string `json:"title"`
	Authors []struct {
		Key string `json:"key"`
	} `json:"authors"`
	PublishDate   string   `json:"publish_date"`
	Publishers    []string `json:"publishers"`
	NumberOfPages int      `json:"number_of_pages"`
}

// Client fetches edition records. Concurrent lookups of the same ISBN share one request.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  *zap.Logger
	group   singleflight.Group
}

// Option modifies a Client as it is created.
type Option func(*Client)

// BaseURLOpt points the client at another server.
func BaseURLOpt(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// TimeoutOpt bounds each upstream request.
func TimeoutOpt(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// HTTPClientOpt replaces the http.Client.
func HTTPClientOpt(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// LoggerOpt sets the logger.
func LoggerOpt(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a Client for OpenLibrary.
func NewClient(options ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
		http:    http.DefaultClient,
		logger:  zap.NewNop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Normalize strips hyphens and spaces and checks the shape of an ISBN-10 or ISBN-13.
// Check digits are not verified; OpenLibrary is the judge of whether a book exists.
func Normalize(s string) (string, error) {
	n := strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(s))
	switch len(n) {
	case 10:
		if !allDigits(n[:9]) || !(allDigits(n[9:]) || n[9] == 'X') {
			return "", ErrInvalid
		}
	case 13:
		if !allDigits(n) {
			return "", ErrInvalid
		}
	default:
		return "", ErrInvalid
	}
	return n, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Lookup returns the metadata for an ISBN.
func (c *Client) Lookup(ctx context.Context, isbn string) (BookInfo, error) {
	n, err := Normalize(isbn)
	if err != nil {
		return BookInfo{}, err
	}
	ch := c.group.DoChan(n, func() (interface{}, error) {
		// the shared request outlives any one caller's cancellation
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.fetch(rctx, n)
	})
	select {
	case <-ctx.Done():
		return BookInfo{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return BookInfo{}, res.Err
		}
		return res.Val.(BookInfo), nil
	}
}

func (c *Client) fetch(ctx context.Context, isbn string) (BookInfo, error) {
	url := fmt.Sprintf("%s/isbn/%s.json", c.baseURL, isbn)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return BookInfo{}, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("isbn lookup failed", zap.String("isbn", isbn), zap.Error(err))
		return BookInfo{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Info("isbn lookup miss", zap.String("isbn", isbn), zap.Int("status", resp.StatusCode))
		return BookInfo{}, ErrNotFound
	}
	var ed edition
	if err := json.NewDecoder(resp.Body).Decode(&ed); err != nil {
		return BookInfo{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	info := BookInfo{
		Title:         ed.Title,
		Authors:       make([]string, 0, len(ed.Authors)),
		PublishDate:   ed.PublishDate,
		Publishers:    ed.Publishers,
		NumberOfPages: ed.NumberOfPages,
		ISBN:          isbn,
	}
	for _, a := range ed.Authors {
		info.Authors = append(info.Authors, a.Key)
	}
	return info, nil
}
