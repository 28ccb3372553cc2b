package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/common/log"
	"golang.org/x/net/html/charset"
)

type fetcher struct {
	uri    string
	client *http.Client
}

func newFetcher(uri string, timeout time.Duration, transport http.RoundTripper) *fetcher {
	client := &http.Client{}
	client.Timeout = timeout
	client.Transport = transport

	return &fetcher{
		uri:    uri,
		client: client,
	}
}

// fetch returns the status page decoded to UTF-8.
func (f *fetcher) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.uri, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if !(resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return "", fmt.Errorf("Scraping %s failed: HTTP status %d", f.uri, resp.StatusCode)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("Scraping %s failed: %w", f.uri, err)
	}
	page, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("Scraping %s failed: %w", f.uri, err)
	}
	return string(page), nil
}

// poll fetches and parses the status page. Any failure is logged and yields a
// nil snapshot.
func poll(ctx context.Context, f *fetcher) (*Snapshot, error) {
	page, err := f.fetch(ctx)
	if err != nil {
		log.Warnln(err)
		return nil, err
	}
	snap, err := parseStatus(strings.NewReader(page))
	if err != nil {
		log.Errorln("Parsing status page:", err)
		return nil, err
	}
	return snap, nil
}
