package service

import (
	"net/url"
	"strconv"
	"sync"
	"time"
)

// CacheBusterParam is the query parameter appended to audio URLs.
const CacheBusterParam = "timestamp"

// CacheBuster hands out strictly increasing millisecond stamps so that two
// results for the same audio path never share a URL.
type CacheBuster struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewCacheBuster creates a cache buster backed by the wall clock.
func NewCacheBuster() *CacheBuster {
	return &CacheBuster{now: time.Now}
}

// Next returns the current unix milliseconds, bumped past the previous value
// when the clock has not advanced.
func (b *CacheBuster) Next() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now
	if now == nil {
		now = time.Now
	}
	stamp := now().UnixMilli()
	if stamp <= b.last {
		stamp = b.last + 1
	}
	b.last = stamp
	return stamp
}

// Apply appends the next stamp to rawURL.
func (b *CacheBuster) Apply(rawURL string) (string, error) {
	return AppendCacheBuster(rawURL, b.Next())
}

// AppendCacheBuster sets the timestamp query parameter on rawURL, keeping
// any other parameters.
func AppendCacheBuster(rawURL string, stamp int64) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(CacheBusterParam, strconv.FormatInt(stamp, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// StripCacheBuster removes the timestamp parameter, returning the address of
// the underlying resource.
func StripCacheBuster(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if !q.Has(CacheBusterParam) {
		return rawURL
	}
	q.Del(CacheBusterParam)
	u.RawQuery = q.Encode()
	return u.String()
}
