package importer

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/DropScrapexter/internal/errors"
	"github.com/valpere/DropScrapexter/internal/product"
)

// stubExtractor fails for URLs containing "fail" and records call times
type stubExtractor struct {
	mu    sync.Mutex
	calls []time.Time
	urls  []string
}

func (s *stubExtractor) Import(_ context.Context, rawURL string) (product.Product, error) {
	s.mu.Lock()
	s.calls = append(s.calls, time.Now())
	s.urls = append(s.urls, rawURL)
	s.mu.Unlock()

	if strings.Contains(rawURL, "fail") {
		return product.Product{}, errors.New(errors.KindFetchFailed, errors.StageFetching, rawURL, "")
	}
	return product.Merge(product.Partial{Title: "Item " + rawURL, Price: 10, SourceURL: rawURL}), nil
}

type memoryStore struct {
	mu     sync.Mutex
	drafts []*product.Draft
	err    error
}

func (m *memoryStore) Save(_ context.Context, d *product.Draft) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts = append(m.drafts, d)
	return nil
}

func fastConfig() Config {
	return Config{Delay: -1}
}

func TestImportBatch_Isolation(t *testing.T) {
	ext := &stubExtractor{}
	im := New(ext, fastConfig())

	urls := []string{"https://a.com/1", "https://b.com/fail", "https://c.com/3"}
	results, err := im.ImportBatch(context.Background(), urls)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success())
	assert.False(t, results[1].Success())
	assert.True(t, results[2].Success())

	for i, r := range results {
		assert.Equal(t, urls[i], r.URL)
	}
	assert.Equal(t, errors.KindFetchFailed, errors.KindOf(results[1].Err))
	assert.Equal(t, "Could not fetch the product page. The site may be blocking automated access.", results[1].Message())
	assert.Empty(t, results[0].Message())

	assert.Equal(t, "Item https://a.com/1", results[0].Draft.Title)
	assert.Equal(t, product.StatusDraft, results[2].Draft.Status)
	assert.Equal(t, urls, ext.urls)

	stats := im.GetStats()
	assert.Equal(t, int64(3), stats.ProcessedCount)
	assert.Equal(t, int64(2), stats.SuccessCount)
	assert.Equal(t, int64(1), stats.ErrorCount)
}

func TestImportBatch_Limits(t *testing.T) {
	im := New(&stubExtractor{}, fastConfig())

	_, err := im.ImportBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	urls := make([]string, DefaultMaxURLs+1)
	for i := range urls {
		urls[i] = "https://a.com/p"
	}
	_, err = im.ImportBatch(context.Background(), urls)
	assert.ErrorIs(t, err, ErrBatchTooLarge)

	results, err := im.ImportBatch(context.Background(), urls[:DefaultMaxURLs])
	require.NoError(t, err)
	assert.Len(t, results, DefaultMaxURLs)
}

func TestImportBatch_Throttles(t *testing.T) {
	ext := &stubExtractor{}
	im := New(ext, Config{Delay: 40 * time.Millisecond})

	_, err := im.ImportBatch(context.Background(), []string{"https://a.com/1", "https://a.com/2", "https://a.com/3"})
	require.NoError(t, err)

	require.Len(t, ext.calls, 3)
	for i := 1; i < len(ext.calls); i++ {
		gap := ext.calls[i].Sub(ext.calls[i-1])
		assert.GreaterOrEqual(t, gap, 30*time.Millisecond, "call %d came too early", i)
	}
}

func TestImportBatch_ContextCancelled(t *testing.T) {
	ext := &stubExtractor{}
	im := New(ext, Config{Delay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	urls := []string{"https://a.com/1", "https://a.com/2", "https://a.com/3"}
	results, err := im.ImportBatch(ctx, urls)

	require.Error(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].Success())
	assert.Error(t, results[1].Err)
	assert.Error(t, results[2].Err)
	assert.Equal(t, "https://a.com/3", results[2].URL)
	assert.Len(t, ext.urls, 1)
}

func TestImportOne_SavesDraft(t *testing.T) {
	store := &memoryStore{}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	im := New(&stubExtractor{}, fastConfig(), WithStore(store), WithClock(func() time.Time { return now }))

	draft, err := im.ImportOne(context.Background(), "https://a.com/1")
	require.NoError(t, err)

	require.Len(t, store.drafts, 1)
	assert.Equal(t, draft.ID, store.drafts[0].ID)
	assert.Equal(t, now, draft.CreatedAt)
	assert.NotEmpty(t, draft.ID)
}

func TestImportOne_StoreFailure(t *testing.T) {
	store := &memoryStore{err: stderrors.New("disk full")}
	im := New(&stubExtractor{}, fastConfig(), WithStore(store))

	draft, err := im.ImportOne(context.Background(), "https://a.com/1")
	assert.Nil(t, draft)
	assert.ErrorContains(t, err, "disk full")
}

func TestParseURLList(t *testing.T) {
	text := "https://www.alibaba.com/product-detail/a.html\n\n  http://shop.example.com/p/2  \nnot a url\nftp://files.example.com/x\r\nHTTPS://UPPER.example.com/3\n"

	assert.Equal(t, []string{
		"https://www.alibaba.com/product-detail/a.html",
		"http://shop.example.com/p/2",
		"HTTPS://UPPER.example.com/3",
	}, ParseURLList(text))

	assert.Empty(t, ParseURLList("   \n\n"))
}
