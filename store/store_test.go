//go:build cgo

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleCompanies() []Company {
	return []Company{
		{CIK: "0000320193", Ticker: "AAPL", Title: "Apple Inc."},
		{CIK: "0000789019", Ticker: "MSFT", Title: "MICROSOFT CORP"},
		{CIK: "0001652044", Ticker: "GOOGL", Title: "Alphabet Inc."},
		{CIK: "0001652044", Ticker: "GOOG", Title: "Alphabet Inc."},
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "   ")
	require.Error(t, err)
}

func TestReplaceAllAndLookup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceAll(ctx, sampleCompanies(), `"etag-1"`))

	c, ok, err := s.Lookup(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0000320193", c.CIK)
	assert.Equal(t, "Apple Inc.", c.Title)

	_, ok, err = s.Lookup(ctx, "ZZZZ")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

// Two tickers may share a CIK; both rows must persist.
func TestShareClassesShareCIK(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceAll(ctx, sampleCompanies(), ""))

	googl, ok, err := s.Lookup(ctx, "GOOGL")
	require.NoError(t, err)
	require.True(t, ok)
	goog, ok, err := s.Lookup(ctx, "GOOG")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, googl.CIK, goog.CIK)
}

func TestReplaceAllRemovesStaleRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceAll(ctx, sampleCompanies(), `"etag-1"`))
	require.NoError(t, s.ReplaceAll(ctx, []Company{
		{CIK: "0000000999", Ticker: "NEWCO", Title: "New Co"},
	}, `"etag-2"`))

	_, ok, err := s.Lookup(ctx, "AAPL")
	require.NoError(t, err)
	assert.False(t, ok, "stale row survived replacement")

	_, ok, err = s.Lookup(ctx, "NEWCO")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestETagRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	etag, err := s.ETag(ctx)
	require.NoError(t, err)
	assert.Empty(t, etag, "fresh store must report no etag")

	require.NoError(t, s.ReplaceAll(ctx, sampleCompanies(), `"abc123"`))

	etag, err = s.ETag(ctx)
	require.NoError(t, err)
	assert.Equal(t, `"abc123"`, etag)

	require.NoError(t, s.ReplaceAll(ctx, sampleCompanies(), `"def456"`))
	etag, err = s.ETag(ctx)
	require.NoError(t, err)
	assert.Equal(t, `"def456"`, etag)
}

func TestAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	companies, err := s.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, companies)

	require.NoError(t, s.ReplaceAll(ctx, sampleCompanies(), ""))

	companies, err = s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, companies, 4)

	byTicker := make(map[string]Company, len(companies))
	for _, c := range companies {
		byTicker[c.Ticker] = c
	}
	assert.Equal(t, "0000789019", byTicker["MSFT"].CIK)
}

func TestNilStoreIsSafe(t *testing.T) {
	var s *Store
	assert.NoError(t, s.Close())
	_, _, err := s.Lookup(context.Background(), "AAPL")
	assert.Error(t, err)
	_, err = s.All(context.Background())
	assert.Error(t, err)
}

func TestOpenOnDiskPersists(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/tickers.db"

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceAll(ctx, sampleCompanies(), `"etag-1"`))
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	etag, err := reopened.ETag(ctx)
	require.NoError(t, err)
	assert.Equal(t, `"etag-1"`, etag)
}
