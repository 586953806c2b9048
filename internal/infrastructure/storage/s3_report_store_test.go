package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeS3 records requests made against a path-style endpoint
type fakeS3 struct {
	mu       sync.Mutex
	requests []string
	types    map[string]string
	buckets  map[string]bool
}

func newFakeS3(t *testing.T) (*fakeS3, *httptest.Server) {
	t.Helper()
	f := &fakeS3{types: map[string]string{}, buckets: map[string]bool{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		p := strings.TrimSuffix(r.URL.Path, "/")
		f.requests = append(f.requests, r.Method+" "+p)

		parts := strings.SplitN(strings.TrimPrefix(p, "/"), "/", 2)
		switch {
		case r.Method == http.MethodHead && len(parts) == 1:
			if !f.buckets[parts[0]] {
				w.WriteHeader(http.StatusNotFound)
				return
			}
		case r.Method == http.MethodPut && len(parts) == 1:
			f.buckets[parts[0]] = true
		case r.Method == http.MethodPut:
			f.types[p] = r.Header.Get("Content-Type")
			w.Header().Set("ETag", `"etag"`)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func testStorageConfig(endpoint string) *config.StorageConfig {
	return &config.StorageConfig{
		Enabled:         true,
		Bucket:          "astra-reports",
		Region:          "af-south-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
		KeyPrefix:       "/reconciliation/",
	}
}

func TestNewS3ReportStore_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewS3ReportStore(ctx, nil)
	assert.ErrorContains(t, err, "configuration is required")

	_, err = NewS3ReportStore(ctx, &config.StorageConfig{})
	assert.ErrorContains(t, err, "bucket is required")

	_, err = NewS3ReportStore(ctx, &config.StorageConfig{Bucket: "b", AccessKeyID: "only-id"})
	assert.ErrorContains(t, err, "must be set together")

	store, err := NewS3ReportStore(ctx, testStorageConfig("localhost:9000"))
	require.NoError(t, err)
	assert.Equal(t, "astra-reports", store.Bucket())
	assert.Equal(t, "reconciliation", store.keyPrefix)
}

func TestS3ReportStore_Put(t *testing.T) {
	fake, srv := newFakeS3(t)
	store, err := NewS3ReportStore(context.Background(), testStorageConfig(srv.URL), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	location, err := store.Put(context.Background(), "tenant-1/2026-03-14.xlsx", []byte("PK\x03\x04"),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	require.NoError(t, err)
	assert.Equal(t, "s3://astra-reports/reconciliation/tenant-1/2026-03-14.xlsx", location)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Contains(t, fake.requests, "PUT /astra-reports/reconciliation/tenant-1/2026-03-14.xlsx")
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		fake.types["/astra-reports/reconciliation/tenant-1/2026-03-14.xlsx"])
}

func TestS3ReportStore_Put_EmptyKey(t *testing.T) {
	store, err := NewS3ReportStore(context.Background(), testStorageConfig("localhost:9000"))
	require.NoError(t, err)
	_, err = store.Put(context.Background(), "", nil, "text/plain")
	assert.ErrorContains(t, err, "object key is required")
}

func TestS3ReportStore_EnsureBucket(t *testing.T) {
	fake, srv := newFakeS3(t)
	store, err := NewS3ReportStore(context.Background(), testStorageConfig(srv.URL))
	require.NoError(t, err)

	require.NoError(t, store.EnsureBucket(context.Background()))
	require.NoError(t, store.EnsureBucket(context.Background()))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{
		"HEAD /astra-reports",
		"PUT /astra-reports",
		"HEAD /astra-reports",
	}, fake.requests)
}

func TestS3ReportStore_PresignGet(t *testing.T) {
	store, err := NewS3ReportStore(context.Background(), testStorageConfig("http://localhost:9000"))
	require.NoError(t, err)

	url, err := store.PresignGet(context.Background(), "tenant-1/report.xlsx", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/astra-reports/reconciliation/tenant-1/report.xlsx?"))
	assert.Contains(t, url, "X-Amz-Expires=300")
}
