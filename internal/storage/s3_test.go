package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"vurc_dashboard/ingestion/internal/dataset"
	"vurc_dashboard/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upload struct {
	method string
	path   string
	ctype  string
	body   string
}

func fakeBucket(t *testing.T, status int) (*httptest.Server, func() []upload) {
	t.Helper()

	var (
		mu      sync.Mutex
		uploads []upload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		uploads = append(uploads, upload{r.Method, r.URL.Path, r.Header.Get("Content-Type"), string(body)})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []upload {
		mu.Lock()
		defer mu.Unlock()
		return append([]upload(nil), uploads...)
	}
}

func newTestStore(t *testing.T, endpoint string) *ObjectStore {
	t.Helper()

	store, err := NewObjectStore(context.Background(), Config{
		Bucket:          "rankings",
		Key:             "vurc/dashboard_data.csv",
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	require.NoError(t, err)
	return store
}

func testDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Rows: []models.TeamMetric{{Team: "SJTU1", Elo: 1516, StrengthOfSchedule: 0.8}},
	}
}

func TestObjectStore_Publish(t *testing.T) {
	srv, uploads := fakeBucket(t, http.StatusOK)
	store := newTestStore(t, srv.URL)
	assert.Equal(t, "s3", store.Name())

	require.NoError(t, store.Publish(context.Background(), testDataset()))

	got := uploads()
	require.Len(t, got, 2)
	assert.Equal(t, http.MethodPut, got[0].method)
	assert.Equal(t, "/rankings/vurc/dashboard_data.csv", got[0].path, "Path-style addressing for custom endpoints")
	assert.Equal(t, "text/csv", got[0].ctype)
	assert.Contains(t, got[0].body, "team_name,elo,strength_of_schedule")
	assert.Equal(t, "/rankings/vurc/dashboard_data.json", got[1].path)
	assert.Contains(t, got[1].body, `"team_name":"SJTU1"`)
}

func TestObjectStore_PublishFails(t *testing.T) {
	srv, _ := fakeBucket(t, http.StatusForbidden)
	store := newTestStore(t, srv.URL)

	err := store.Publish(context.Background(), testDataset())
	assert.Error(t, err)
}

func TestNewObjectStore_RequiresBucket(t *testing.T) {
	_, err := NewObjectStore(context.Background(), Config{Region: "auto"})
	assert.Error(t, err)
}
