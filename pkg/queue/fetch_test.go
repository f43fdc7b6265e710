package queue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_Queue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cdsapi/queue/workflows" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query()["status"]; len(got) != 2 || got[0] != "Waiting" || got[1] != "Building" {
			http.Error(w, "bad status", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"ID":7,"Status":"Waiting","Requirements":[{"Type":"binary","Value":"git"}]}]`))
	}))
	defer srv.Close()

	f := HTTPFetcher{BaseURL: srv.URL + "/cdsapi/"}
	entries, err := f.Queue(context.Background(), DefaultStatuses)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, int64(7), entries[0].ID)
	require.Equal(t, "git", entries[0].Requirements[0].Value)
}

func TestHTTPFetcher_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := HTTPFetcher{BaseURL: srv.URL}.Queue(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "403")
}
