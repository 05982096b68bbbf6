package httpfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/scrapex-service/internal/repository"
)

func TestFetch_OK(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
			return
		}
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><title>Clinic</title></html>"))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, nil, zap.NewNop())
	page, err := f.Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, srv.URL+"/new", page.FinalURL)
	assert.Contains(t, page.HTML, "<title>Clinic</title>")
	assert.Contains(t, gotUA, "Mozilla/5.0")
}

func TestFetch_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, repository.ErrContentRestricted},
		{http.StatusUnauthorized, repository.ErrContentRestricted},
		{http.StatusUnavailableForLegalReasons, repository.ErrContentRestricted},
		{http.StatusNotFound, repository.ErrUnexpectedStatus},
		{http.StatusInternalServerError, repository.ErrUnexpectedStatus},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewFetcher(5*time.Second, nil, zap.NewNop()).Fetch(context.Background(), srv.URL)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	_, err := NewFetcher(100*time.Millisecond, nil, zap.NewNop()).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, repository.ErrFetchTimeout)
}

func TestRotator_RoundRobin(t *testing.T) {
	r := NewRotator([]string{"http://p1:8080", "http://p2:8080"})
	assert.Equal(t, 0, r.NextProxy())
	assert.Equal(t, 1, r.NextProxy())
	assert.Equal(t, 0, r.NextProxy())
	assert.Equal(t, -1, NewRotator(nil).NextProxy())
	assert.NotEmpty(t, r.UserAgent())
}
