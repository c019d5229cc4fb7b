package service_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmatveev/earnbot/internal/earnbot/service"
)

func TestShortlinkGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "secret-token", q.Get("api"))
		assert.Equal(t, "https://target.example/offer", q.Get("url"))
		assert.Equal(t, "corr-123", q.Get("alias"))
		w.Write([]byte(`{"status":"success","shortenedUrl":"https://sh.example/corr-123"}`))
	}))
	defer srv.Close()

	client := service.NewShortlinkClient(srv.URL, "secret-token")
	url, err := client.Generate(context.Background(), "https://target.example/offer", "corr-123")
	require.NoError(t, err)
	assert.Equal(t, "https://sh.example/corr-123", url)
}

func TestShortlinkGenerate_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","message":"invalid alias"}`))
	}))
	defer srv.Close()

	client := service.NewShortlinkClient(srv.URL, "secret-token")
	_, err := client.Generate(context.Background(), "https://target.example", "corr-123")
	assert.Error(t, err)
}

func TestShortlinkGenerate_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := service.NewShortlinkClient(srv.URL, "secret-token")
	_, err := client.Generate(context.Background(), "https://target.example", "corr-123")
	assert.Error(t, err)
}

func TestShortlinkGenerate_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	client := service.NewShortlinkClient(srv.URL, "secret-token")
	_, err := client.Generate(context.Background(), "https://target.example", "corr-123")
	assert.Error(t, err)
}

func TestShortlinkCheckStatus(t *testing.T) {
	completed := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/status", r.URL.Path)
		assert.Equal(t, "corr-123", r.URL.Query().Get("alias"))
		if completed {
			w.Write([]byte(`{"completed":true}`))
		} else {
			w.Write([]byte(`{"completed":false}`))
		}
	}))
	defer srv.Close()

	client := service.NewShortlinkClient(srv.URL, "secret-token")

	done, err := client.CheckStatus(context.Background(), "corr-123")
	require.NoError(t, err)
	assert.False(t, done)

	completed = true
	done, err = client.CheckStatus(context.Background(), "corr-123")
	require.NoError(t, err)
	assert.True(t, done)
}
