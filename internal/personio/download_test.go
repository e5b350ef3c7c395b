package personio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadFile_StreamsToDisk(t *testing.T) {
	payload := []byte("%PDF-1.4 fake contract body")
	var gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/company/employees/11/documents/5/download", r.URL.Path)
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "docs", "11", "contract.pdf")
	downloaded, err := testClient(srv).DownloadFile(context.Background(),
		"company/employees/11/documents/5/download", dest)

	require.NoError(t, err)
	assert.True(t, downloaded)
	assert.Equal(t, "*/*", gotAccept)

	written, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, written, "missing directories must be created and the body written whole")
}

func TestDownloadFile_SkipsWhenSizeMatches(t *testing.T) {
	payload := []byte("stable-bytes")
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "doc.bin")
	client := testClient(srv)

	downloaded, err := client.DownloadFile(context.Background(), "company/employees/1/documents/2/download", dest)
	require.NoError(t, err)
	require.True(t, downloaded)

	downloaded, err = client.DownloadFile(context.Background(), "company/employees/1/documents/2/download", dest)
	require.NoError(t, err)
	assert.False(t, downloaded, "matching local size must skip the re-fetch")
	assert.EqualValues(t, 2, calls.Load())
}

func TestDownloadFile_HTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "missing.pdf")
	_, err := testClient(srv).DownloadFile(context.Background(), "company/employees/1/documents/9/download", dest)

	var de *DownloadError
	require.ErrorAs(t, err, &de)
	assert.NoFileExists(t, dest)
}
