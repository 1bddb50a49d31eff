package jobs

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchLocalPassthrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	f := NewSourceFetcher()
	got, cleanup, err := f.Fetch(context.Background(), path)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, path, got)
	cleanup()
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "passthrough cleanup must not remove the caller's file")
}

func TestFetchLocalMissing(t *testing.T) {
	f := NewSourceFetcher()
	_, _, err := f.Fetch(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestFetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer srv.Close()

	f := NewSourceFetcher()
	path, cleanup, err := f.Fetch(context.Background(), srv.URL+"/files/doc.pdf")
	require.NoError(t, err)
	defer cleanup()

	assert.Contains(t, filepath.Base(path), "printsrc-")
	assert.True(t, strings.HasSuffix(path, ".pdf"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))

	cleanup()
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewSourceFetcher()
	_, _, err := f.Fetch(context.Background(), srv.URL+"/gone.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

type fakeS3 struct {
	body string
	err  error
}

func (f *fakeS3) GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte(f.body)))}, nil
}

func TestFetchS3(t *testing.T) {
	f := NewSourceFetcher()
	f.newS3 = func(context.Context) (s3Getter, error) {
		return &fakeS3{body: "png bytes"}, nil
	}

	path, cleanup, err := f.Fetch(context.Background(), "s3://prints/incoming/photo.png")
	require.NoError(t, err)
	defer cleanup()

	assert.True(t, strings.HasSuffix(path, ".png"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(data))
}

func TestFetchS3MalformedRef(t *testing.T) {
	f := NewSourceFetcher()
	f.newS3 = func(context.Context) (s3Getter, error) {
		t.Fatal("client should not be built for a malformed ref")
		return nil, nil
	}

	_, _, err := f.Fetch(context.Background(), "s3://bucket-only")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}
