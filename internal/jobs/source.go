package jobs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// SourceFetcher resolves a print source reference to a local file.
// Plain paths pass through; s3:// and http(s):// references download
// into a temp file that the returned cleanup removes.
type SourceFetcher struct {
	httpClient *http.Client

	// newS3 is swapped in tests.
	newS3 func(ctx context.Context) (s3Getter, error)
}

type s3Getter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

func NewSourceFetcher() *SourceFetcher {
	return &SourceFetcher{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		newS3: func(ctx context.Context) (s3Getter, error) {
			cfg, err := awscfg.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, fmt.Errorf("load AWS config: %w", err)
			}
			return s3.NewFromConfig(cfg), nil
		},
	}
}

// Fetch returns a local path for ref plus a cleanup function. The
// cleanup is always safe to call, also on the passthrough case.
func (f *SourceFetcher) Fetch(ctx context.Context, ref string) (string, func(), error) {
	noop := func() {}
	switch {
	case strings.HasPrefix(ref, "s3://"):
		path, err := f.fetchS3(ctx, ref)
		if err != nil {
			return "", noop, err
		}
		return path, func() { os.Remove(path) }, nil
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		path, err := f.fetchHTTP(ctx, ref)
		if err != nil {
			return "", noop, err
		}
		return path, func() { os.Remove(path) }, nil
	default:
		if _, err := os.Stat(ref); err != nil {
			return "", noop, fmt.Errorf("%w: %s", ErrSourceNotFound, ref)
		}
		return ref, noop, nil
	}
}

func (f *SourceFetcher) fetchS3(ctx context.Context, ref string) (string, error) {
	trimmed := strings.TrimPrefix(ref, "s3://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("malformed s3 reference: %s", ref)
	}
	bucket, key := parts[0], parts[1]

	cli, err := f.newS3(ctx)
	if err != nil {
		return "", err
	}

	out, err := cli.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	path, err := spoolToTemp(out.Body, filepath.Ext(key))
	if err != nil {
		return "", err
	}
	log.Debug().Str("bucket", bucket).Str("key", key).Str("path", path).Msg("fetched s3 source")
	return path, nil
}

func (f *SourceFetcher) fetchHTTP(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}

	path, err := spoolToTemp(resp.Body, filepath.Ext(req.URL.Path))
	if err != nil {
		return "", err
	}
	log.Debug().Str("url", url).Str("path", path).Msg("fetched http source")
	return path, nil
}

func spoolToTemp(r io.Reader, ext string) (string, error) {
	tmp, err := os.CreateTemp("", "printsrc-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("spool source: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
