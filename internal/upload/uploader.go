// Package upload publishes a local dataset tree to S3. Objects are keyed by
// their path relative to the tree root, so the remote layout mirrors the
// local one exactly (assets/, items/, collection.json, columns.sql).
package upload

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hf-eolus/sarwind-cli/internal/resilience"
	"github.com/hf-eolus/sarwind-cli/internal/stac"
)

// ObjectPutter is the slice of the S3 API the uploader needs. *s3.Client
// satisfies it.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options tunes upload pacing and retry behavior. Zero values fall back to
// conservative defaults suited to bulk catalog pushes.
type Options struct {
	// RequestsPerSecond caps the PutObject rate. Default: 20.
	RequestsPerSecond float64

	// Retry controls backoff on throttled or transient failures.
	Retry resilience.RetryConfig
}

// Result summarizes a completed tree upload.
type Result struct {
	Objects int
	Bytes   int64
}

// Uploader copies files under a local root to a bucket/prefix destination.
type Uploader struct {
	client  ObjectPutter
	bucket  string
	prefix  string
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// ParseS3URI splits an s3://bucket/prefix URI into bucket and prefix. The
// prefix may be empty; it is returned without leading or trailing slashes.
func ParseS3URI(uri string) (bucket, prefix string, err error) {
	const scheme = "s3://"
	if !strings.HasPrefix(uri, scheme) {
		return "", "", eris.Errorf("destination %q is not an s3:// URI", uri)
	}
	rest := strings.TrimPrefix(uri, scheme)
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", eris.Errorf("destination %q has no bucket", uri)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// NewUploader builds an Uploader targeting the given s3:// destination URI.
func NewUploader(client ObjectPutter, destURI string, opts Options) (*Uploader, error) {
	bucket, prefix, err := ParseS3URI(destURI)
	if err != nil {
		return nil, err
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 20
	}
	retry := opts.Retry
	if retry.ShouldRetry == nil {
		retry.ShouldRetry = func(err error) bool {
			return resilience.IsThrottle(err) || resilience.IsTransient(err)
		}
	}
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("s3", "PutObject")
	}
	return &Uploader{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		retry:   retry,
	}, nil
}

// UploadTree uploads every regular file under root, keyed by its
// slash-separated path relative to root. Files are uploaded in lexical walk
// order; the first failed object aborts the run.
func (u *Uploader) UploadTree(ctx context.Context, root string) (*Result, error) {
	log := zap.L().With(
		zap.String("component", "upload"),
		zap.String("bucket", u.bucket),
		zap.String("prefix", u.prefix),
	)

	res := &Result{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return eris.Wrapf(err, "relativize %s", path)
		}
		key := filepath.ToSlash(rel)
		if u.prefix != "" {
			key = u.prefix + "/" + key
		}

		n, err := u.uploadFile(ctx, path, key)
		if err != nil {
			return eris.Wrapf(err, "upload %s", key)
		}
		res.Objects++
		res.Bytes += n
		log.Debug("uploaded object",
			zap.String("url", u.ObjectURL(key)),
			zap.Int64("bytes", n),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("upload complete",
		zap.Int("objects", res.Objects),
		zap.Int64("bytes", res.Bytes),
	)
	return res, nil
}

func (u *Uploader) uploadFile(ctx context.Context, path, key string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, eris.Wrap(err, "stat source file")
	}

	if err := u.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	err = resilience.Do(ctx, u.retry, func(ctx context.Context) error {
		f, err := os.Open(path)
		if err != nil {
			return eris.Wrap(err, "open source file")
		}
		defer f.Close()

		_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(u.bucket),
			Key:           aws.String(key),
			Body:          f,
			ContentLength: aws.Int64(info.Size()),
			ContentType:   aws.String(ContentTypeFor(path)),
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ContentTypeFor maps a file's extension to the media type it is served with.
func ContentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return stac.MediaTypeParquet
	case ".json", ".geojson":
		return "application/json"
	case ".sql", ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// ObjectURL returns the s3:// URI an uploaded key resolves to. Useful for
// logs and run summaries.
func (u *Uploader) ObjectURL(key string) string {
	return fmt.Sprintf("s3://%s/%s", u.bucket, key)
}
