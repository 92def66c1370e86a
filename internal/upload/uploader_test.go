package upload

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hf-eolus/sarwind-cli/internal/resilience"
)

type putCall struct {
	key         string
	contentType string
	body        string
}

type fakeS3 struct {
	calls    []putCall
	failures map[string]int // key -> remaining failures
	failWith error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(params.Key)
	if f.failures[key] > 0 {
		f.failures[key]--
		return nil, f.failWith
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.calls = append(f.calls, putCall{
		key:         key,
		contentType: aws.ToString(params.ContentType),
		body:        string(body),
	})
	return &s3.PutObjectOutput{}, nil
}

type throttleErr struct{}

func (throttleErr) Error() string                 { return "api error SlowDown" }
func (throttleErr) ErrorCode() string             { return "SlowDown" }
func (throttleErr) ErrorMessage() string          { return "Please reduce your request rate." }
func (throttleErr) ErrorFault() smithy.ErrorFault { return smithy.FaultServer }

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestParseS3URI(t *testing.T) {
	bucket, prefix, err := ParseS3URI("s3://my-bucket/catalog/owi")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "catalog/owi", prefix)

	bucket, prefix, err = ParseS3URI("s3://my-bucket")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Empty(t, prefix)

	// Trailing slash does not leak into keys.
	_, prefix, err = ParseS3URI("s3://my-bucket/catalog/")
	require.NoError(t, err)
	assert.Equal(t, "catalog", prefix)

	_, _, err = ParseS3URI("/local/path")
	assert.Error(t, err)

	_, _, err = ParseS3URI("s3://")
	assert.Error(t, err)
}

func TestUploadTreeMirrorsLayout(t *testing.T) {
	root := writeTree(t, map[string]string{
		"collection.json":           `{"id":"owi"}`,
		"columns.sql":               "rowid BIGINT",
		"assets/2020-11-01.parquet": "PAR1",
		"items/2020-11-01.json":     `{"id":"2020-11-01"}`,
	})

	fake := &fakeS3{}
	up, err := NewUploader(fake, "s3://bucket/catalog", Options{RequestsPerSecond: 1000})
	require.NoError(t, err)

	res, err := up.UploadTree(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Objects)

	keys := make([]string, 0, len(fake.calls))
	types := make(map[string]string)
	for _, c := range fake.calls {
		keys = append(keys, c.key)
		types[c.key] = c.contentType
	}
	sort.Strings(keys)
	assert.Equal(t, []string{
		"catalog/assets/2020-11-01.parquet",
		"catalog/collection.json",
		"catalog/columns.sql",
		"catalog/items/2020-11-01.json",
	}, keys)

	assert.Equal(t, "application/x-parquet", types["catalog/assets/2020-11-01.parquet"])
	assert.Equal(t, "application/json", types["catalog/collection.json"])
	assert.Equal(t, "text/plain", types["catalog/columns.sql"])
}

func TestUploadTreeNoPrefix(t *testing.T) {
	root := writeTree(t, map[string]string{"collection.json": "{}"})

	fake := &fakeS3{}
	up, err := NewUploader(fake, "s3://bucket", Options{RequestsPerSecond: 1000})
	require.NoError(t, err)

	_, err = up.UploadTree(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, "collection.json", fake.calls[0].key)
}

func TestUploadRetriesThrottle(t *testing.T) {
	root := writeTree(t, map[string]string{"collection.json": `{"id":"owi"}`})

	fake := &fakeS3{
		failures: map[string]int{"collection.json": 2},
		failWith: throttleErr{},
	}
	up, err := NewUploader(fake, "s3://bucket", Options{
		RequestsPerSecond: 1000,
		Retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
		},
	})
	require.NoError(t, err)

	res, err := up.UploadTree(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Objects)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, `{"id":"owi"}`, fake.calls[0].body)
}

func TestUploadGivesUpAfterMaxAttempts(t *testing.T) {
	root := writeTree(t, map[string]string{"collection.json": "{}"})

	fake := &fakeS3{
		failures: map[string]int{"collection.json": 10},
		failWith: throttleErr{},
	}
	up, err := NewUploader(fake, "s3://bucket", Options{
		RequestsPerSecond: 1000,
		Retry: resilience.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
		},
	})
	require.NoError(t, err)

	_, err = up.UploadTree(context.Background(), root)
	assert.Error(t, err)
	assert.Empty(t, fake.calls)
}

func TestIsThrottle(t *testing.T) {
	assert.True(t, resilience.IsThrottle(throttleErr{}))
	assert.False(t, resilience.IsThrottle(os.ErrNotExist))
	assert.False(t, resilience.IsThrottle(nil))
}

func TestObjectURL(t *testing.T) {
	up, err := NewUploader(&fakeS3{}, "s3://bucket/catalog", Options{})
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/catalog/assets/2020-11-01.parquet",
		up.ObjectURL("catalog/assets/2020-11-01.parquet"))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/x-parquet", ContentTypeFor("assets/2020-11-01.parquet"))
	assert.Equal(t, "application/json", ContentTypeFor("items/2020-11-01.json"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("README"))
}
