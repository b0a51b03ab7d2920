package contentstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewS3_AppliesOptions(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	b, err := NewS3(context.Background(), S3Options{
		Region: "us-east-1", User: "minio", Password: "secret", Bucket: "docs", Endpoint: "http://127.0.0.1:9000",
	})
	require.NoError(t, err)
	assert.Equal(t, "docs", b.bucket)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3_Errors(t *testing.T) {
	_, err := NewS3(context.Background(), S3Options{})
	require.Error(t, err)

	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}
	_, err = NewS3(context.Background(), S3Options{Bucket: "docs"})
	require.ErrorContains(t, err, "no config")
}

func TestBlake3ContentID(t *testing.T) {
	a, n, err := blake3ContentID(strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.True(t, strings.HasPrefix(a, s3ContentPrefix))
	assert.Len(t, a, len(s3ContentPrefix)+64)

	b, _, err := blake3ContentID(strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, _, err := blake3ContentID(strings.NewReader("hellO"))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

type objectServer struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *objectServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/docs/")
	switch r.Method {
	case http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		s.objects[key] = b
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		b, ok := s.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(b)))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3_AddAndStat(t *testing.T) {
	store := &objectServer{objects: map[string][]byte{}}
	srv := httptest.NewServer(store)
	t.Cleanup(srv.Close)

	b, err := NewS3(context.Background(), S3Options{
		Region: "us-east-1", User: "minio", Password: "secret", Bucket: "docs", Endpoint: srv.URL,
	})
	require.NoError(t, err)

	cid, err := b.Add(context.Background(), bytes.NewReader([]byte("0123456789")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cid, s3ContentPrefix))

	store.mu.Lock()
	assert.Contains(t, string(store.objects[cid]), "0123456789")
	store.mu.Unlock()

	info, err := b.Stat(context.Background(), cid)
	require.NoError(t, err)
	assert.Equal(t, cid, info.ContentID)
	assert.Equal(t, int64(10), info.Size)

	_, err = b.Stat(context.Background(), "QmNotOurs")
	require.Error(t, err)
}
