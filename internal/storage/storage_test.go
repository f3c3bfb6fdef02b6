// AngelaMos | 2026
// storage_test.go

package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/carterperez-dev/imagedit/backend/internal/config"
)

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir(), "/static/uploads")
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	url, err := l.Save(ctx, []byte("png-bytes"), "Cat Photo.PNG", "user-1")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasPrefix(url, "/static/uploads/user-1/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("Save() url = %q", url)
	}

	data, err := l.Load(ctx, url)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("Load() = %q, want png-bytes", data)
	}

	if err := l.Delete(ctx, url); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := l.Delete(ctx, url); err != nil {
		t.Fatalf("second Delete() error = %v, want nil", err)
	}
	if _, err := l.Load(ctx, url); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("Load() after delete error = %v, want ErrObjectNotFound", err)
	}
}

func TestLocalRejectsEscapes(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	l, err := NewLocal(root, "")
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	if _, err := l.Load(ctx, "/elsewhere/file.png"); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("Load(foreign) error = %v, want ErrInvalidURL", err)
	}

	url, err := l.Save(ctx, []byte("x"), "a.jpg", "../../etc")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if strings.Contains(url, "..") {
		t.Fatalf("Save() url escaped root: %q", url)
	}

	if _, err := l.Load(ctx, "/static/uploads/../../../etc/passwd"); err == nil {
		t.Fatal("Load() traversal succeeded")
	}
}

func TestObjectNameKeepsExtension(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		in      string
		wantExt string
	}{
		{"photo.JPG", ".jpg"},
		{"archive.tar.gz", ".gz"},
		{"noext", ""},
		{"../../evil.png", ".png"},
	}

	for _, tt := range tests {
		got := objectName(tt.in, now)
		if !strings.HasPrefix(got, "20260301_123000_") {
			t.Errorf("objectName(%q) = %q, want timestamp prefix", tt.in, got)
		}
		if !strings.HasSuffix(got, tt.wantExt) || strings.Contains(got, "/") {
			t.Errorf("objectName(%q) = %q, want suffix %q", tt.in, got, tt.wantExt)
		}
	}
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3RoundTrip(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{objects: map[string][]byte{}}
	s := NewS3WithClient(client, config.StorageConfig{S3Bucket: "imgs", S3Region: "us-east-1"})

	url, err := s.Save(ctx, []byte("jpeg"), "x.jpeg", "u1")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasPrefix(url, "https://s3.us-east-1.amazonaws.com/imgs/u1/") {
		t.Fatalf("Save() url = %q", url)
	}

	data, err := s.Load(ctx, url)
	if err != nil || string(data) != "jpeg" {
		t.Fatalf("Load() = %q, %v", data, err)
	}

	if err := s.Delete(ctx, url); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Load(ctx, url); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("Load() after delete error = %v, want ErrObjectNotFound", err)
	}
}

func TestS3CustomEndpointURLs(t *testing.T) {
	s := NewS3WithClient(&fakeS3{objects: map[string][]byte{}}, config.StorageConfig{
		S3Bucket:   "imgs",
		S3Region:   "auto",
		S3Endpoint: "http://minio:9000/",
	})

	url, err := s.Save(context.Background(), []byte("a"), "a.png", "")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasPrefix(url, "http://minio:9000/imgs/") {
		t.Fatalf("Save() url = %q", url)
	}

	if _, err := s.keyFor("https://other.example/imgs/a.png"); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("keyFor(foreign) error = %v, want ErrInvalidURL", err)
	}
}
