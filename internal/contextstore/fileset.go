package contextstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ai-course-tutor/config"
	"ai-course-tutor/pkg/logger"
	pkgs3 "ai-course-tutor/pkg/s3"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// FileSet is a read-only view over the pre-built dataset, keyed by paths
// relative to the dataset root.
type FileSet interface {
	ReadBytes(ctx context.Context, path string) ([]byte, error)
	ReadString(ctx context.Context, path string) (string, error)
}

// OpenFileSet resolves a base URL to a backend: s3://bucket/prefix for
// object storage, anything else is a local directory.
func OpenFileSet(baseURL string) (FileSet, error) {
	if strings.HasPrefix(baseURL, "s3://") {
		rest := strings.TrimPrefix(baseURL, "s3://")
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return nil, fmt.Errorf("%v: invalid s3 url %q", config.ModuleContext, baseURL)
		}
		cli, err := pkgs3.GetClient()
		if err != nil {
			return nil, err
		}
		return &s3FileSet{cli: cli, bucket: bucket, prefix: prefix}, nil
	}
	return &localFileSet{base: baseURL}, nil
}

type localFileSet struct {
	base string
}

func (fs *localFileSet) ReadBytes(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(fs.base, filepath.FromSlash(path)))
}

func (fs *localFileSet) ReadString(ctx context.Context, path string) (string, error) {
	b, err := fs.ReadBytes(ctx, path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type s3FileSet struct {
	cli    *s3.Client
	bucket string
	prefix string
}

func (fs *s3FileSet) key(path string) string {
	if fs.prefix == "" {
		return path
	}
	return strings.TrimSuffix(fs.prefix, "/") + "/" + path
}

func (fs *s3FileSet) ReadBytes(ctx context.Context, path string) ([]byte, error) {
	out, err := fs.cli.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(fs.key(path)),
	})
	if err != nil {
		logger.Error(err, "%v: s3 get object failed: %s", config.ModuleContext, path)
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (fs *s3FileSet) ReadString(ctx context.Context, path string) (string, error) {
	b, err := fs.ReadBytes(ctx, path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
