// Package resume loads the candidate's resume as opaque text.
package resume

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MaxSize bounds how many bytes of resume text are read.
const MaxSize = 1 << 20

var ErrUnsupportedType = errors.New("unsupported resume type")

// R2Config locates a Cloudflare R2 bucket.
type R2Config struct {
	AccountID string
	Bucket    string
	AccessKey string
	SecretKey string
}

func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// ObjectGetter is the subset of *s3.Client used to download objects.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store downloads resumes from a bucket.
type Store struct {
	client ObjectGetter
	bucket string
}

func NewStore(client ObjectGetter, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// NewR2Store builds an s3 client pointed at the account's R2 endpoint.
func NewR2Store(ctx context.Context, cfg R2Config) (*Store, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating aws config: %w", err)
	}
	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	})
	return NewStore(client, cfg.Bucket), nil
}

// Load downloads key and returns its text.
func (s *Store) Load(ctx context.Context, key string) (string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, io.LimitReader(out.Body, MaxSize)); err != nil {
		return "", fmt.Errorf("failed to read object body: %w", err)
	}
	contentType := aws.ToString(out.ContentType)
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(key))
	}
	return Text(contentType, buf.Bytes())
}

// LoadFile reads a local resume.
func LoadFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxSize))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Text(mime.TypeByExtension(filepath.Ext(path)), data)
}

// Text returns data as resume text. Only plain text is accepted; an empty
// content type is sniffed as UTF-8.
func Text(contentType string, data []byte) (string, error) {
	mediaType := contentType
	if contentType != "" {
		parsed, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
		}
		mediaType = parsed
	}
	switch mediaType {
	case "text/plain", "text/markdown":
	case "":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: not utf-8 text", ErrUnsupportedType)
		}
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mediaType)
	}
	return strings.TrimSpace(string(data)), nil
}
