// Package source implements the object-storage row source and artifact
// uploader over S3. It owns listing, download, gzip decompression and CSV
// tokenization; the pipeline stages only ever see []rows.Row.
package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/SurturFTW/clevertap-cart-abandon/internal/rows"
	logpkg "github.com/SurturFTW/clevertap-cart-abandon/pkg/log"
)

// S3 lists, fetches and uploads row collections in S3 buckets.
type S3 struct {
	client s3iface.S3API
	logger logpkg.Logger
}

// New dials a session against the given region and returns an S3 source.
func New(region string, logger logpkg.Logger) (*S3, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return NewWithClient(s3.New(sess), logger), nil
}

// NewWithClient wraps an existing S3 API client. Tests inject fakes here.
func NewWithClient(client s3iface.S3API, logger logpkg.Logger) *S3 {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	return &S3{client: client, logger: logger.With(logpkg.Component("s3"))}
}

// List implements rows.Source. It pages through the bucket and returns every
// object under the selector's prefix. Failures are wrapped as
// rows.ErrSourceRead: a partial listing must not feed a delta computation.
func (s *S3) List(ctx context.Context, sel rows.Selector) ([]rows.ObjectInfo, error) {
	if sel.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket name is required", rows.ErrSourceRead)
	}
	var out []rows.ObjectInfo
	input := &s3.ListObjectsV2Input{Bucket: aws.String(sel.Bucket)}
	if sel.Prefix != "" {
		input.Prefix = aws.String(sel.Prefix)
	}
	err := s.client.ListObjectsV2PagesWithContext(ctx, input,
		func(page *s3.ListObjectsV2Output, _ bool) bool {
			for _, obj := range page.Contents {
				out = append(out, rows.ObjectInfo{
					Key:          aws.StringValue(obj.Key),
					Size:         aws.Int64Value(obj.Size),
					LastModified: aws.TimeValue(obj.LastModified),
				})
			}
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", rows.ErrSourceRead, sel.Bucket, err)
	}
	s.logger.Debug("listed bucket", logpkg.Str("bucket", sel.Bucket), logpkg.Int("objects", len(out)))
	return out, nil
}

// Fetch implements rows.Source. Objects with a .gz suffix are gunzipped
// before CSV decoding.
func (s *S3) Fetch(ctx context.Context, bucket, key string) ([]rows.Row, error) {
	resp, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s/%s: %v", rows.ErrSourceRead, bucket, key, err)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if strings.HasSuffix(key, ".gz") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: gunzip %s/%s: %v", rows.ErrSourceRead, bucket, key, err)
		}
		defer gz.Close()
		reader = gz
	}

	rs, err := rows.DecodeCSV(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s/%s: %v", rows.ErrSourceRead, bucket, key, err)
	}
	s.logger.Debug("fetched object",
		logpkg.Str("bucket", bucket), logpkg.Str("key", key), logpkg.Int("rows", len(rs)))
	return rs, nil
}

// Upload implements rows.Uploader, storing a CSV artifact.
func (s *S3) Upload(ctx context.Context, bucket, key string, body []byte) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}
	s.logger.Info("artifact uploaded",
		logpkg.Str("bucket", bucket), logpkg.Str("key", key), logpkg.Int("bytes", len(body)))
	return nil
}
