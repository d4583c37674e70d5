package sink

import (
	"bytes"
	"context"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"LinkScanner/internal/ports"
)

// GCSSink uploads reports as Cloud Storage objects.
type GCSSink struct {
	service *storage.Service
	bucket  string
}

var _ ports.ReportSink = (*GCSSink)(nil)

// NewGCSSink builds a storage client for bucket.
func NewGCSSink(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSSink, error) {
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSSink{service: svc, bucket: bucket}, nil
}

// Write uploads payload in a single request; the object only appears once the
// upload completes.
func (s *GCSSink) Write(ctx context.Context, name string, payload []byte) error {
	object := &storage.Object{Name: name, ContentType: "application/json"}
	_, err := s.service.Objects.Insert(s.bucket, object).
		Media(bytes.NewReader(payload), googleapi.ContentType("application/json")).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("upload gs://%s/%s: %w", s.bucket, name, err)
	}
	return nil
}

// Location renders the gs:// URL of an object.
func (s *GCSSink) Location(name string) string {
	return gcsScheme + s.bucket + "/" + name
}
