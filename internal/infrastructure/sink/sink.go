package sink

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"

	"LinkScanner/internal/ports"
)

const gcsScheme = "gs://"

// IsGCS reports whether the output prefix points at Cloud Storage.
func IsGCS(prefix string) bool {
	return strings.HasPrefix(prefix, gcsScheme)
}

// SplitGCS splits gs://bucket/path into bucket and object prefix.
func SplitGCS(prefix string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(prefix, gcsScheme)
	if !ok {
		return "", "", fmt.Errorf("%q is not a gs:// path", prefix)
	}
	bucket, object, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%q has no bucket", prefix)
	}
	if object == "" {
		return "", "", fmt.Errorf("%q has no object prefix", prefix)
	}
	return bucket, object, nil
}

// Open picks the sink for an output prefix and returns the name prefix to pass
// to Write. Client options are only used for gs:// prefixes.
func Open(ctx context.Context, prefix string, opts ...option.ClientOption) (ports.ReportSink, string, error) {
	if prefix == "" {
		return nil, "", fmt.Errorf("output prefix is empty")
	}
	if !IsGCS(prefix) {
		return NewLocalSink(), prefix, nil
	}

	bucket, object, err := SplitGCS(prefix)
	if err != nil {
		return nil, "", err
	}
	gcs, err := NewGCSSink(ctx, bucket, opts...)
	if err != nil {
		return nil, "", err
	}
	return gcs, object, nil
}
