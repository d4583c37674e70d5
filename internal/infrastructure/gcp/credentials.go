package gcp

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// Scopes used by the BigQuery source and the Cloud Storage sink.
const (
	ScopeBigQuery     = "https://www.googleapis.com/auth/bigquery.readonly"
	ScopeStorageWrite = "https://www.googleapis.com/auth/devstorage.read_write"
)

// ClientOptions resolves Application Default Credentials (for example the file
// named by GOOGLE_APPLICATION_CREDENTIALS) and returns client options plus the
// project the credentials belong to, which may be empty.
func ClientOptions(ctx context.Context, scopes ...string) ([]option.ClientOption, string, error) {
	creds, err := google.FindDefaultCredentials(ctx, scopes...)
	if err != nil {
		return nil, "", fmt.Errorf("find default credentials: %w", err)
	}
	return []option.ClientOption{option.WithTokenSource(creds.TokenSource)}, creds.ProjectID, nil
}
