package gcp

import (
	"os"
	"strings"

	"google.golang.org/api/option"
)

// ClientOptionsFromEnv builds storage client options from the process environment.
func ClientOptionsFromEnv() []option.ClientOption {
	return clientOptions(os.Getenv)
}

// clientOptions reads service account credentials from
// GOOGLE_APPLICATION_CREDENTIALS_JSON (inline JSON) or GOOGLE_APPLICATION_CREDENTIALS
// (file path) and an optional GCP_QUOTA_PROJECT. No credentials means
// application default credentials.
func clientOptions(getenv func(string) string) []option.ClientOption {
	var opts []option.ClientOption
	if inline := strings.TrimSpace(getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")); inline != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(inline)))
	} else if path := strings.TrimSpace(getenv("GOOGLE_APPLICATION_CREDENTIALS")); path != "" {
		if strings.HasPrefix(path, "{") {
			opts = append(opts, option.WithCredentialsJSON([]byte(path)))
		} else {
			opts = append(opts, option.WithCredentialsFile(path))
		}
	}
	if qp := strings.TrimSpace(getenv("GCP_QUOTA_PROJECT")); qp != "" {
		opts = append(opts, option.WithQuotaProject(qp))
	}
	return opts
}
