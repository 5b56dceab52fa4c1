package objectstore

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// newFakeS3Server stands in for S3 well enough to exercise the SDK's
// request path: it accepts any PUT as a successful upload and answers
// ListObjectsV2 with a fixed XML listing.
func newFakeS3Server(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>test-bucket</Name>
  <Contents><Key>prompt-backups/2026-01-01T00:00:00Z.md</Key></Contents>
  <Contents><Key>prompt-backups/2026-02-01T00:00:00Z.md</Key></Contents>
  <IsTruncated>false</IsTruncated>
</ListBucketResult>`)
		default:
			w.WriteHeader(http.StatusNotImplemented)
		}
	}))
}

func TestS3Backup_WritePromptBackup(t *testing.T) {
	srv := newFakeS3Server(t)
	defer srv.Close()

	backup, err := New(Config{Bucket: "test-bucket", Region: "us-east-1", Endpoint: srv.URL})
	require.NoError(t, err)

	err = backup.WritePromptBackup(context.Background(), "prompt-backups/2026-01-01T00:00:00Z.md", "prompt content")
	require.NoError(t, err)
}

func TestS3Backup_ListBackupsNewestFirst(t *testing.T) {
	srv := newFakeS3Server(t)
	defer srv.Close()

	backup, err := New(Config{Bucket: "test-bucket", Region: "us-east-1", Endpoint: srv.URL})
	require.NoError(t, err)

	keys, err := backup.ListBackups(context.Background(), "prompt-backups/")
	require.NoError(t, err)
	require.Len(t, keys, 2)
	require.Equal(t, "prompt-backups/2026-02-01T00:00:00Z.md", keys[0])
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
