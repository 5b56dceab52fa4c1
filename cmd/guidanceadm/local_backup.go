package main

import (
	"context"
	"os"
	"path/filepath"
)

// localFileBackup satisfies db.BackupWriter by writing to a local
// directory, used when no object-store bucket is configured so that
// prompt promotion still has somewhere durable to write the outgoing
// prompt text before the singleton row is swapped (spec §4.K step b).
// Production deployments should configure internal/objectstore instead.
type localFileBackup struct{}

func (localFileBackup) WritePromptBackup(ctx context.Context, path string, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
