package promptpromotion

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/require"

	"guidance-rag/internal/db"
)

type fakeBackup struct {
	writes map[string]string
}

func (f *fakeBackup) WritePromptBackup(_ context.Context, path, content string) error {
	if f.writes == nil {
		f.writes = map[string]string{}
	}
	f.writes[path] = content
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeBackup) {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.RunMigrations(context.Background(), conn, nil))

	production := db.NewProductionPromptRepo(conn)
	require.NoError(t, production.Init(context.Background(), "initial prompt text", "system", time.Now().UTC()))

	backup := &fakeBackup{}
	svc := New(db.NewPromptVersionRepo(conn), production, backup, nil, nil)
	return svc, backup
}

func TestService_CreateAndPromote(t *testing.T) {
	svc, backup := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	v, err := svc.Create(ctx, CreateParams{Name: "v2", PromptText: "new prompt text", AuthorID: "alice"}, now)
	require.NoError(t, err)

	preview, err := svc.Preview(ctx, v.ID)
	require.NoError(t, err)
	require.Equal(t, "initial prompt text", preview.CurrentText)

	require.NoError(t, svc.Promote(ctx, v.ID, "alice", true, now.Add(time.Minute)))

	prod, err := svc.CurrentProduction(ctx)
	require.NoError(t, err)
	require.Equal(t, "new prompt text", prod.PromptText)
	require.Len(t, backup.writes, 1)
}

func TestService_PromoteWithoutConfirmationFails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	v, err := svc.Create(ctx, CreateParams{Name: "v2", PromptText: "x"}, now)
	require.NoError(t, err)

	err = svc.Promote(ctx, v.ID, "alice", false, now)
	require.Error(t, err)
}

func TestService_SoftDeleteThenHardDeleteBeforeWindowFails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	v, err := svc.Create(ctx, CreateParams{Name: "v2", PromptText: "x"}, now)
	require.NoError(t, err)
	require.NoError(t, svc.SoftDelete(ctx, v.ID, "alice", now))

	err = svc.HardDelete(ctx, v.ID, now.Add(24*time.Hour))
	require.Error(t, err)

	err = svc.HardDelete(ctx, v.ID, now.Add(31*24*time.Hour))
	require.NoError(t, err)
}
