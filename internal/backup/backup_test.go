package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JordanCoin/openfoia/internal/storage/sqlite"
	"github.com/JordanCoin/openfoia/pkg/types"
)

func seedDatabase(t *testing.T, path string) {
	t.Helper()
	store, err := sqlite.NewGraphStore(path, 0.4)
	if err != nil {
		t.Fatalf("NewGraphStore: %v", err)
	}
	defer store.Close()

	status := types.DocumentStatus{DocumentID: "doc-1", Status: types.DocCommitted}
	if err := store.SetDocumentStatus(context.Background(), status); err != nil {
		t.Fatalf("SetDocumentStatus: %v", err)
	}
}

func TestCreateVerifyRestore(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "foiagraph.db")
	seedDatabase(t, dbPath)

	svc, err := NewService(dbPath, filepath.Join(dir, "backups"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	info, err := svc.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if info.Size == 0 {
		t.Error("backup has zero size")
	}

	// Damage the live database, then restore.
	if err := os.WriteFile(dbPath, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("corrupt db: %v", err)
	}
	if err := svc.Restore(info.Path); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	// The restored database is readable and has the seeded status.
	store, err := sqlite.NewGraphStore(dbPath, 0.4)
	if err != nil {
		t.Fatalf("reopen restored db: %v", err)
	}
	defer store.Close()
	st, err := store.DocumentStatus(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("DocumentStatus after restore: %v", err)
	}
	if st.Status != types.DocCommitted {
		t.Errorf("restored status = %q", st.Status)
	}
}

func TestRestoreRejectsCorruptBackup(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "foiagraph.db")
	seedDatabase(t, dbPath)

	svc, err := NewService(dbPath, filepath.Join(dir, "backups"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	bad := filepath.Join(dir, "backups", "foiagraph-20260101-000000.db")
	if err := os.WriteFile(bad, []byte("not a database"), 0o644); err != nil {
		t.Fatalf("write corrupt backup: %v", err)
	}
	if err := svc.Restore(bad); err == nil {
		t.Fatal("restore of corrupt backup should fail")
	}
}

func TestListAndPrune(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "foiagraph.db")
	seedDatabase(t, dbPath)

	backupDir := filepath.Join(dir, "backups")
	svc, err := NewService(dbPath, backupDir)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if _, err := svc.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Older snapshots, planted with valid names.
	for _, stamp := range []string{"20250101-000000", "20250201-000000"} {
		older := filepath.Join(backupDir, filePrefix+stamp+".db")
		if err := os.WriteFile(older, []byte("x"), 0o644); err != nil {
			t.Fatalf("plant old backup: %v", err)
		}
	}

	infos, err := svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("got %d backups, want 3", len(infos))
	}
	for i := 1; i < len(infos); i++ {
		if infos[i].Timestamp.After(infos[i-1].Timestamp) {
			t.Error("backups not sorted newest first")
		}
	}

	removed, err := svc.Prune(1)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Errorf("pruned %d, want 2", removed)
	}
	infos, err = svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 {
		t.Errorf("%d backups remain, want 1", len(infos))
	}
	if time.Since(infos[0].Timestamp) > time.Hour {
		t.Error("the surviving backup should be the newest one")
	}
}
