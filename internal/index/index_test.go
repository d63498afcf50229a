package index

import (
	"os"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "studyvault-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM artifacts`).Scan(&count); err != nil {
		t.Fatalf("artifacts table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	e := Entry{NotebookPath: "/root/_notebooks/Algebra", Field: "transcript", Checksum: "abc123"}
	if err := db.Upsert(e, "Today we cover linear equations."); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	cs, err := db.GetChecksum(e.NotebookPath, e.Field)
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	nb := "/root/_notebooks/Algebra"
	_ = db.Upsert(Entry{NotebookPath: nb, Field: "summary_title", Checksum: "1"}, "old body")
	_ = db.Upsert(Entry{NotebookPath: nb, Field: "summary_title", Checksum: "2"}, "new body")

	cs, _ := db.GetChecksum(nb, "summary_title")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	n, _ := db.Count()
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	nb := "/root/_notebooks/Algebra"
	_ = db.Upsert(Entry{NotebookPath: nb, Field: "transcript", Checksum: "x"}, "body")

	if err := db.Delete(nb, "transcript"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	cs, _ := db.GetChecksum(nb, "transcript")
	if cs != "" {
		t.Errorf("deleted artifact still has checksum %q", cs)
	}
}

func TestClear(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(Entry{NotebookPath: "/root/_notebooks/A", Field: "transcript", Checksum: "1"}, "a")
	_ = db.Upsert(Entry{NotebookPath: "/root/_notebooks/B", Field: "transcript", Checksum: "2"}, "b")

	if err := db.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	n, _ := db.Count()
	if n != 0 {
		t.Errorf("count after clear = %d", n)
	}
}

func TestAllChecksumsKeyedByStorageKey(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(Entry{NotebookPath: "/root/Math/_notebooks/Calc1", Field: "transcript", Checksum: "c"}, "x")

	all, err := db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums: %v", err)
	}
	if all["/root/Math/_notebooks/Calc1/transcript"] != "c" {
		t.Errorf("checksums = %v", all)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("/root/_notebooks/none", "transcript")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(Entry{NotebookPath: "/root/_notebooks/Bio", Field: "transcript", Checksum: "1"}, "mitochondria appears here")

	results, err := db.Search("mitochondria", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].NotebookPath != "/root/_notebooks/Bio" || results[0].Field != "transcript" {
		t.Errorf("search results = %+v, want 1 hit for Bio transcript", results)
	}
}

func TestSearch_NoHitsIsEmptySlice(t *testing.T) {
	db := testDB(t)
	results, err := db.Search("nothing", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("results = %#v", results)
	}
}
