package fileid

import (
	"testing"

	"github.com/google/uuid"
)

func TestEntityGUID(t *testing.T) {
	// Deterministic: same pair gives same GUID
	id1 := EntityGUID("hive_table", "db.sales@cl1")
	id2 := EntityGUID("hive_table", "db.sales@cl1")
	if id1 != id2 {
		t.Errorf("same pair should give same GUID: %q vs %q", id1, id2)
	}
	parsed, err := uuid.Parse(id1)
	if err != nil {
		t.Fatalf("GUID should be a UUID: %v", err)
	}
	if parsed.Version() != 5 {
		t.Errorf("expected a version 5 UUID, got %d", parsed.Version())
	}
}

func TestEntityGUID_differentInputs(t *testing.T) {
	base := EntityGUID("hive_table", "db.sales@cl1")
	if EntityGUID("hive_db", "db.sales@cl1") == base {
		t.Error("different types should give different GUIDs")
	}
	if EntityGUID("hive_table", "db.orders@cl1") == base {
		t.Error("different qualified names should give different GUIDs")
	}
	// The separator keeps type/name boundaries apart.
	if EntityGUID("ab", "c") == EntityGUID("a", "bc") {
		t.Error("shifted boundary should give a different GUID")
	}
}

func TestSourceGUID_normalized(t *testing.T) {
	// Clean path: /foo/./bar.json and /foo/bar.json should match
	id1 := SourceGUID("/foo/bar.json", "0")
	id2 := SourceGUID("/foo/./bar.json", "0")
	if id1 != id2 {
		t.Errorf("paths with . should normalize: %q vs %q", id1, id2)
	}
	if SourceGUID("/foo/bar.json", "1") == id1 {
		t.Error("different keys should give different GUIDs")
	}
	if SourceGUID("/foo/baz.json", "0") == id1 {
		t.Error("different paths should give different GUIDs")
	}
}
