package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/kozaktomas/face-roster/internal/database"
)

func TestStore_InsertAndScan(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if err := store.Insert(ctx, &database.StoredIdentity{UUID: id, Photo: "cA=="}); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	var got []string
	for identity, err := range database.ScanAll(ctx, store, 2) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, identity.UUID)
	}

	want := []string{"a", "b", "c", "d", "e"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected insertion order %v, got %v", want, got)
			break
		}
	}
}

func TestStore_ScanPageCursor(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	for _, id := range []string{"a", "b", "c"} {
		store.Insert(ctx, &database.StoredIdentity{UUID: id})
	}

	page, err := store.ScanPage(ctx, "", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Identities) != 2 || page.NextCursor != "2" {
		t.Fatalf("unexpected first page: %+v", page)
	}

	page, err = store.ScanPage(ctx, page.NextCursor, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Identities) != 1 || page.NextCursor != "" {
		t.Fatalf("unexpected last page: %+v", page)
	}

	if _, err := store.ScanPage(ctx, "garbage", 2); !errors.Is(err, database.ErrStore) {
		t.Errorf("expected ErrStore for invalid cursor, got %v", err)
	}
}

func TestStore_InsertDuplicateUUID(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	if err := store.Insert(ctx, &database.StoredIdentity{UUID: "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Insert(ctx, &database.StoredIdentity{UUID: "a"}); !errors.Is(err, database.ErrStore) {
		t.Errorf("expected ErrStore for duplicate uuid, got %v", err)
	}
}

func TestStore_InsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	first, inserted, err := store.InsertIfAbsent(ctx, &database.StoredIdentity{UUID: "a", Fingerprint: "fp"})
	if err != nil || !inserted {
		t.Fatalf("expected first insert to succeed, got inserted=%v err=%v", inserted, err)
	}
	if first.UUID != "a" {
		t.Errorf("expected stored identity a, got %s", first.UUID)
	}

	owner, inserted, err := store.InsertIfAbsent(ctx, &database.StoredIdentity{UUID: "b", Fingerprint: "fp"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted {
		t.Error("expected second insert with same fingerprint to be skipped")
	}
	if owner.UUID != "a" {
		t.Errorf("expected existing owner a, got %s", owner.UUID)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 identity, got %d", store.Len())
	}
}

func TestStore_Register(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.Insert(ctx, &database.StoredIdentity{UUID: "a"})

	got, err := store.Register(ctx, "a", database.Registration{FirstName: "Grace", LastName: "Hopper", Grade: 12})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsRegistered || *got.FirstName != "Grace" {
		t.Errorf("unexpected identity after registration: %+v", got)
	}

	stored, _ := store.Get(ctx, "a")
	if !stored.IsRegistered || *stored.Grade != 12 {
		t.Errorf("expected registration to be persisted: %+v", stored)
	}

	if _, err := store.Register(ctx, "missing", database.Registration{}); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.Insert(ctx, &database.StoredIdentity{UUID: "a"})
	store.Register(ctx, "a", database.Registration{FirstName: "Ada"})

	got, _ := store.Get(ctx, "a")
	*got.FirstName = "changed"

	again, _ := store.Get(ctx, "a")
	if *again.FirstName != "Ada" {
		t.Errorf("expected store to be isolated from caller mutations, got %s", *again.FirstName)
	}

	missing, err := store.Get(ctx, "missing")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing identity, got %v, %v", missing, err)
	}
}
