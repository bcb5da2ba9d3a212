package infraction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"mimir/pkg/platform/sentinel"
)

func seedRecord(t *testing.T, store *InMemoryStore, rec Record) Record {
	t.Helper()
	stored, err := store.Insert(context.Background(), rec)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	return stored
}

func TestInMemoryStore_InsertAssignsIdentity(t *testing.T) {
	store := NewInMemoryStore()
	stored := seedRecord(t, store, Record{
		RecordType:       RecordTypeInfraction,
		InfractionType:   InfractionSuspended,
		AbuseType:        AbusePhishing,
		SourceDomainOrIP: "abc.com",
		ShopperID:        "4388",
	})

	if stored.ID == uuid.Nil {
		t.Fatalf("expected assigned id")
	}
	if stored.CreatedAt.IsZero() {
		t.Fatalf("expected assigned creation time")
	}

	got, err := store.FindByID(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("find by id failed: %v", err)
	}
	if got != stored {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, stored)
	}
}

func TestInMemoryStore_FindByID_NotFound(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.FindByID(context.Background(), uuid.New())
	if !errors.Is(err, sentinel.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryStore_FindDuplicate(t *testing.T) {
	store := NewInMemoryStore()
	rec := Record{
		RecordType:       RecordTypeInfraction,
		InfractionType:   InfractionSuspended,
		AbuseType:        AbusePhishing,
		SourceDomainOrIP: "abc.com",
		HostingGUID:      "guid-1",
		ShopperID:        "4388",
		TicketID:         "128F",
	}
	stored := seedRecord(t, store, rec)

	since := time.Now().Add(-time.Hour)
	found, err := store.FindDuplicate(context.Background(), DuplicateFilter(rec, since))
	if err != nil {
		t.Fatalf("expected duplicate hit: %v", err)
	}
	if found.ID != stored.ID {
		t.Fatalf("expected %s, got %s", stored.ID, found.ID)
	}

	// A differing submitted field is not a duplicate.
	other := rec
	other.TicketID = "999Z"
	_, err = store.FindDuplicate(context.Background(), DuplicateFilter(other, since))
	if !errors.Is(err, sentinel.ErrNotFound) {
		t.Fatalf("expected miss for differing ticket, got %v", err)
	}

	// A window that starts after the record was created excludes it.
	_, err = store.FindDuplicate(context.Background(), DuplicateFilter(rec, time.Now().Add(time.Hour)))
	if !errors.Is(err, sentinel.ErrNotFound) {
		t.Fatalf("expected miss outside window, got %v", err)
	}
}

func TestInMemoryStore_FindPagination(t *testing.T) {
	store := NewInMemoryStore()
	for i := 0; i < 5; i++ {
		seedRecord(t, store, Record{
			RecordType:       RecordTypeInfraction,
			InfractionType:   InfractionSuspended,
			AbuseType:        AbusePhishing,
			SourceDomainOrIP: "abc.com",
			ShopperID:        "4388",
		})
	}

	page, err := store.Find(context.Background(), Filter{ShopperID: "4388", Limit: 2})
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 records, got %d", len(page))
	}

	page, err = store.Find(context.Background(), Filter{ShopperID: "4388", Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("expected short final page of 1, got %d", len(page))
	}

	page, err = store.Find(context.Background(), Filter{ShopperID: "4388", Offset: 10})
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(page) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(page))
	}
}

func TestInMemoryStore_CountAndListMembership(t *testing.T) {
	store := NewInMemoryStore()
	seedRecord(t, store, Record{
		RecordType: RecordTypeInfraction, InfractionType: InfractionSuspended,
		AbuseType: AbusePhishing, SourceDomainOrIP: "abc.com", ShopperID: "4388",
	})
	seedRecord(t, store, Record{
		RecordType: RecordTypeInfraction, InfractionType: InfractionCustomerWarning,
		AbuseType: AbuseSpam, SourceDomainOrIP: "abc.com", ShopperID: "4388",
	})
	seedRecord(t, store, Record{
		RecordType: RecordTypeNote, AbuseType: AbuseSpam,
		SourceDomainOrIP: "abc.com", ShopperID: "4388",
	})

	n, err := store.Count(context.Background(), Filter{
		ShopperID:       "4388",
		InfractionTypes: []InfractionType{InfractionSuspended, InfractionCustomerWarning},
	})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2, got %d", n)
	}

	n, err = store.Count(context.Background(), Filter{
		ShopperID:   "4388",
		RecordTypes: []RecordType{RecordTypeNote},
	})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 note, got %d", n)
	}
}

func TestInMemoryStore_NoteSubstringSearch(t *testing.T) {
	store := NewInMemoryStore()
	seedRecord(t, store, Record{
		RecordType: RecordTypeNote, AbuseType: AbuseSpam,
		SourceDomainOrIP: "abc.com", ShopperID: "4388",
		Note: "shopper warned about repeated spam complaints",
	})

	matched, err := store.Find(context.Background(), Filter{NoteContains: "repeated spam"})
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(matched) != 1 {
		t.Fatalf("expected substring match, got %d records", len(matched))
	}

	matched, err = store.Find(context.Background(), Filter{NoteContains: "malware"})
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(matched) != 0 {
		t.Fatalf("expected no match, got %d records", len(matched))
	}
}
