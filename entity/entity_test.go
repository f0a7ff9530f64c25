package entity_test

import (
	"testing"

	"github.com/stevemurr/collection-sync/entity"
)

func TestCollectionOf(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{entity.CollectionOf[entity.User](), entity.Users},
		{entity.CollectionOf[entity.Task](), entity.Tasks},
		{entity.CollectionOf[entity.Product](), entity.Products},
		{entity.CollectionOf[entity.Book](), entity.Books},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Errorf("expected %q, got %q", tc.want, tc.got)
		}
	}
	if len(entity.Kinds()) != len(tests) {
		t.Fatalf("expected %d kinds, got %v", len(tests), entity.Kinds())
	}
}

func TestDraftDropsID(t *testing.T) {
	b := entity.Book{ID: 9, Title: "Go", Author: "Pike", ISBN: "1", PublishedYear: 2012, Available: true}
	want := entity.BookDraft{Title: "Go", Author: "Pike", ISBN: "1", PublishedYear: 2012, Available: true}
	if got := b.Draft(); got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if got := (entity.User{ID: 1, Name: "Ana", Role: "admin"}).Draft(); got != (entity.UserDraft{Name: "Ana", Role: "admin"}) {
		t.Fatalf("unexpected user draft %+v", got)
	}
}
