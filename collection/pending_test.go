package collection_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stevemurr/collection-sync/collection"
	"github.com/stevemurr/collection-sync/entity"
)

func TestAsyncOperations(t *testing.T) {
	ctx := context.Background()
	f := newFakeSource(entity.User{ID: 1, Name: "Ana"})
	s := newStore(f)

	items, err := s.FetchAllAsync(ctx).Await(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	created, err := s.CreateAsync(ctx, entity.UserDraft{Name: "Bo"}).Await(ctx)
	if err != nil {
		t.Fatal(err)
	}

	created.Name = "Bo2"
	p := s.UpdateAsync(ctx, created)
	<-p.Done()
	updated, err := p.Await(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Bo2" {
		t.Fatalf("expected Bo2, got %q", updated.Name)
	}

	_, err = s.UpdateAsync(ctx, entity.User{ID: 99}).Await(ctx)
	if !errors.Is(err, collection.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAwaitGivesUp(t *testing.T) {
	f := newFakeSource(entity.User{ID: 1})
	f.block = make(chan struct{})
	defer close(f.block)
	s := newStore(f)

	p := s.FetchAllAsync(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := p.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
