package plan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMemoryRepositoryEmpty(t *testing.T) {
	repo := NewMemoryRepository()

	if _, err := repo.GetLatest(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetLatest err = %v, want ErrNotFound", err)
	}
	list, err := repo.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("List = %d records, want 0", len(list))
	}
}

func TestMemoryRepositoryListLimit(t *testing.T) {
	repo := NewMemoryRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := range 5 {
		rec := Record{ID: uuid.New(), CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		ids = append(ids, rec.ID)
		if err := repo.Save(context.Background(), rec); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	list, err := repo.List(context.Background(), 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List = %d records, want 2", len(list))
	}
	if list[0].ID != ids[4] || list[1].ID != ids[3] {
		t.Error("List should return newest records first")
	}
}
