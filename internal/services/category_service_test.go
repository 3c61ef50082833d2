package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"bankrecon/internal/core"
	"bankrecon/internal/sheets/memory"
)

type brokenCategories struct{ saves int }

func (b *brokenCategories) ListCategories(context.Context) ([]string, error) {
	return []string{"food"}, nil
}

func (b *brokenCategories) SaveCategories(context.Context, []string) error {
	b.saves++
	return errors.New("write refused")
}

func TestCategoryService_Add(t *testing.T) {
	ctx := context.Background()
	svc := NewCategoryService(memory.New([]string{"food", "rent"}))

	got, err := svc.Add(ctx, "  Travel ")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"food", "rent", "travel"}) {
		t.Fatalf("got %v", got)
	}

	got, err = svc.Add(ctx, "FOOD")
	if err != nil || len(got) != 3 {
		t.Fatalf("duplicate add should be a no-op: %v %v", got, err)
	}

	if _, err := svc.Add(ctx, "  "); !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
}

func TestCategoryService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := NewCategoryService(memory.New([]string{"food", "rent"}))

	got, err := svc.Delete(ctx, " Rent")
	if err != nil || !reflect.DeepEqual(got, []string{"food"}) {
		t.Fatalf("delete: %v %v", got, err)
	}
	got, err = svc.Delete(ctx, "missing")
	if err != nil || !reflect.DeepEqual(got, []string{"food"}) {
		t.Fatalf("missing delete should be a no-op: %v %v", got, err)
	}
	if _, err := svc.Delete(ctx, ""); !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
}

func TestCategoryService_StoreFailure(t *testing.T) {
	store := &brokenCategories{}
	svc := NewCategoryService(store)
	if _, err := svc.Add(context.Background(), "travel"); err == nil {
		t.Fatal("expected store error")
	}
	if _, err := svc.Add(context.Background(), "food"); err != nil {
		t.Fatalf("no-op add must not write: %v", err)
	}
	if store.saves != 1 {
		t.Fatalf("saves = %d", store.saves)
	}
}
