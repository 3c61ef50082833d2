package services

import (
	"context"
	"fmt"
	"slices"

	"bankrecon/internal/core"
	"bankrecon/internal/sheets"
)

// CategoryService applies the naming rules of the category list on top of a
// CategoryStore.
type CategoryService struct {
	store sheets.CategoryStore
}

func NewCategoryService(store sheets.CategoryStore) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) List(ctx context.Context) ([]string, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// Add appends the normalized name. Adding a name already present returns
// the list unchanged.
func (s *CategoryService) Add(ctx context.Context, name string) ([]string, error) {
	n, err := core.NormalizeCategoryName(name)
	if err != nil {
		return nil, err
	}
	cats, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if slices.Contains(cats, n) {
		return cats, nil
	}
	updated := append(slices.Clone(cats), n)
	if err := s.store.SaveCategories(ctx, updated); err != nil {
		return nil, fmt.Errorf("save categories: %w", err)
	}
	return updated, nil
}

// Delete removes the normalized name. Deleting a missing name returns the
// list unchanged.
func (s *CategoryService) Delete(ctx context.Context, name string) ([]string, error) {
	n, err := core.NormalizeCategoryName(name)
	if err != nil {
		return nil, err
	}
	cats, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(cats, n) {
		return cats, nil
	}
	updated := slices.DeleteFunc(slices.Clone(cats), func(c string) bool { return c == n })
	if err := s.store.SaveCategories(ctx, updated); err != nil {
		return nil, fmt.Errorf("save categories: %w", err)
	}
	return updated, nil
}
