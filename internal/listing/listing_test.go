package listing

import (
	"context"
	"errors"
	"testing"

	"kbadmin/internal/pending"
	"kbadmin/internal/schema"
	"kbadmin/internal/upstream"
)

type fakeClient struct {
	items      []upstream.Item
	categories []upstream.Category
	listErr    error

	deleted []int64
	updated []upstream.Item
	created []upstream.Item

	deleteErr map[int64]error
	createErr map[string]error
	updateErr map[int64]error
	nextID    int64

	categoryErr       error
	deletedCategories []int64
}

func (f *fakeClient) ListItems(ctx context.Context) ([]upstream.Item, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]upstream.Item(nil), f.items...), nil
}

func (f *fakeClient) CreateItem(ctx context.Context, item upstream.Item) (upstream.Item, error) {
	if err := f.createErr[item.Name]; err != nil {
		return upstream.Item{}, err
	}
	f.nextID++
	item.ID = f.nextID + 1000
	f.created = append(f.created, item)
	return item, nil
}

func (f *fakeClient) UpdateItem(ctx context.Context, id int64, item upstream.Item) (upstream.Item, error) {
	if err := f.updateErr[id]; err != nil {
		return upstream.Item{}, err
	}
	f.updated = append(f.updated, item)
	return item, nil
}

func (f *fakeClient) DeleteItem(ctx context.Context, id int64) error {
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeClient) ListCategories(ctx context.Context) ([]upstream.Category, error) {
	return f.categories, nil
}

func (f *fakeClient) CreateCategory(ctx context.Context, input upstream.CategoryInput) (upstream.Category, error) {
	if f.categoryErr != nil {
		return upstream.Category{}, f.categoryErr
	}
	created := upstream.Category{ID: int64(len(f.categories) + 100), Name: input.Name, Description: input.Description}
	f.categories = append(f.categories, created)
	return created, nil
}

func (f *fakeClient) DeleteCategory(ctx context.Context, id int64) error {
	f.deletedCategories = append(f.deletedCategories, id)
	return nil
}

func (f *fakeClient) CheckConnectivity(ctx context.Context) upstream.Status {
	return upstream.Status{Connected: true}
}

type fakeCategoryStore struct {
	names []string
}

func (f *fakeCategoryStore) ListCustomCategories(ctx context.Context) ([]string, error) {
	return f.names, nil
}

func (f *fakeCategoryStore) RecordCategory(ctx context.Context, name string) error {
	for _, existing := range f.names {
		if existing == name {
			return nil
		}
	}
	f.names = append(f.names, name)
	return nil
}

func (f *fakeCategoryStore) ForgetCategory(ctx context.Context, name string) error {
	kept := f.names[:0]
	for _, existing := range f.names {
		if existing != name {
			kept = append(kept, existing)
		}
	}
	f.names = kept
	return nil
}

func newService(client *fakeClient, store *fakeCategoryStore) Service {
	if store == nil {
		store = &fakeCategoryStore{}
	}
	return New(client, store, pending.NewRegistry())
}

func TestItemsSortsLatestFirst(t *testing.T) {
	client := &fakeClient{items: []upstream.Item{
		{ID: 1, Name: "Old", Category: schema.CategoryEvent, CreatedAt: "2024-01-01T10:00:00Z"},
		{ID: 2, Name: "New", Category: schema.CategoryEvent, CreatedAt: "2024-03-01T10:00:00Z"},
		{ID: 3, Name: "Middle", Category: schema.CategoryEvent, CreatedAt: "2024-02-01T10:00:00Z"},
	}}
	svc := newService(client, nil)

	items, err := svc.Items(context.Background(), "s1", Query{})
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	got := []string{items[0].Name, items[1].Name, items[2].Name}
	want := []string{"New", "Middle", "Old"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestRecentEditDoesNotReorderListing(t *testing.T) {
	client := &fakeClient{items: []upstream.Item{
		{ID: 1, Name: "Edited", Category: schema.CategoryEvent,
			CreatedAt: "2024-01-01T10:00:00Z", UpdatedAt: "2024-06-01T10:00:00Z"},
		{ID: 2, Name: "Newer", Category: schema.CategoryEvent,
			CreatedAt: "2024-03-01T10:00:00Z"},
	}}
	svc := newService(client, nil)

	items, err := svc.Items(context.Background(), "s1", Query{})
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if items[0].Name != "Newer" || items[1].Name != "Edited" {
		t.Fatalf("order = %q, %q; creation time decides, not the edit", items[0].Name, items[1].Name)
	}
}

func TestItemsOldestFirst(t *testing.T) {
	client := &fakeClient{items: []upstream.Item{
		{ID: 2, Name: "New", Category: schema.CategoryEvent, CreatedAt: "2024-03-01T10:00:00Z"},
		{ID: 1, Name: "Old", Category: schema.CategoryEvent, CreatedAt: "2024-01-01T10:00:00Z"},
	}}
	svc := newService(client, nil)

	items, err := svc.Items(context.Background(), "s1", Query{Oldest: true})
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if items[0].Name != "Old" || items[1].Name != "New" {
		t.Fatalf("oldest-first order = %q, %q", items[0].Name, items[1].Name)
	}
}

func TestItemsMultiCategoryFilter(t *testing.T) {
	client := &fakeClient{items: []upstream.Item{
		{ID: 1, Name: "Harbor Grill", Category: schema.CategoryFoodBeverage},
		{ID: 2, Name: "Harbor Festival", Category: schema.CategoryEvent},
		{ID: 3, Name: "City Museum", Category: schema.CategorySightseeing},
	}}
	svc := newService(client, nil)

	items, err := svc.Items(context.Background(), "s1", Query{
		Categories: []string{schema.CategoryEvent, schema.CategorySightseeing},
	})
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("filter matched %d items, want 2", len(items))
	}
	for _, item := range items {
		if item.Category == schema.CategoryFoodBeverage {
			t.Fatalf("unselected category leaked through: %+v", item)
		}
	}
}

func TestItemsSearchAndCategoryFilter(t *testing.T) {
	client := &fakeClient{items: []upstream.Item{
		{ID: 1, Name: "Harbor Grill", Category: schema.CategoryFoodBeverage},
		{ID: 2, Name: "Harbor Festival", Category: schema.CategoryEvent},
		{ID: 3, Name: "City Museum", Category: schema.CategorySightseeing},
	}}
	svc := newService(client, nil)

	items, err := svc.Items(context.Background(), "s1", Query{Search: "harbor"})
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("search matched %d items, want 2", len(items))
	}

	items, err = svc.Items(context.Background(), "s1", Query{Search: "harbor", Categories: []string{schema.CategoryEvent}})
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Harbor Festival" {
		t.Fatalf("combined filter gave %+v", items)
	}
}

func TestQueuedDeleteHidesItemImmediately(t *testing.T) {
	client := &fakeClient{items: []upstream.Item{
		{ID: 1, Name: "Keep", Category: schema.CategoryEvent},
		{ID: 2, Name: "Drop", Category: schema.CategoryEvent},
	}}
	svc := newService(client, nil)

	svc.QueueDelete("s1", 2)

	items, err := svc.Items(context.Background(), "s1", Query{})
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 1 || items[0].ID != 1 {
		t.Fatalf("deleted item still listed: %+v", items)
	}
	if len(client.deleted) != 0 {
		t.Fatal("delete reached the server before commit")
	}

	other, err := svc.Items(context.Background(), "s2", Query{})
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(other) != 2 {
		t.Fatalf("other session sees %d items, want 2", len(other))
	}
}

func TestItemLookup(t *testing.T) {
	client := &fakeClient{items: []upstream.Item{
		{ID: 1, Name: "Here", Category: schema.CategoryEvent},
	}}
	svc := newService(client, nil)

	item, err := svc.Item(context.Background(), "s1", 1)
	if err != nil || item.Name != "Here" {
		t.Fatalf("Item = %+v, %v", item, err)
	}

	svc.QueueDelete("s1", 1)
	if _, err := svc.Item(context.Background(), "s1", 1); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("pending deletion should hide the item, got %v", err)
	}
}

func TestQueuedChangesOverlayListing(t *testing.T) {
	client := &fakeClient{items: []upstream.Item{
		{ID: 1, Name: "Original", Category: schema.CategoryEvent},
	}}
	svc := newService(client, nil)

	svc.QueueUpdate("s1", upstream.Item{ID: 1, Name: "Renamed", Category: schema.CategoryEvent})
	svc.QueueCreate("s1", upstream.Item{Name: "Brand New", Category: schema.CategoryFAQ})

	items, err := svc.Items(context.Background(), "s1", Query{})
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	byName := make(map[string]bool)
	for _, item := range items {
		byName[item.Name] = true
	}
	if !byName["Renamed"] || !byName["Brand New"] || byName["Original"] {
		t.Fatalf("overlay wrong: %+v", items)
	}
}

func TestGroupedColumnsPerCategory(t *testing.T) {
	client := &fakeClient{items: []upstream.Item{
		{ID: 1, Name: "Concert", Category: schema.CategoryEvent},
		{ID: 2, Name: "Where is the bus stop?", Category: schema.CategoryFAQ},
	}}
	svc := newService(client, nil)

	groups, err := svc.Grouped(context.Background(), "s1", Query{})
	if err != nil {
		t.Fatalf("Grouped: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}

	cols := make(map[string][]string)
	for _, g := range groups {
		cols[g.Category] = g.Columns
	}
	for _, unwanted := range []string{"date", "time", "price", "address"} {
		if containsColumn(cols[schema.CategoryFAQ], unwanted) {
			t.Errorf("FAQ group should not show %q column", unwanted)
		}
	}
	for _, wanted := range []string{"name", "date", "time", "price"} {
		if !containsColumn(cols[schema.CategoryEvent], wanted) {
			t.Errorf("Event group missing %q column", wanted)
		}
	}
}

func TestCategoriesUnionWithCounts(t *testing.T) {
	client := &fakeClient{
		items: []upstream.Item{
			{ID: 1, Name: "A", Category: schema.CategoryEvent},
			{ID: 2, Name: "B", Category: schema.CategoryEvent},
			{ID: 3, Name: "C", Category: "Boat Tours"},
		},
		categories: []upstream.Category{{ID: 9, Name: "Boat Tours"}},
	}
	store := &fakeCategoryStore{names: []string{"Boat Tours", "Hiking Trails"}}
	svc := newService(client, store)

	cats, err := svc.Categories(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}

	byName := make(map[string]CategoryCount)
	for _, c := range cats {
		byName[c.Name] = c
	}
	if len(byName) != len(cats) {
		t.Fatal("duplicate category names in union")
	}
	if got := byName[schema.CategoryEvent]; got.Count != 2 || !got.Builtin {
		t.Errorf("Event = %+v", got)
	}
	if got := byName["Boat Tours"]; got.Count != 1 || got.Builtin {
		t.Errorf("Boat Tours = %+v", got)
	}
	if got, ok := byName["Hiking Trails"]; !ok || got.Count != 0 {
		t.Errorf("locally recorded category missing or miscounted: %+v", got)
	}
	if _, ok := byName[schema.CategoryFAQ]; !ok {
		t.Error("builtin with no items should still be listed")
	}
}

func TestCreateCategoryRecordsLocallyFirst(t *testing.T) {
	client := &fakeClient{categoryErr: errors.New("server down")}
	store := &fakeCategoryStore{}
	svc := newService(client, store)

	created, err := svc.CreateCategory(context.Background(), "Boat Tours", "harbor cruises")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if created.Name != "Boat Tours" {
		t.Fatalf("created = %+v", created)
	}
	if len(store.names) != 1 || store.names[0] != "Boat Tours" {
		t.Fatalf("local record missing: %v", store.names)
	}

	if _, err := svc.CreateCategory(context.Background(), schema.CategoryFAQ, ""); !errors.Is(err, ErrBuiltinCategory) {
		t.Fatalf("builtin create: %v", err)
	}
}

func TestDeleteCategoryRemovesBothSides(t *testing.T) {
	client := &fakeClient{categories: []upstream.Category{
		{ID: 5, Name: "Boat Tours"},
		{ID: 6, Name: schema.CategoryEvent},
	}}
	store := &fakeCategoryStore{names: []string{"Boat Tours"}}
	svc := newService(client, store)

	if err := svc.DeleteCategory(context.Background(), 5); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if len(client.deletedCategories) != 1 || client.deletedCategories[0] != 5 {
		t.Fatalf("server delete calls = %v", client.deletedCategories)
	}
	if len(store.names) != 0 {
		t.Fatalf("local record survived: %v", store.names)
	}

	if err := svc.DeleteCategory(context.Background(), 6); !errors.Is(err, ErrBuiltinCategory) {
		t.Fatalf("builtin delete: %v", err)
	}
	if err := svc.DeleteCategory(context.Background(), 99); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("unknown id: %v", err)
	}
}

func TestCommitOrderAndSuccess(t *testing.T) {
	client := &fakeClient{items: []upstream.Item{
		{ID: 1, Name: "Doomed", Category: schema.CategoryEvent},
		{ID: 2, Name: "Stale", Category: schema.CategoryEvent},
	}}
	svc := newService(client, nil)

	svc.QueueCreate("s1", upstream.Item{Name: "Fresh", Category: schema.CategoryEvent})
	svc.QueueUpdate("s1", upstream.Item{ID: 2, Name: "Refreshed", Category: schema.CategoryEvent})
	svc.QueueDelete("s1", 1)

	if err := svc.Commit(context.Background(), "s1"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if len(client.deleted) != 1 || client.deleted[0] != 1 {
		t.Errorf("deletions = %v", client.deleted)
	}
	if len(client.updated) != 1 || client.updated[0].Name != "Refreshed" {
		t.Errorf("updates = %+v", client.updated)
	}
	if len(client.created) != 1 || client.created[0].Name != "Fresh" {
		t.Errorf("creations = %+v", client.created)
	}
	if svc.Pending("s1").Total() != 0 {
		t.Error("queue not empty after successful commit")
	}
}

func TestCommitAbortsOnFirstFailure(t *testing.T) {
	boom := errors.New("upstream rejected")
	client := &fakeClient{
		items:     []upstream.Item{{ID: 1, Name: "Blocked", Category: schema.CategoryEvent}},
		deleteErr: map[int64]error{1: boom},
	}
	svc := newService(client, nil)

	svc.QueueDelete("s1", 1)
	svc.QueueCreate("s1", upstream.Item{Name: "Never Sent", Category: schema.CategoryEvent})

	err := svc.Commit(context.Background(), "s1")
	var cerr *CommitError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CommitError, got %v", err)
	}
	if cerr.Op != "deletion" || cerr.ID != 1 || !errors.Is(err, boom) {
		t.Fatalf("wrong commit error: %+v", cerr)
	}

	if len(client.created) != 0 {
		t.Fatal("creation attempted after failed deletion")
	}
	counts := svc.Pending("s1")
	if counts.Deletions != 1 || counts.Creations != 1 {
		t.Fatalf("failed and later ops must stay queued, got %+v", counts)
	}
}

func TestCommitKeepsOnlyUnflushedOps(t *testing.T) {
	boom := errors.New("validation failed")
	client := &fakeClient{
		items: seedItems(),
		updateErr: map[int64]error{
			3: boom,
		},
	}
	svc := newService(client, nil)

	svc.QueueDelete("s1", 1)
	svc.QueueUpdate("s1", upstream.Item{ID: 2, Name: "First", Category: schema.CategoryEvent})
	svc.QueueUpdate("s1", upstream.Item{ID: 3, Name: "Second", Category: schema.CategoryEvent})

	err := svc.Commit(context.Background(), "s1")
	if err == nil {
		t.Fatal("expected commit failure")
	}

	counts := svc.Pending("s1")
	if counts.Deletions != 0 {
		t.Error("flushed deletion should be gone from the queue")
	}
	if counts.Updates != 1 {
		t.Errorf("only the failed update should remain, got %+v", counts)
	}

	if err := svc.Commit(context.Background(), "s1"); err == nil {
		t.Fatal("retry should fail again while the server rejects it")
	}
	client.updateErr = nil
	if err := svc.Commit(context.Background(), "s1"); err != nil {
		t.Fatalf("retry after fix: %v", err)
	}
	if svc.Pending("s1").Total() != 0 {
		t.Error("queue not drained after successful retry")
	}
}

func seedItems() []upstream.Item {
	return []upstream.Item{
		{ID: 1, Name: "Gone", Category: schema.CategoryEvent},
		{ID: 2, Name: "First", Category: schema.CategoryEvent},
		{ID: 3, Name: "Second", Category: schema.CategoryEvent},
	}
}

func containsColumn(cols []string, name string) bool {
	for _, c := range cols {
		if c == name {
			return true
		}
	}
	return false
}
