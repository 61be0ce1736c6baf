package listing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"kbadmin/internal/pending"
	"kbadmin/internal/schema"
	"kbadmin/internal/upstream"
)

var (
	// ErrItemNotFound signals a lookup for an id the listing does not have.
	ErrItemNotFound = errors.New("item not found")
	// ErrBuiltinCategory rejects mutations of the fixed category set.
	ErrBuiltinCategory = errors.New("built-in categories cannot be changed")
	// ErrCategoryNotFound signals a category id unknown to the server.
	ErrCategoryNotFound = errors.New("category not found")
)

// CategoryStore is the local record of custom categories. It is authoritative
// for whether a custom category exists; the server owns category ids.
type CategoryStore interface {
	ListCustomCategories(ctx context.Context) ([]string, error)
	RecordCategory(ctx context.Context, name string) error
	ForgetCategory(ctx context.Context, name string) error
}

// Query narrows the listing view. An empty Categories slice means no
// category filter; Oldest flips the default newest-first order.
type Query struct {
	Search     string
	Categories []string
	Oldest     bool
}

// Group is one category section of a grouped listing, with the column set
// that makes sense for that category.
type Group struct {
	Category string          `json:"category"`
	Columns  []string        `json:"columns"`
	Items    []upstream.Item `json:"items"`
}

// CategoryCount pairs a known category with the number of listed items in it.
type CategoryCount struct {
	Name    string `json:"name"`
	Count   int    `json:"count"`
	Builtin bool   `json:"builtin"`
}

// CommitError reports the first operation that failed during a commit. The
// failing operation and everything after it stay queued.
type CommitError struct {
	Op   string
	ID   int64
	Name string
	Err  error
}

func (e *CommitError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("commit %s %q: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("commit %s item %d: %v", e.Op, e.ID, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// Service coordinates the listing view over the remote knowledge base and the
// per-session pending queues.
type Service interface {
	Items(ctx context.Context, session string, q Query) ([]upstream.Item, error)
	Item(ctx context.Context, session string, id int64) (upstream.Item, error)
	Grouped(ctx context.Context, session string, q Query) ([]Group, error)
	Categories(ctx context.Context, session string) ([]CategoryCount, error)
	CreateCategory(ctx context.Context, name, description string) (upstream.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	QueueCreate(session string, item upstream.Item)
	QueueUpdate(session string, item upstream.Item)
	QueueDelete(session string, id int64)
	DiscardCreate(session string, index int) error
	DiscardUpdate(session string, id int64)
	DiscardDelete(session string, id int64)
	DiscardAll(session string)
	Pending(session string) pending.Counts
	Commit(ctx context.Context, session string) error
	EndSession(session string)
}

type service struct {
	client upstream.Client
	store  CategoryStore
	queues *pending.Registry
}

// New constructs the listing Service.
func New(client upstream.Client, store CategoryStore, queues *pending.Registry) Service {
	return &service{
		client: client,
		store:  store,
		queues: queues,
	}
}

// Items returns the effective item set for a session: the remote list with
// the session's pending changes folded in, filtered and sorted newest first
// unless the query asks for oldest first.
func (s *service) Items(ctx context.Context, session string, q Query) ([]upstream.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, err := s.effective(ctx, session)
	if err != nil {
		return nil, err
	}
	items = filter(items, q)
	sortByTime(items, q.Oldest)
	return items, nil
}

// Item looks up a single item in the session's effective listing.
func (s *service) Item(ctx context.Context, session string, id int64) (upstream.Item, error) {
	if err := ctx.Err(); err != nil {
		return upstream.Item{}, err
	}

	items, err := s.effective(ctx, session)
	if err != nil {
		return upstream.Item{}, err
	}
	for _, item := range items {
		if item.ID == id {
			return item, nil
		}
	}
	return upstream.Item{}, ErrItemNotFound
}

// Grouped returns the listing partitioned by category, each group carrying
// the columns relevant for it.
func (s *service) Grouped(ctx context.Context, session string, q Query) ([]Group, error) {
	items, err := s.Items(ctx, session, q)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string][]upstream.Item)
	var order []string
	for _, item := range items {
		name := item.Category
		if name == "" {
			name = "Uncategorized"
		}
		if _, seen := byCategory[name]; !seen {
			order = append(order, name)
		}
		byCategory[name] = append(byCategory[name], item)
	}
	sort.Strings(order)

	groups := make([]Group, 0, len(order))
	for _, name := range order {
		groups = append(groups, Group{
			Category: name,
			Columns:  columnsFor(name),
			Items:    byCategory[name],
		})
	}
	return groups, nil
}

// Categories returns the union of built-in categories, categories known to
// the server, and locally recorded custom ones, with item counts taken over
// the session's effective listing.
func (s *service) Categories(ctx context.Context, session string) ([]CategoryCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, err := s.effective(ctx, session)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, item := range items {
		counts[item.Category]++
	}

	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}
	for _, name := range schema.BuiltinCategories {
		add(name)
	}
	remote, err := s.client.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	for _, cat := range remote {
		add(cat.Name)
	}
	local, err := s.store.ListCustomCategories(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range local {
		add(name)
	}

	out := make([]CategoryCount, 0, len(names))
	for _, name := range names {
		out = append(out, CategoryCount{
			Name:    name,
			Count:   counts[name],
			Builtin: schema.IsBuiltin(name),
		})
	}
	return out, nil
}

// CreateCategory records a custom category locally first, then tries to
// create it on the server. The local record is what makes the category
// exist; a server failure only costs it a server id.
func (s *service) CreateCategory(ctx context.Context, name, description string) (upstream.Category, error) {
	if err := ctx.Err(); err != nil {
		return upstream.Category{}, err
	}
	if schema.IsBuiltin(name) {
		return upstream.Category{}, ErrBuiltinCategory
	}

	if err := s.store.RecordCategory(ctx, name); err != nil {
		return upstream.Category{}, err
	}
	created, err := s.client.CreateCategory(ctx, upstream.CategoryInput{
		Name:        name,
		Description: description,
	})
	if err != nil {
		log.Warn().Err(err).Str("category", name).Msg("Category kept local only, server create failed")
		return upstream.Category{Name: name, Description: description}, nil
	}
	return created, nil
}

// DeleteCategory removes a custom category from the server and forgets the
// local record. Built-ins are refused.
func (s *service) DeleteCategory(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	categories, err := s.client.ListCategories(ctx)
	if err != nil {
		return err
	}
	var name string
	for _, cat := range categories {
		if cat.ID == id {
			name = cat.Name
			break
		}
	}
	if name == "" {
		return ErrCategoryNotFound
	}
	if schema.IsBuiltin(name) {
		return ErrBuiltinCategory
	}

	if err := s.client.DeleteCategory(ctx, id); err != nil {
		return err
	}
	return s.store.ForgetCategory(ctx, name)
}

func (s *service) QueueCreate(session string, item upstream.Item) {
	s.queues.Queue(session).AddCreation(item)
}

func (s *service) QueueUpdate(session string, item upstream.Item) {
	s.queues.Queue(session).AddUpdate(item)
}

// QueueDelete removes the item from the session's view immediately; the
// server is only told on commit.
func (s *service) QueueDelete(session string, id int64) {
	s.queues.Queue(session).AddDeletion(id)
}

func (s *service) DiscardCreate(session string, index int) error {
	return s.queues.Queue(session).RemoveCreation(index)
}

func (s *service) DiscardUpdate(session string, id int64) {
	s.queues.Queue(session).RemoveUpdate(id)
}

func (s *service) DiscardDelete(session string, id int64) {
	s.queues.Queue(session).RemoveDeletion(id)
}

func (s *service) DiscardAll(session string) {
	s.queues.Queue(session).Clear()
}

func (s *service) Pending(session string) pending.Counts {
	return s.queues.Queue(session).PendingCounts()
}

// Commit flushes the session's queue to the server: deletions first, then
// updates, then creations, each kind in enqueue order. The first failure
// aborts the run; operations that already succeeded are removed from the
// queue, the failing one and everything after it remain for a retry.
func (s *service) Commit(ctx context.Context, session string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q := s.queues.Queue(session)
	creations, updates, deletions := q.Snapshot()

	for _, id := range deletions {
		if err := s.client.DeleteItem(ctx, id); err != nil {
			return &CommitError{Op: "deletion", ID: id, Err: err}
		}
		q.RemoveDeletion(id)
	}
	for _, item := range updates {
		if _, err := s.client.UpdateItem(ctx, item.ID, item); err != nil {
			return &CommitError{Op: "update", ID: item.ID, Name: item.Name, Err: err}
		}
		q.RemoveUpdate(item.ID)
	}
	for range creations {
		item := firstCreation(q)
		if _, err := s.client.CreateItem(ctx, item); err != nil {
			return &CommitError{Op: "creation", Name: item.Name, Err: err}
		}
		q.RemoveCreation(0)
	}
	return nil
}

// EndSession drops the session's queue.
func (s *service) EndSession(session string) {
	s.queues.Release(session)
}

// effective folds the session's pending changes into the remote list:
// deletions are hidden, updates overlaid, creations appended.
func (s *service) effective(ctx context.Context, session string) ([]upstream.Item, error) {
	items, err := s.client.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	creations, updates, deletions := s.queues.Queue(session).Snapshot()

	deleted := make(map[int64]bool, len(deletions))
	for _, id := range deletions {
		deleted[id] = true
	}
	updated := make(map[int64]upstream.Item, len(updates))
	for _, item := range updates {
		updated[item.ID] = item
	}

	out := make([]upstream.Item, 0, len(items)+len(creations))
	for _, item := range items {
		if deleted[item.ID] {
			continue
		}
		if queued, ok := updated[item.ID]; ok {
			item = queued
		}
		out = append(out, item)
	}
	out = append(out, creations...)
	return out, nil
}

func firstCreation(q *pending.Queue) upstream.Item {
	creations, _, _ := q.Snapshot()
	if len(creations) == 0 {
		return upstream.Item{}
	}
	return creations[0]
}

func filter(items []upstream.Item, q Query) []upstream.Item {
	if q.Search == "" && len(q.Categories) == 0 {
		return items
	}
	wanted := make(map[string]bool, len(q.Categories))
	for _, name := range q.Categories {
		wanted[name] = true
	}
	needle := strings.ToLower(q.Search)
	out := items[:0:0]
	for _, item := range items {
		if len(wanted) > 0 && !wanted[item.Category] {
			continue
		}
		if needle != "" && !matches(item, needle) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matches(item upstream.Item, needle string) bool {
	for _, field := range []string{item.Name, item.Address, item.Description, item.Category} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// sortByTime orders by creation time, falling back to id, newest first
// unless oldest is set. An item's update time never moves it; the listing
// orders by when things were created. Pending creations carry no timestamp
// and keep their enqueue order at the end.
func sortByTime(items []upstream.Item, oldest bool) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, iok := itemTime(items[i])
		tj, jok := itemTime(items[j])
		switch {
		case iok && jok:
			if !ti.Equal(tj) {
				if oldest {
					return ti.Before(tj)
				}
				return ti.After(tj)
			}
		case iok:
			return true
		case jok:
			return false
		}
		if oldest {
			return items[i].ID < items[j].ID
		}
		return items[i].ID > items[j].ID
	})
}

func itemTime(item upstream.Item) (time.Time, bool) {
	if item.CreatedAt == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, item.CreatedAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// columnsFor derives a category's listing columns from its field template.
// FAQ entries, for example, carry no schedule or price columns.
func columnsFor(category string) []string {
	vis := schema.TemplateFor(category)
	cols := []string{"name"}
	if vis.Date {
		cols = append(cols, "date")
	}
	if vis.Time {
		cols = append(cols, "time")
	}
	if vis.Address {
		cols = append(cols, "address")
	}
	if vis.Tickets || vis.PriceRange {
		cols = append(cols, "price")
	}
	if vis.Description {
		cols = append(cols, "description")
	}
	return cols
}
