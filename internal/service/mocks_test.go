package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tmarlen/quillpost/internal/domain"
	"github.com/tmarlen/quillpost/internal/repository"
)

// =============================================================================
// Mock user repository
// =============================================================================

type mockUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*domain.User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*domain.User), nextID: 1}
}

func (m *mockUserRepo) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return domain.ErrUsernameTaken
		}
	}
	user.ID = m.nextID
	m.nextID++
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) AdminExists(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Role == domain.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) DeleteAdmins(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, u := range m.users {
		if u.Role == domain.RoleAdmin {
			delete(m.users, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockUserRepo) SetBlocked(_ context.Context, id int64, blocked bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user.Blocked = blocked
	user.UpdatedAt = time.Now().UTC()
	copied := *user
	return &copied, nil
}

func (m *mockUserRepo) List(_ context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		copied := *u
		items = append(items, &copied)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return &repository.ListResult[domain.User]{
		Items:  items,
		Total:  int64(len(items)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// =============================================================================
// Mock post repository
// =============================================================================

type mockPostRepo struct {
	mu    sync.Mutex
	posts map[uuid.UUID]*domain.Post
}

func newMockPostRepo() *mockPostRepo {
	return &mockPostRepo{posts: make(map[uuid.UUID]*domain.Post)}
}

func (m *mockPostRepo) Create(_ context.Context, post *domain.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *post
	m.posts[post.ID] = &copied
	return nil
}

func (m *mockPostRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *post
	return &copied, nil
}

func (m *mockPostRepo) all() []*domain.Post {
	items := make([]*domain.Post, 0, len(m.posts))
	for _, p := range m.posts {
		copied := *p
		items = append(items, &copied)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items
}

func (m *mockPostRepo) List(_ context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Post], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.all()
	return &repository.ListResult[domain.Post]{
		Items:  items,
		Total:  int64(len(items)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *mockPostRepo) ListByAuthor(_ context.Context, authorID int64) ([]*domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*domain.Post
	for _, p := range m.all() {
		if p.AuthorID == authorID {
			items = append(items, p)
		}
	}
	return items, nil
}

func (m *mockPostRepo) ListAll(_ context.Context) ([]*domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.all(), nil
}

func (m *mockPostRepo) ListRestricted(_ context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Post], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*domain.Post
	for _, p := range m.all() {
		if p.Restricted {
			items = append(items, p)
		}
	}
	return &repository.ListResult[domain.Post]{
		Items:  items,
		Total:  int64(len(items)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *mockPostRepo) CountRestricted(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, p := range m.posts {
		if p.Restricted {
			count++
		}
	}
	return count, nil
}

func (m *mockPostRepo) UpdateOwned(_ context.Context, id uuid.UUID, authorID int64, title, content string, restricted bool) (*domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok || post.AuthorID != authorID {
		return nil, repository.ErrNotFound
	}
	post.Title = title
	post.Content = content
	post.Restricted = restricted
	post.UpdatedAt = time.Now().UTC()
	copied := *post
	return &copied, nil
}

func (m *mockPostRepo) SetRestricted(_ context.Context, id uuid.UUID, restricted bool) (*domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	post.Restricted = restricted
	post.UpdatedAt = time.Now().UTC()
	copied := *post
	return &copied, nil
}

func (m *mockPostRepo) SetRestrictedOwned(_ context.Context, id uuid.UUID, authorID int64, restricted bool) (*domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok || post.AuthorID != authorID {
		return nil, repository.ErrNotFound
	}
	post.Restricted = restricted
	post.UpdatedAt = time.Now().UTC()
	copied := *post
	return &copied, nil
}

func (m *mockPostRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *mockPostRepo) DeleteOwned(_ context.Context, id uuid.UUID, authorID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok || post.AuthorID != authorID {
		return repository.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

// =============================================================================
// Fake cache, locker and image store
// =============================================================================

type fakeCache struct {
	mu     sync.Mutex
	values map[string][]byte
	sets   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[key]
	if !ok {
		return nil, repository.ErrCacheMiss
	}
	return value, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	c.sets++
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	acquires int
	releases int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	l.acquires++
	return true, nil
}

func (l *fakeLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	for attempt := 0; ; attempt++ {
		ok, err := l.Acquire(ctx, key, ttl)
		if err != nil || ok {
			return ok, err
		}
		if attempt >= maxRetries {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
}

func (l *fakeLocker) Release(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held[key] {
		return false, nil
	}
	delete(l.held, key)
	l.releases++
	return true, nil
}

type fakeImageStore struct {
	mu      sync.Mutex
	deleted []string

	deleteErr error
}

func (s *fakeImageStore) Store(_ context.Context, _ io.Reader, _ string) (string, error) {
	return "http://img.test/fake.png", nil
}

func (s *fakeImageStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, url)
	return nil
}
