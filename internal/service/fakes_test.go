package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Balorum/PhotoShare/internal/domain"
	"github.com/Balorum/PhotoShare/internal/events"
	"github.com/Balorum/PhotoShare/internal/password"
	"github.com/Balorum/PhotoShare/internal/repository"
	"github.com/Balorum/PhotoShare/internal/token"
)

// memUserRepository is an in-memory UserRepository
type memUserRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*domain.User
}

func newMemUserRepository() *memUserRepository {
	return &memUserRepository{users: make(map[string]*domain.User)}
}

func (r *memUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	if len(r.users) == 0 {
		user.Role = domain.RoleAdmin
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.users[user.Email] = &stored
	return nil
}

func (r *memUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[email]
	return ok, nil
}

func (r *memUserRepository) byID(id int64) *domain.User {
	for _, u := range r.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (r *memUserRepository) UpdateRefreshToken(ctx context.Context, userID int64, digest *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.byID(userID); u != nil {
		u.RefreshToken = digest
	}
	return nil
}

func (r *memUserRepository) SetConfirmed(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.byID(userID); u != nil {
		u.Confirmed = true
	}
	return nil
}

func (r *memUserRepository) UpdateRole(ctx context.Context, userID int64, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.byID(userID); u != nil {
		u.Role = role
	}
	return nil
}

func (r *memUserRepository) SetActive(ctx context.Context, userID int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.byID(userID); u != nil {
		u.IsActive = active
		if !active {
			u.RefreshToken = nil
		}
	}
	return nil
}

func (r *memUserRepository) Delete(ctx context.Context, userID int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.byID(userID)
	if u == nil {
		return nil, nil
	}
	delete(r.users, u.Email)
	cp := *u
	return &cp, nil
}

// put stores a user directly, bypassing signup
func (r *memUserRepository) put(u *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	u.ID = r.nextID
	cp := *u
	r.users[u.Email] = &cp
	return u
}

// memRevocationRepository is an in-memory RevocationRepository
type memRevocationRepository struct {
	mu      sync.Mutex
	entries map[string]*domain.RevokedToken
	adds    int
}

func newMemRevocationRepository() *memRevocationRepository {
	return &memRevocationRepository{entries: make(map[string]*domain.RevokedToken)}
}

func (r *memRevocationRepository) Add(ctx context.Context, entry *domain.RevokedToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adds++
	if _, ok := r.entries[entry.TokenHash]; !ok {
		r.entries[entry.TokenHash] = entry
	}
	return nil
}

func (r *memRevocationRepository) Exists(ctx context.Context, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[tokenHash]
	return ok, nil
}

// mockRevocationRepository lets tests inject backend failures
type mockRevocationRepository struct {
	mock.Mock
}

func (m *mockRevocationRepository) Add(ctx context.Context, entry *domain.RevokedToken) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockRevocationRepository) Exists(ctx context.Context, tokenHash string) (bool, error) {
	args := m.Called(ctx, tokenHash)
	return args.Bool(0), args.Error(1)
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.UserEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, evt *events.UserEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) ofType(t events.EventType) []*events.UserEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*events.UserEvent
	for _, e := range p.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

// testClock is a manually advanced clock
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fixture wires the services against in-memory dependencies
type fixture struct {
	clock     *testClock
	codec     *token.Codec
	users     *memUserRepository
	revoked   *memRevocationRepository
	store     *RevocationStore
	tokens    TokenService
	hasher    *password.Hasher
	publisher *recordingPublisher
	auth      AuthService
	admin     UserService
}

func newFixture(t *testing.T, cfg *AuthServiceConfig) *fixture {
	t.Helper()

	f := &fixture{
		clock:     newTestClock(),
		users:     newMemUserRepository(),
		revoked:   newMemRevocationRepository(),
		hasher:    password.NewHasher(bcrypt.MinCost),
		publisher: &recordingPublisher{},
	}

	codec, err := token.NewCodec("test-secret-key", "HS256", f.clock.Now)
	require.NoError(t, err)
	f.codec = codec

	f.store = NewRevocationStore(f.revoked, codec, 15*time.Minute)
	f.tokens = NewTokenService(codec, f.users, f.store, &TokenServiceConfig{
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		EmailTokenTTL:   24 * time.Hour,
	})
	f.auth = NewAuthService(f.users, f.tokens, f.hasher, f.publisher, cfg)
	f.admin = NewUserService(f.users, f.publisher)
	return f
}

// activeUser stores a confirmed, active user with the given role
func (f *fixture) activeUser(t *testing.T, email string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := f.hasher.Hash("secret-pw")
	require.NoError(t, err)
	return f.users.put(&domain.User{
		Username:     "user",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Confirmed:    true,
		IsActive:     true,
	})
}
