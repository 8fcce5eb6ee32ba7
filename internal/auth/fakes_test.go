package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mindmate/server/internal/model"
)

type memUsers struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*model.Account
	createFn func(a model.NewAccount) error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uuid.UUID]*model.Account{}}
}

func (m *memUsers) find(email string) *model.Account {
	for _, a := range m.byID {
		if a.Email == email {
			return a
		}
	}
	return nil
}

// insertLocked stores acc; callers already hold m.mu (createFn runs under it).
func (m *memUsers) insertLocked(acc model.Account) {
	acc.ID = uuid.New()
	acc.IsActive = true
	m.byID[acc.ID] = &acc
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return model.Account{}, model.ErrAccountNotFound
	}
	return *a, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.find(email)
	if a == nil {
		return model.Account{}, model.ErrAccountNotFound
	}
	return *a, nil
}

func (m *memUsers) Create(_ context.Context, n model.NewAccount) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createFn != nil {
		if err := m.createFn(n); err != nil {
			return model.Account{}, err
		}
	}
	if m.find(n.Email) != nil {
		return model.Account{}, model.ErrDuplicateEmail
	}
	a := &model.Account{
		ID:             uuid.New(),
		Email:          n.Email,
		PasswordHash:   n.PasswordHash,
		IsVerified:     n.IsVerified,
		IsActive:       true,
		AuthProvider:   n.AuthProvider,
		IsGoogleLinked: n.IsGoogleLinked,
		FirstName:      n.FirstName,
		LastName:       n.LastName,
		CreatedAt:      time.Now(),
	}
	m.byID[a.ID] = a
	return *a, nil
}

func (m *memUsers) SetRefreshTokenHash(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return model.ErrAccountNotFound
	}
	a.RefreshTokenHash = &hash
	return nil
}

func (m *memUsers) RotateRefreshTokenHash(_ context.Context, id uuid.UUID, oldHash, newHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.RefreshTokenHash == nil || *a.RefreshTokenHash != oldHash {
		return false, nil
	}
	a.RefreshTokenHash = &newHash
	return true, nil
}

func (m *memUsers) ClearRefreshTokenHash(_ context.Context, id uuid.UUID, oldHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.RefreshTokenHash == nil || *a.RefreshTokenHash != oldHash {
		return false, nil
	}
	a.RefreshTokenHash = nil
	return true, nil
}

func (m *memUsers) SetPasswordIfUnset(_ context.Context, id uuid.UUID, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.HasPassword() {
		return false, nil
	}
	a.PasswordHash = &hash
	return true, nil
}

func (m *memUsers) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return model.ErrAccountNotFound
	}
	a.PasswordHash = &hash
	a.RefreshTokenHash = nil
	return nil
}

func (m *memUsers) LinkGoogle(_ context.Context, id uuid.UUID, first, last *string, refreshHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.IsGoogleLinked {
		return false, nil
	}
	a.IsGoogleLinked = true
	a.AuthProvider = model.ProviderGoogle
	a.IsVerified = true
	if first != nil {
		a.FirstName = first
	}
	if last != nil {
		a.LastName = last
	}
	a.RefreshTokenHash = &refreshHash
	return true, nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id uuid.UUID, patch model.AccountPatch) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return model.Account{}, model.ErrAccountNotFound
	}
	if patch.FirstName != nil {
		a.FirstName = patch.FirstName
	}
	if patch.LastName != nil {
		a.LastName = patch.LastName
	}
	return *a, nil
}

type memToken struct {
	userID    uuid.UUID
	purpose   model.TokenPurpose
	expiresAt time.Time
	used      bool
}

// memTokens mirrors the conditional-update semantics of the SQL repo.
type memTokens struct {
	mu     sync.Mutex
	users  *memUsers
	byHash map[string]*memToken
}

func newMemTokens(users *memUsers) *memTokens {
	return &memTokens{users: users, byHash: map[string]*memToken{}}
}

func (m *memTokens) Create(_ context.Context, userID uuid.UUID, purpose model.TokenPurpose, hash string, expiresAt time.Time) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byHash[hash] = &memToken{userID: userID, purpose: purpose, expiresAt: expiresAt}
	return uuid.New(), nil
}

func (m *memTokens) consume(hash string, purpose model.TokenPurpose, now time.Time) (uuid.UUID, error) {
	t, ok := m.byHash[hash]
	if !ok || t.purpose != purpose {
		return uuid.Nil, model.ErrTokenNotFound
	}
	if !now.Before(t.expiresAt) {
		return uuid.Nil, model.ErrTokenExpired
	}
	if t.used {
		return uuid.Nil, model.ErrTokenAlreadyUsed
	}
	t.used = true
	return t.userID, nil
}

func (m *memTokens) ConsumeEmailVerification(_ context.Context, hash string, now time.Time) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, err := m.consume(hash, model.PurposeEmailVerification, now)
	if err != nil {
		return uuid.Nil, err
	}
	m.users.mu.Lock()
	m.users.byID[id].IsVerified = true
	m.users.mu.Unlock()
	return id, nil
}

func (m *memTokens) ConsumePasswordReset(_ context.Context, hash string, now time.Time, passwordHash string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, err := m.consume(hash, model.PurposePasswordReset, now)
	if err != nil {
		return uuid.Nil, err
	}
	m.users.mu.Lock()
	a := m.users.byID[id]
	a.PasswordHash = &passwordHash
	a.RefreshTokenHash = nil
	m.users.mu.Unlock()
	return id, nil
}

type sentMail struct {
	kind  string
	email string
	token string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *recordingNotifier) SendVerification(_ context.Context, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{kind: "verify", email: email, token: token})
	return n.err
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{kind: "reset", email: email, token: token})
	return n.err
}

func (n *recordingNotifier) last(kind string) (sentMail, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].kind == kind {
			return n.sent[i], true
		}
	}
	return sentMail{}, false
}

type stubGoogle struct {
	ExchangeFn func(ctx context.Context, code string) (string, error)
	ProfileFn  func(ctx context.Context, token string) (FederatedProfile, error)
}

func (g *stubGoogle) AuthCodeURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (g *stubGoogle) Exchange(ctx context.Context, code string) (string, error) {
	return g.ExchangeFn(ctx, code)
}

func (g *stubGoogle) Profile(ctx context.Context, token string) (FederatedProfile, error) {
	return g.ProfileFn(ctx, token)
}
