package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ege-manyasli/manyasligida/internal/domain"
	"github.com/ege-manyasli/manyasligida/internal/repository"
	"github.com/ege-manyasli/manyasligida/pkg/cartstore"
	"github.com/google/uuid"
)

var errStoreDown = errors.New("connection refused")

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User

	failUpdatePassword bool
	failConfirm        bool
	passwordWrites     int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*domain.User{}}
}

func (r *fakeUserRepo) put(u *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	u.ID = r.nextID
	cp := *u
	r.users[u.ID] = &cp
	return u
}

func (r *fakeUserRepo) stored(id int64) domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.users[id]
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			r.mu.Unlock()
			return repository.ErrConflict
		}
	}
	r.mu.Unlock()
	r.put(u)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, addr string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, addr) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetActiveByEmail(ctx context.Context, addr string) (*domain.User, error) {
	u, err := r.GetByEmail(ctx, addr)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id int64, encoded string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdatePassword {
		return errStoreDown
	}
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = encoded
	r.passwordWrites++
	return nil
}

func (r *fakeUserRepo) ConfirmEmail(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failConfirm {
		return errStoreDown
	}
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.EmailConfirmed = true
	return nil
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.Session
	failAll  bool
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[uuid.UUID]*domain.Session{}}
}

func (r *fakeSessionRepo) byUser(userID int64) []domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Session
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out
}

func (r *fakeSessionRepo) Create(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errStoreDown
	}
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, errStoreDown
	}
	for _, s := range r.sessions {
		if s.TokenHash == tokenHash {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSessionRepo) ListActiveByUser(_ context.Context, userID int64, now time.Time) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsValid(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) activeRow(id uuid.UUID) (*domain.Session, error) {
	s, ok := r.sessions[id]
	if !ok || !s.IsActive {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (r *fakeSessionRepo) Touch(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.activeRow(id)
	if err != nil {
		return err
	}
	s.LastActivityAt = at
	return nil
}

func (r *fakeSessionRepo) Extend(_ context.Context, id uuid.UUID, at, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.activeRow(id)
	if err != nil {
		return err
	}
	s.LastActivityAt = at
	s.ExpiresAt = expiresAt
	return nil
}

func (r *fakeSessionRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.IsActive = false
	}
	return nil
}

func (r *fakeSessionRepo) DeactivateOthers(_ context.Context, userID int64, exceptTokenHash string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return 0, errStoreDown
	}
	var n int64
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive && s.TokenHash != exceptTokenHash {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *fakeSessionRepo) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sessions {
		if s.IsActive && !now.Before(s.ExpiresAt) {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

// fakeCodeRepo mirrors the partial unique index: one unused row per email.
type fakeCodeRepo struct {
	mu     sync.Mutex
	nextID int64
	codes  []*domain.VerificationCode
}

func (r *fakeCodeRepo) Upsert(_ context.Context, c *domain.VerificationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.codes {
		if existing.Email == c.Email && !existing.IsUsed {
			existing.Code = c.Code
			existing.CreatedAt = c.CreatedAt
			existing.ExpiresAt = c.ExpiresAt
			c.ID = existing.ID
			return nil
		}
	}
	r.nextID++
	c.ID = r.nextID
	cp := *c
	r.codes = append(r.codes, &cp)
	return nil
}

func (r *fakeCodeRepo) GetLatestUnused(_ context.Context, addr string) (*domain.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.codes) - 1; i >= 0; i-- {
		if c := r.codes[i]; c.Email == addr && !c.IsUsed {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeCodeRepo) MarkUsed(_ context.Context, id int64, code string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.ID == id && c.Code == code && !c.IsUsed && now.Before(c.ExpiresAt) {
			c.IsUsed = true
			return true, nil
		}
	}
	return false, nil
}

type sentMail struct {
	kind string
	to   string
	code string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) record(mail sentMail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail)
	return m.err
}

func (m *fakeMailer) lastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == "code" {
			return m.sent[i].code
		}
	}
	return ""
}

func (m *fakeMailer) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, mail := range m.sent {
		if mail.kind == kind {
			n++
		}
	}
	return n
}

func (m *fakeMailer) SendVerificationCode(_ context.Context, to, _, code string, _ time.Time) error {
	return m.record(sentMail{kind: "code", to: to, code: code})
}

func (m *fakeMailer) SendWelcomeEmail(_ context.Context, to, _ string) error {
	return m.record(sentMail{kind: "welcome", to: to})
}

func (m *fakeMailer) SendPasswordChangedEmail(_ context.Context, to, _ string) error {
	return m.record(sentMail{kind: "password_changed", to: to})
}

type memCartStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	fail  bool
}

func newMemCartStore() *memCartStore {
	return &memCartStore{blobs: map[string][]byte{}}
}

func (s *memCartStore) Load(_ context.Context, visitor string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errStoreDown
	}
	blob, ok := s.blobs[visitor]
	if !ok {
		return nil, cartstore.ErrEmpty
	}
	return append([]byte(nil), blob...), nil
}

func (s *memCartStore) Update(_ context.Context, visitor string, fn func([]byte) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStoreDown
	}
	var current []byte
	if blob, ok := s.blobs[visitor]; ok {
		current = append([]byte(nil), blob...)
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if next == nil {
		delete(s.blobs, visitor)
		return nil
	}
	s.blobs[visitor] = append([]byte(nil), next...)
	return nil
}

func (s *memCartStore) Delete(_ context.Context, visitor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStoreDown
	}
	delete(s.blobs, visitor)
	return nil
}

type fakeAssertions struct {
	claims *domain.RememberClaims
	err    error
}

func (f fakeAssertions) Verify(string) (*domain.RememberClaims, error) {
	return f.claims, f.err
}
