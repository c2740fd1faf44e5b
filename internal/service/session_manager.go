package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ege-manyasli/manyasligida/internal/config"
	"github.com/ege-manyasli/manyasligida/internal/domain"
	"github.com/ege-manyasli/manyasligida/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const sessionTokenBytes = 32

// CredentialKind tags how a request claims an identity.
type CredentialKind int

const (
	// CredentialSessionToken is the opaque token handed out by CreateSession.
	CredentialSessionToken CredentialKind = iota + 1
	// CredentialExternalAssertion is a signed remember-me assertion. It is
	// only honoured when the assertion fallback is enabled, and it always
	// results in a brand new session.
	CredentialExternalAssertion
)

func (k CredentialKind) String() string {
	switch k {
	case CredentialSessionToken:
		return "session_token"
	case CredentialExternalAssertion:
		return "external_assertion"
	default:
		return "unknown"
	}
}

type Credential struct {
	Kind  CredentialKind
	Value string
	// Meta describes the client; used when a session has to be recreated.
	Meta domain.ClientMeta
}

func SessionTokenCredential(token string) Credential {
	return Credential{Kind: CredentialSessionToken, Value: token}
}

func AssertionCredential(assertion string, meta domain.ClientMeta) Credential {
	return Credential{Kind: CredentialExternalAssertion, Value: assertion, Meta: meta}
}

// SessionValidation is the outcome of a successful ValidateSession call.
// IssuedToken is set only when a new session was created from an assertion;
// the caller must hand it back to the client.
type SessionValidation struct {
	Session     *domain.Session
	Via         CredentialKind
	IssuedToken string
}

// AssertionVerifier checks remember-me assertions.
type AssertionVerifier interface {
	Verify(assertion string) (*domain.RememberClaims, error)
}

type SessionManager struct {
	sessions   repository.SessionRepository
	users      repository.UserRepository
	assertions AssertionVerifier
	ttl        time.Duration
	now        func() time.Time
	log        *logrus.Entry
}

// NewSessionManager wires the session store. assertions may be nil, and is
// ignored unless cfg.AssertionFallback is set.
func NewSessionManager(
	sessions repository.SessionRepository,
	users repository.UserRepository,
	assertions AssertionVerifier,
	cfg *config.SessionConfig,
) *SessionManager {
	if !cfg.AssertionFallback {
		assertions = nil
	}
	return &SessionManager{
		sessions:   sessions,
		users:      users,
		assertions: assertions,
		ttl:        cfg.TTL,
		now:        time.Now,
		log:        logrus.WithField("component", "session"),
	}
}

// TTL is the lifetime given to new and extended sessions.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// CreateSession inserts a fresh active session for user and returns the raw
// token. Only the token hash is persisted.
func (m *SessionManager) CreateSession(ctx context.Context, user *domain.User, meta domain.ClientMeta) (string, *domain.Session, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := m.now()
	session := &domain.Session{
		ID:             uuid.New(),
		UserID:         user.ID,
		TokenHash:      hashToken(token),
		IPAddress:      meta.IPAddress,
		UserAgent:      meta.UserAgent,
		DeviceType:     DeviceTypeFromUserAgent(meta.UserAgent),
		IsActive:       true,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(m.ttl),
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		m.log.WithError(err).WithField("user_id", user.ID).Error("failed to create session")
		return "", nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	m.log.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"session_id": session.ID,
		"device":     session.DeviceType,
	}).Info("session created")

	return token, session, nil
}

// ValidateSession reports whether cred identifies a live session. A session
// token hit bumps last activity. An assertion, when accepted, creates a new
// session and returns its token in IssuedToken.
func (m *SessionManager) ValidateSession(ctx context.Context, cred Credential) (*SessionValidation, bool) {
	switch cred.Kind {
	case CredentialSessionToken:
		session, ok := m.validateToken(ctx, cred.Value)
		if !ok {
			return nil, false
		}
		return &SessionValidation{Session: session, Via: CredentialSessionToken}, true
	case CredentialExternalAssertion:
		return m.recreateFromAssertion(ctx, cred)
	default:
		return nil, false
	}
}

func (m *SessionManager) validateToken(ctx context.Context, token string) (*domain.Session, bool) {
	if token == "" {
		return nil, false
	}

	session, err := m.sessions.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			m.log.WithError(err).Error("failed to look up session")
		}
		return nil, false
	}

	if !session.IsActive {
		return nil, false
	}

	now := m.now()
	if session.IsExpired(now) {
		m.expire(ctx, session)
		return nil, false
	}

	if err := m.sessions.Touch(ctx, session.ID, now); err != nil {
		// ErrNotFound here means a concurrent invalidation won the race.
		if !errors.Is(err, repository.ErrNotFound) {
			m.log.WithError(err).WithField("session_id", session.ID).Error("failed to record session activity")
		}
		return nil, false
	}
	session.LastActivityAt = now

	return session, true
}

func (m *SessionManager) recreateFromAssertion(ctx context.Context, cred Credential) (*SessionValidation, bool) {
	if m.assertions == nil || cred.Value == "" {
		return nil, false
	}

	claims, err := m.assertions.Verify(cred.Value)
	if err != nil {
		m.log.WithError(err).Debug("remember-me assertion rejected")
		return nil, false
	}

	user, err := m.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			m.log.WithError(err).WithField("user_id", claims.UserID).Error("failed to load user for assertion")
		}
		return nil, false
	}
	if !user.IsActive {
		return nil, false
	}

	token, session, err := m.CreateSession(ctx, user, cred.Meta)
	if err != nil {
		return nil, false
	}

	m.log.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"session_id": session.ID,
	}).Warn("session recreated from remember-me assertion")

	return &SessionValidation{Session: session, Via: CredentialExternalAssertion, IssuedToken: token}, true
}

// ExtendSession pushes the expiry of a live session to now + TTL.
func (m *SessionManager) ExtendSession(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	session, err := m.sessions.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	now := m.now()
	if !session.IsActive {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired(now) {
		m.expire(ctx, session)
		return nil, ErrSessionNotFound
	}

	expiresAt := now.Add(m.ttl)
	if err := m.sessions.Extend(ctx, session.ID, now, expiresAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		m.log.WithError(err).WithField("session_id", session.ID).Error("failed to extend session")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	session.LastActivityAt = now
	session.ExpiresAt = expiresAt
	return session, nil
}

// InvalidateSession deactivates the session behind token. Unknown and
// already inactive tokens succeed.
func (m *SessionManager) InvalidateSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	session, err := m.sessions.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !session.IsActive {
		return nil
	}

	if err := m.sessions.Deactivate(ctx, session.ID); err != nil {
		m.log.WithError(err).WithField("session_id", session.ID).Error("failed to invalidate session")
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	m.log.WithFields(logrus.Fields{"user_id": session.UserID, "session_id": session.ID}).Info("session invalidated")
	return nil
}

// ForceLogoutOtherSessions deactivates every active session of userID except
// the one behind exceptToken. An empty exceptToken deactivates all of them.
func (m *SessionManager) ForceLogoutOtherSessions(ctx context.Context, userID int64, exceptToken string) (int64, error) {
	except := ""
	if exceptToken != "" {
		except = hashToken(exceptToken)
	}

	n, err := m.sessions.DeactivateOthers(ctx, userID, except)
	if err != nil {
		m.log.WithError(err).WithField("user_id", userID).Error("failed to log out other sessions")
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if n > 0 {
		m.log.WithFields(logrus.Fields{"user_id": userID, "count": n}).Info("other sessions logged out")
	}
	return n, nil
}

// CleanupExpiredSessions deactivates every active session past its expiry.
func (m *SessionManager) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeactivateExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n, nil
}

// RunCleanup sweeps expired sessions every interval until ctx is done.
func (m *SessionManager) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.log.WithField("interval", interval).Info("session cleanup started")

	for {
		select {
		case <-ctx.Done():
			m.log.Info("session cleanup stopped")
			return
		case <-ticker.C:
			n, err := m.CleanupExpiredSessions(ctx)
			if err != nil {
				m.log.WithError(err).Error("session cleanup failed")
				continue
			}
			if n > 0 {
				m.log.WithField("count", n).Info("expired sessions deactivated")
			}
		}
	}
}

// ListActiveSessions returns the user's live sessions, newest first.
func (m *SessionManager) ListActiveSessions(ctx context.Context, userID int64) ([]*domain.Session, error) {
	sessions, err := m.sessions.ListActiveByUser(ctx, userID, m.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return sessions, nil
}

func (m *SessionManager) expire(ctx context.Context, session *domain.Session) {
	if err := m.sessions.Deactivate(ctx, session.ID); err != nil {
		m.log.WithError(err).WithField("session_id", session.ID).Warn("failed to deactivate expired session")
		return
	}
	session.IsActive = false
}

func generateSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// hashToken creates a SHA-256 hash of a token for storage
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
