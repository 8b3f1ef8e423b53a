package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/arklim/anon-inbox/internal/core/domain"
	"github.com/arklim/anon-inbox/internal/core/port"
	"github.com/arklim/anon-inbox/internal/repository"
)

var errStoreDown = errors.New("connection refused")

// memoryStore backs both repositories with maps guarded by one mutex.
type memoryStore struct {
	mu       sync.Mutex
	users    map[string]domain.User
	messages map[string]domain.Message
	order    map[string]int
	next     int

	failLookup error
	failAppend error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:    make(map[string]domain.User),
		messages: make(map[string]domain.Message),
		order:    make(map[string]int),
	}
}

func (m *memoryStore) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflictLocked(user) {
		return repository.ErrDuplicate
	}
	user.Email = strings.ToLower(user.Email)
	m.users[user.ID] = user
	return nil
}

func (m *memoryStore) conflictLocked(user domain.User) bool {
	for id, existing := range m.users {
		if id == user.ID {
			continue
		}
		if existing.Username == user.Username || existing.Email == strings.ToLower(user.Email) {
			return true
		}
	}
	return false
}

func (m *memoryStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLookup != nil {
		return nil, m.failLookup
	}
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (m *memoryStore) GetByIdentifier(_ context.Context, identifier string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLookup != nil {
		return nil, m.failLookup
	}
	for _, user := range m.users {
		if user.Username == identifier || user.Email == strings.ToLower(identifier) {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) ReplaceUnverified(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[user.ID]
	if !ok || existing.IsVerified {
		return repository.ErrNotFound
	}
	if m.conflictLocked(user) {
		return repository.ErrDuplicate
	}
	user.Email = strings.ToLower(user.Email)
	user.IsVerified = false
	m.users[user.ID] = user
	return nil
}

func (m *memoryStore) UpdateVerificationCode(_ context.Context, id, codeHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok || user.IsVerified {
		return repository.ErrNotFound
	}
	user.VerifyCodeHash = codeHash
	user.VerifyCodeExpiresAt = expiresAt
	m.users[id] = user
	return nil
}

func (m *memoryStore) MarkVerified(_ context.Context, id string, verifiedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsVerified = true
	user.VerifyCodeHash = ""
	user.VerifyCodeExpiresAt = time.Time{}
	user.UpdatedAt = verifiedAt
	m.users[id] = user
	return nil
}

func (m *memoryStore) SetAcceptingMessages(_ context.Context, id string, accepting bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	user.IsAcceptingMessages = accepting
	m.users[id] = user
	return accepting, nil
}

func (m *memoryStore) UsernameTaken(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLookup != nil {
		return false, m.failLookup
	}
	for _, user := range m.users {
		if user.Username == username && user.IsVerified {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) Append(_ context.Context, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppend != nil {
		return m.failAppend
	}
	user, ok := m.users[msg.UserID]
	if !ok || !user.IsVerified || !user.IsAcceptingMessages {
		return repository.ErrNotAccepting
	}
	if _, dup := m.messages[msg.ID]; dup {
		return repository.ErrDuplicate
	}
	m.messages[msg.ID] = msg
	m.next++
	m.order[msg.ID] = m.next
	return nil
}

func (m *memoryStore) ListByUser(_ context.Context, userID string) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.UserID == userID {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return m.order[out[i].ID] > m.order[out[j].ID]
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memoryStore) DeleteOwned(_ context.Context, userID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok || msg.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.messages, messageID)
	return nil
}

func (m *memoryStore) CountSince(_ context.Context, userID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, msg := range m.messages {
		if msg.UserID == userID && !msg.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memoryStore) seedUser(user domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

func (m *memoryStore) user(id string) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func (m *memoryStore) messageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain$" + password, nil }

func (plainHasher) Verify(password, encoded string) (bool, error) {
	return encoded == "plain$"+password, nil
}

type captureNotifier struct {
	mu      sync.Mutex
	notices []port.VerificationNotice
	err     error
}

func (n *captureNotifier) SendVerificationCode(_ context.Context, notice port.VerificationNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return n.err
}

func (n *captureNotifier) lastCode() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notices) == 0 {
		return ""
	}
	return n.notices[len(n.notices)-1].Code
}

type recordingEvents struct {
	mu         sync.Mutex
	registered []domain.UserRegisteredEvent
	verified   []domain.UserVerifiedEvent
	acceptance []domain.AcceptanceChangedEvent
	received   []domain.MessageReceivedEvent
	deleted    []domain.MessageDeletedEvent
	err        error
}

func (e *recordingEvents) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registered = append(e.registered, event)
	return e.err
}

func (e *recordingEvents) PublishUserVerified(_ context.Context, event domain.UserVerifiedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.verified = append(e.verified, event)
	return e.err
}

func (e *recordingEvents) PublishAcceptanceChanged(_ context.Context, event domain.AcceptanceChangedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.acceptance = append(e.acceptance, event)
	return e.err
}

func (e *recordingEvents) PublishMessageReceived(_ context.Context, event domain.MessageReceivedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.received = append(e.received, event)
	return e.err
}

func (e *recordingEvents) PublishMessageDeleted(_ context.Context, event domain.MessageDeletedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deleted = append(e.deleted, event)
	return e.err
}

type countingMetrics struct {
	mu            sync.Mutex
	registrations map[string]int
	verifications map[string]int
	received      int
	rejected      map[string]int
	deleted       int
	toggles       int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		registrations: make(map[string]int),
		verifications: make(map[string]int),
		rejected:      make(map[string]int),
	}
}

func (m *countingMetrics) RegistrationCompleted(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registrations[outcome]++
}

func (m *countingMetrics) VerificationAttempted(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications[outcome]++
}

func (m *countingMetrics) MessageReceived() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received++
}

func (m *countingMetrics) MessageRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *countingMetrics) MessageDeleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted++
}

func (m *countingMetrics) AcceptanceChanged(bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toggles++
}

type fakeCooldown struct {
	held     map[string]time.Duration
	err      error
	released []string
}

func (c *fakeCooldown) Acquire(_ context.Context, subject string, ttl time.Duration) (bool, time.Duration, error) {
	if c.err != nil {
		return false, 0, c.err
	}
	if c.held == nil {
		c.held = make(map[string]time.Duration)
	}
	if remaining, ok := c.held[subject]; ok {
		return false, remaining, nil
	}
	c.held[subject] = ttl
	return true, 0, nil
}

func (c *fakeCooldown) Release(_ context.Context, subject string) error {
	delete(c.held, subject)
	c.released = append(c.released, subject)
	return nil
}

type fakeAttempts struct {
	counts map[string]int
	err    error
	resets []string
}

func (a *fakeAttempts) Count(_ context.Context, subject string) (int, error) {
	if a.err != nil {
		return 0, a.err
	}
	return a.counts[subject], nil
}

func (a *fakeAttempts) Increment(_ context.Context, subject string, _ time.Duration) (int, error) {
	if a.err != nil {
		return 0, a.err
	}
	if a.counts == nil {
		a.counts = make(map[string]int)
	}
	a.counts[subject]++
	return a.counts[subject], nil
}

func (a *fakeAttempts) Reset(_ context.Context, subject string) error {
	delete(a.counts, subject)
	a.resets = append(a.resets, subject)
	return nil
}

var (
	_ port.UserRepository       = (*memoryStore)(nil)
	_ port.MessageRepository    = (*memoryStore)(nil)
	_ port.PasswordHasher       = plainHasher{}
	_ port.VerificationNotifier = (*captureNotifier)(nil)
	_ port.EventPublisher       = (*recordingEvents)(nil)
	_ port.MetricsRecorder      = (*countingMetrics)(nil)
	_ port.CooldownStore        = (*fakeCooldown)(nil)
	_ port.AttemptCounter       = (*fakeAttempts)(nil)
)
