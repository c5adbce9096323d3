package usecase

import (
	"context"
	"time"

	"github.com/Msa-soilihi-Hamza/calanques-api/internal/core/domain"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/infra/security"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/repository"
)

// stubUserRepo keeps users in memory keyed by id.
type stubUserRepo struct {
	users  map[int64]*domain.User
	nextID int64

	createErr error
	lookupErr error
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	repo := &stubUserRepo{users: make(map[int64]*domain.User), nextID: 1}
	for _, user := range users {
		copied := *user
		repo.users[user.ID] = &copied
		if user.ID >= repo.nextID {
			repo.nextID = user.ID + 1
		}
	}
	return repo
}

func (r *stubUserRepo) Create(_ context.Context, user domain.User) (*domain.User, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return nil, repository.ErrDuplicate
		}
	}
	user.ID = r.nextID
	r.nextID++
	copied := user
	r.users[user.ID] = &copied
	return &user, nil
}

func (r *stubUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	normalized := domain.NormalizeEmail(email)
	for _, user := range r.users {
		if user.Email == normalized {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) GetByRememberTokenHash(_ context.Context, hash string) (*domain.User, error) {
	for _, user := range r.users {
		if user.RememberTokenHash != nil && *user.RememberTokenHash == hash {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) UpdateActiveStatus(_ context.Context, id int64, active bool) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsActive = active
	return nil
}

func (r *stubUserRepo) SetRememberToken(_ context.Context, id int64, tokenHash *string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.RememberTokenHash = tokenHash
	return nil
}

func (r *stubUserRepo) MarkEmailVerified(_ context.Context, id int64, verifiedAt time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	at := verifiedAt
	user.EmailVerifiedAt = &at
	return nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string, _ time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (r *stubUserRepo) CountActiveAdmins(_ context.Context) (int, error) {
	count := 0
	for _, user := range r.users {
		if user.IsAdmin() && user.IsActive {
			count++
		}
	}
	return count, nil
}

// stubTokenRepo keeps verification tokens in memory keyed by id.
type stubTokenRepo struct {
	tokens map[string]*domain.VerificationToken
}

func newStubTokenRepo() *stubTokenRepo {
	return &stubTokenRepo{tokens: make(map[string]*domain.VerificationToken)}
}

func (r *stubTokenRepo) CreateVerification(_ context.Context, token domain.VerificationToken) error {
	copied := token
	r.tokens[token.ID] = &copied
	return nil
}

func (r *stubTokenRepo) GetVerificationByHash(_ context.Context, hash string) (*domain.VerificationToken, error) {
	for _, token := range r.tokens {
		if token.TokenHash == hash {
			copied := *token
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubTokenRepo) ConsumeVerification(_ context.Context, id string) error {
	token, ok := r.tokens[id]
	if !ok || token.UsedAt != nil {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	token.UsedAt = &now
	return nil
}

// stubHasher avoids the cost of Argon2 in service-level tests. The "hash" is
// just a reversible marker.
type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (stubHasher) Verify(password, encoded string) bool {
	return encoded == "hashed:"+password
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	registered    []domain.UserRegisteredEvent
	loggedIn      []domain.UserLoggedInEvent
	verified      []domain.EmailVerifiedEvent
	statusChanged []domain.UserStatusChangedEvent
	passwords     []domain.PasswordChangedEvent
}

func (p *recordingPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.registered = append(p.registered, event)
	return nil
}

func (p *recordingPublisher) PublishUserLoggedIn(_ context.Context, event domain.UserLoggedInEvent) error {
	p.loggedIn = append(p.loggedIn, event)
	return nil
}

func (p *recordingPublisher) PublishEmailVerified(_ context.Context, event domain.EmailVerifiedEvent) error {
	p.verified = append(p.verified, event)
	return nil
}

func (p *recordingPublisher) PublishUserStatusChanged(_ context.Context, event domain.UserStatusChangedEvent) error {
	p.statusChanged = append(p.statusChanged, event)
	return nil
}

func (p *recordingPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.passwords = append(p.passwords, event)
	return nil
}

func newTestCodec() *security.TokenCodec {
	codec, err := security.NewTokenCodec(security.TokenCodecConfig{
		Secret:          "usecase-test-secret",
		Issuer:          "calanques-api",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	})
	if err != nil {
		panic(err)
	}
	return codec
}
