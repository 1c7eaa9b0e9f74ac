package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/vibast-solutions/ms-go-blog-auth/app/entity"
	"github.com/vibast-solutions/ms-go-blog-auth/app/repository"
)

const (
	DefaultCodeTTL = 5 * time.Minute

	codeMin = 1000
	codeMax = 9999
)

// CodeRepository is satisfied by both the MySQL and the Redis backends.
type CodeRepository interface {
	Create(ctx context.Context, code *entity.OneTimeCode) error
	FindByEmail(ctx context.Context, email string) (*entity.OneTimeCode, error)
	DeleteByEmail(ctx context.Context, email string) error
}

// OneTimeCodeStore holds at most one live recovery code per email. A code
// lives exactly ttl from creation; expiry is judged by the store's clock and
// not by the backend.
type OneTimeCodeStore struct {
	repo     CodeRepository
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
}

type OneTimeCodeStoreOption func(*OneTimeCodeStore)

func WithCodeClock(now func() time.Time) OneTimeCodeStoreOption {
	return func(s *OneTimeCodeStore) {
		if now != nil {
			s.now = now
		}
	}
}

func WithCodeGenerator(generate func() (string, error)) OneTimeCodeStoreOption {
	return func(s *OneTimeCodeStore) {
		if generate != nil {
			s.generate = generate
		}
	}
}

func NewOneTimeCodeStore(repo CodeRepository, ttl time.Duration, opts ...OneTimeCodeStoreOption) *OneTimeCodeStore {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	store := &OneTimeCodeStore{
		repo:     repo,
		ttl:      ttl,
		now:      time.Now,
		generate: generateNumericCode,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Issue creates a code for email and hands it to deliver. The code is only
// persisted once deliver succeeds; a deliver error is returned unwrapped.
func (s *OneTimeCodeStore) Issue(ctx context.Context, email string, deliver func(code string) error) (string, error) {
	existing, err := s.live(ctx, email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", ErrCodeAlreadyPending
	}

	code, err := s.generate()
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	if err = deliver(code); err != nil {
		return "", err
	}

	now := s.now()
	record := &entity.OneTimeCode{
		Email:     email,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err = s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return "", ErrCodeAlreadyPending
		}
		return "", err
	}
	return code, nil
}

func (s *OneTimeCodeStore) Verify(ctx context.Context, email, code string) error {
	existing, err := s.live(ctx, email)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrCodeExpired
	}
	if existing.Code != code {
		return ErrCodeMismatch
	}
	return nil
}

func (s *OneTimeCodeStore) Consume(ctx context.Context, email string) error {
	return s.repo.DeleteByEmail(ctx, email)
}

func (s *OneTimeCodeStore) Pending(ctx context.Context, email string) (bool, error) {
	existing, err := s.live(ctx, email)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

// live returns the stored code when it is still within its TTL. An expired
// leftover is removed so the next Create does not hit the unique key.
func (s *OneTimeCodeStore) live(ctx context.Context, email string) (*entity.OneTimeCode, error) {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	if s.now().After(existing.CreatedAt.Add(s.ttl)) {
		if err = s.repo.DeleteByEmail(ctx, email); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return existing, nil
}

func generateNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+codeMin), nil
}
