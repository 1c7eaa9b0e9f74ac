package service_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibast-solutions/ms-go-blog-auth/app/entity"
	"github.com/vibast-solutions/ms-go-blog-auth/app/repository"
	"github.com/vibast-solutions/ms-go-blog-auth/app/service"
)

// memoryCodeRepository mirrors the MySQL backend: one row per email and a
// duplicate error on a second insert.
type memoryCodeRepository struct {
	mu    sync.Mutex
	codes map[string]entity.OneTimeCode
	err   error
}

func newMemoryCodeRepository() *memoryCodeRepository {
	return &memoryCodeRepository{codes: make(map[string]entity.OneTimeCode)}
}

func (r *memoryCodeRepository) Create(_ context.Context, code *entity.OneTimeCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	if _, ok := r.codes[code.Email]; ok {
		return repository.ErrDuplicateEntry
	}
	r.codes[code.Email] = *code
	return nil
}

func (r *memoryCodeRepository) FindByEmail(_ context.Context, email string) (*entity.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.codes[email]
	if !ok {
		return nil, nil
	}
	return &code, nil
}

func (r *memoryCodeRepository) DeleteByEmail(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.codes, email)
	return nil
}

func (r *memoryCodeRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.codes)
}

func deliverOK(code string) error { return nil }

func TestOneTimeCodeStore_Issue_GeneratesFourDigits(t *testing.T) {
	store := service.NewOneTimeCodeStore(newMemoryCodeRepository(), 5*time.Minute)

	for i := 0; i < 50; i++ {
		email := "user" + strconv.Itoa(i) + "@b.com"
		code, err := store.Issue(context.Background(), email, deliverOK)
		require.NoError(t, err)

		value, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, value, 1000)
		assert.LessOrEqual(t, value, 9999)
	}
}

func TestOneTimeCodeStore_ExpiryBoundary(t *testing.T) {
	clock := &testClock{now: time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)}
	repo := newMemoryCodeRepository()
	store := service.NewOneTimeCodeStore(repo, 5*time.Minute, service.WithCodeClock(clock.Now))
	ctx := context.Background()

	code, err := store.Issue(ctx, "a@b.com", deliverOK)
	require.NoError(t, err)

	clock.Advance(299 * time.Second)
	require.NoError(t, store.Verify(ctx, "a@b.com", code))

	clock.Advance(2 * time.Second)
	assert.ErrorIs(t, store.Verify(ctx, "a@b.com", code), service.ErrCodeExpired)
	assert.Equal(t, 0, repo.count(), "expired leftover should be removed")
}

func TestOneTimeCodeStore_Verify(t *testing.T) {
	store := service.NewOneTimeCodeStore(newMemoryCodeRepository(), 5*time.Minute,
		service.WithCodeGenerator(func() (string, error) { return "4821", nil }))
	ctx := context.Background()

	assert.ErrorIs(t, store.Verify(ctx, "a@b.com", "4821"), service.ErrCodeExpired)

	_, err := store.Issue(ctx, "a@b.com", deliverOK)
	require.NoError(t, err)

	assert.ErrorIs(t, store.Verify(ctx, "a@b.com", "1234"), service.ErrCodeMismatch)
	assert.NoError(t, store.Verify(ctx, "a@b.com", "4821"))
	assert.NoError(t, store.Verify(ctx, "a@b.com", "4821"), "verify must not consume")

	require.NoError(t, store.Consume(ctx, "a@b.com"))
	assert.ErrorIs(t, store.Verify(ctx, "a@b.com", "4821"), service.ErrCodeExpired)
	require.NoError(t, store.Consume(ctx, "a@b.com"))
}

func TestOneTimeCodeStore_Issue_PendingBlocksSecondCode(t *testing.T) {
	clock := &testClock{now: time.Now()}
	repo := newMemoryCodeRepository()
	store := service.NewOneTimeCodeStore(repo, 5*time.Minute, service.WithCodeClock(clock.Now))
	ctx := context.Background()

	_, err := store.Issue(ctx, "a@b.com", deliverOK)
	require.NoError(t, err)

	delivered := false
	_, err = store.Issue(ctx, "a@b.com", func(string) error {
		delivered = true
		return nil
	})
	assert.ErrorIs(t, err, service.ErrCodeAlreadyPending)
	assert.False(t, delivered)
	assert.Equal(t, 1, repo.count())

	pending, err := store.Pending(ctx, "a@b.com")
	require.NoError(t, err)
	assert.True(t, pending)

	clock.Advance(5*time.Minute + time.Second)
	_, err = store.Issue(ctx, "a@b.com", deliverOK)
	require.NoError(t, err, "an expired code must not block a new one")
}

func TestOneTimeCodeStore_Issue_DeliveryFailureDoesNotPersist(t *testing.T) {
	repo := newMemoryCodeRepository()
	store := service.NewOneTimeCodeStore(repo, 5*time.Minute)
	sendErr := errors.New("mail server down")

	_, err := store.Issue(context.Background(), "a@b.com", func(string) error { return sendErr })
	assert.ErrorIs(t, err, sendErr)
	assert.Equal(t, 0, repo.count())
}

func TestOneTimeCodeStore_Issue_ConcurrentRequestsLeaveOneCode(t *testing.T) {
	repo := newMemoryCodeRepository()
	store := service.NewOneTimeCodeStore(repo, 5*time.Minute)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		issued  int
		pending int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Issue(context.Background(), "a@b.com", deliverOK)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				issued++
			case errors.Is(err, service.ErrCodeAlreadyPending):
				pending++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, issued)
	assert.Equal(t, 7, pending)
	assert.Equal(t, 1, repo.count())
}

func TestOneTimeCodeStore_RedisBackend(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := service.NewOneTimeCodeStore(repository.NewRedisOneTimeCodeRepository(client, "otp"), 5*time.Minute,
		service.WithCodeGenerator(func() (string, error) { return "4821", nil }))
	ctx := context.Background()

	_, err := store.Issue(ctx, "a@b.com", deliverOK)
	require.NoError(t, err)
	_, err = store.Issue(ctx, "a@b.com", deliverOK)
	assert.ErrorIs(t, err, service.ErrCodeAlreadyPending)
	assert.NoError(t, store.Verify(ctx, "a@b.com", "4821"))

	srv.FastForward(5*time.Minute + time.Second)
	assert.ErrorIs(t, store.Verify(ctx, "a@b.com", "4821"), service.ErrCodeExpired)
}
