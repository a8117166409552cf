package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cropcare/internal/model"
)

func newTestService() (*Service, *MemoryStore) {
	store := NewMemoryStore(0, time.Hour)
	svc := NewService(store, NewTokens("session-test-secret", time.Hour))
	svc.cost = bcrypt.MinCost
	return svc, store
}

func TestService_LoginAcceptsAnyNonEmptyInput(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	token, user, err := svc.Login(ctx, LoginInput{Email: " Farmer@Example.com ", Password: "anything"})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "farmer@example.com", user.Email)
	assert.NotEqual(t, "anything", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), passwordKey("anything")))

	current, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "farmer@example.com", current.User.Email)
}

func TestService_LoginMissingFields(t *testing.T) {
	svc, _ := newTestService()

	_, _, err := svc.Login(context.Background(), LoginInput{Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrMissingFields)
	assert.Equal(t, "Please fill in all fields", Message(err))

	_, _, err = svc.Login(context.Background(), LoginInput{Password: "x"})
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestService_Signup(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, SignupInput{FirstName: "Ada", Email: "a@b.c", Password: "p", ConfirmPassword: "p"})
	assert.ErrorIs(t, err, ErrMissingFields)

	_, _, err = svc.Signup(ctx, SignupInput{FirstName: "Ada", LastName: "L", Email: "a@b.c", Password: "p", ConfirmPassword: "q"})
	assert.ErrorIs(t, err, ErrPasswordMismatch)
	assert.Equal(t, "Passwords do not match", Message(err))

	token, user, err := svc.Signup(ctx, SignupInput{FirstName: "Ada", LastName: "L", Email: "a@b.c", Password: "p", ConfirmPassword: "p"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.DisplayName())

	current, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "Ada", current.User.FirstName)
}

func TestService_LogoutClearsStore(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	token, _, err := svc.Login(ctx, LoginInput{Email: "a@b.c", Password: "p"})
	require.NoError(t, err)
	current, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, current)

	require.NoError(t, svc.Logout(ctx, token))

	stored, err := store.Get(ctx, current.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	current, err = svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestService_ResolveIgnoresBadTokens(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	current, err := svc.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, current)

	current, err = svc.Resolve(ctx, "not-a-jwt")
	require.NoError(t, err)
	assert.Nil(t, current)

	other := NewTokens("another-secret", time.Hour)
	forged, err := other.Issue("some-session")
	require.NoError(t, err)
	current, err = svc.Resolve(ctx, forged)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestTokens_RoundTripAndExpiry(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	token, err := tokens.Issue("abc")
	require.NoError(t, err)

	id, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	expired := NewTokens("secret", -time.Minute)
	token, err = expired.Issue("abc")
	require.NoError(t, err)
	_, err = tokens.Parse(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(0, time.Hour)
	ctx := context.Background()

	user, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, user)

	require.NoError(t, store.Set(ctx, "a", &model.User{Email: "a@b.c"}))
	user, err = store.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "a@b.c", user.Email)

	require.NoError(t, store.Clear(ctx, "a"))
	user, err = store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestMemoryStore_Expires(t *testing.T) {
	store := NewMemoryStore(0, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", &model.User{Email: "a@b.c"}))
	require.Eventually(t, func() bool {
		user, err := store.Get(ctx, "short")
		return err == nil && user == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return store.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestMemoryStore_BoundedSize(t *testing.T) {
	store := NewMemoryStore(2, time.Hour)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Set(ctx, id, &model.User{Email: id + "@b.c"}))
	}
	assert.Equal(t, 2, store.Len())
	user, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestService_LongPasswords(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	long := strings.Repeat("p", 100)

	token, user, err := svc.Login(ctx, LoginInput{Email: "a@b.c", Password: long})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), passwordKey(long)))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), passwordKey(long[:73])))

	token, _, err = svc.Signup(ctx, SignupInput{FirstName: "Ada", LastName: "L", Email: "a@b.c", Password: long, ConfirmPassword: long})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}
