package auth

import (
	"context"
	"testing"
	"time"

	"github.com/campuslink/api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRevocations implements RevocationStore in memory for tests
type memRevocations struct {
	cutoffs map[string]time.Time
}

func newMemRevocations() *memRevocations {
	return &memRevocations{cutoffs: make(map[string]time.Time)}
}

func (m *memRevocations) Revoke(ctx context.Context, signupID string, at time.Time) error {
	if existing, ok := m.cutoffs[signupID]; !ok || at.After(existing) {
		m.cutoffs[signupID] = at
	}
	return nil
}

func (m *memRevocations) GetCutoff(ctx context.Context, signupID string) (*time.Time, error) {
	if cutoff, ok := m.cutoffs[signupID]; ok {
		return &cutoff, nil
	}
	return nil, nil
}

const testSecret = "test-secret-32-characters-long!!"

func TestResumeTokenManager_IssueAndVerify(t *testing.T) {
	tm := NewResumeTokenManager(testSecret, 30*time.Minute, newMemRevocations())

	token, err := tm.Issue("signup-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	signupID, err := tm.Verify(context.Background(), token)
	assert.NoError(t, err)
	assert.Equal(t, "signup-123", signupID)
}

func TestResumeTokenManager_Verify_EmptyToken(t *testing.T) {
	tm := NewResumeTokenManager(testSecret, 30*time.Minute, newMemRevocations())

	_, err := tm.Verify(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrResumeTokenInvalid)
}

func TestResumeTokenManager_Verify_MalformedToken(t *testing.T) {
	tm := NewResumeTokenManager(testSecret, 30*time.Minute, newMemRevocations())

	_, err := tm.Verify(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, models.ErrResumeTokenInvalid)
}

func TestResumeTokenManager_Verify_WrongSecret(t *testing.T) {
	revocations := newMemRevocations()
	issuer := NewResumeTokenManager("other-secret-32-characters-long!", 30*time.Minute, revocations)
	verifier := NewResumeTokenManager(testSecret, 30*time.Minute, revocations)

	token, err := issuer.Issue("signup-123")
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrResumeTokenInvalid)
}

func TestResumeTokenManager_Verify_Expired(t *testing.T) {
	tm := NewResumeTokenManager(testSecret, -1*time.Minute, newMemRevocations())

	token, err := tm.Issue("signup-123")
	require.NoError(t, err)

	_, err = tm.Verify(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrResumeTokenInvalid)
}

func TestResumeTokenManager_Invalidate_KillsOutstandingTokens(t *testing.T) {
	tm := NewResumeTokenManager(testSecret, 30*time.Minute, newMemRevocations())

	base := time.Now()
	tm.now = func() time.Time { return base }

	token, err := tm.Issue("signup-123")
	require.NoError(t, err)

	tm.now = func() time.Time { return base.Add(time.Minute) }
	require.NoError(t, tm.Invalidate(context.Background(), "signup-123"))

	_, err = tm.Verify(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrResumeTokenInvalid)
}

func TestResumeTokenManager_Invalidate_ReplacementTokenStaysValid(t *testing.T) {
	tm := NewResumeTokenManager(testSecret, 30*time.Minute, newMemRevocations())

	ctx := context.Background()

	// The email-change rotation: invalidate, then mint the replacement in the
	// very same instant. The replacement must verify without any settling time
	require.NoError(t, tm.Invalidate(ctx, "signup-123"))

	replacement, err := tm.Issue("signup-123")
	require.NoError(t, err)

	signupID, err := tm.Verify(ctx, replacement)
	assert.NoError(t, err)
	assert.Equal(t, "signup-123", signupID)

	// Sub-second cutoffs must not leak through the comparison either way:
	// pin issue and invalidation mid-second and check both sides
	base := time.Now().Truncate(time.Second).Add(300 * time.Millisecond)
	tm.now = func() time.Time { return base }
	require.NoError(t, tm.Invalidate(ctx, "signup-456"))
	fresh, err := tm.Issue("signup-456")
	require.NoError(t, err)

	signupID, err = tm.Verify(ctx, fresh)
	assert.NoError(t, err)
	assert.Equal(t, "signup-456", signupID)
}

func TestResumeTokenManager_Invalidate_Idempotent(t *testing.T) {
	tm := NewResumeTokenManager(testSecret, 30*time.Minute, newMemRevocations())

	ctx := context.Background()
	assert.NoError(t, tm.Invalidate(ctx, "signup-123"))
	assert.NoError(t, tm.Invalidate(ctx, "signup-123"))
}

func TestResumeTokenManager_Invalidate_DoesNotAffectOtherSignups(t *testing.T) {
	tm := NewResumeTokenManager(testSecret, 30*time.Minute, newMemRevocations())

	other, err := tm.Issue("signup-other")
	require.NoError(t, err)

	require.NoError(t, tm.Invalidate(context.Background(), "signup-123"))

	signupID, err := tm.Verify(context.Background(), other)
	assert.NoError(t, err)
	assert.Equal(t, "signup-other", signupID)
}
