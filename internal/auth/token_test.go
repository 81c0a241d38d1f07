package auth_test

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
)

const testSecret = "test-shared-secret"

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTokenManager(t *testing.T, clock *fakeClock, opts ...auth.TokenOption) *auth.TokenManager {
	t.Helper()
	opts = append(opts, auth.WithClock(clock.Now))
	tm, err := auth.NewTokenManager(testSecret, time.Hour, opts...)
	require.NoError(t, err)
	return tm
}

func TestNewTokenManager(t *testing.T) {
	_, err := auth.NewTokenManager("", time.Hour)
	assert.Error(t, err)

	tm, err := auth.NewTokenManager(testSecret, 0)
	require.NoError(t, err)
	assert.Equal(t, 60*time.Minute, tm.TTL())
}

func TestIssueAndVerify(t *testing.T) {
	clock := newFakeClock()
	tm := newTokenManager(t, clock)

	tests := []struct {
		subject string
		role    domain.Role
	}{
		{subject: "a@x.com", role: domain.RoleStudent},
		{subject: "root@example.com", role: domain.RoleAdmin},
		{subject: "teacher@example.com", role: domain.Role("teacher")},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			token, exp, err := tm.GenerateToken(tt.subject, tt.role)
			require.NoError(t, err)
			assert.WithinDuration(t, clock.Now().Add(time.Hour), exp, 0)
			assert.Len(t, strings.Split(token, "."), 3)

			claims, err := tm.Verify(token)
			require.NoError(t, err)
			assert.Equal(t, tt.subject, claims.Subject)
			assert.Equal(t, tt.role, claims.Role)
			assert.WithinDuration(t, exp, claims.ExpiresAt.Time, 0)
			assert.NotEmpty(t, claims.ID)
		})
	}
}

func TestIssueRejectsEmptySubject(t *testing.T) {
	tm := newTokenManager(t, newFakeClock())

	_, _, err := tm.Issue("", domain.RoleStudent, time.Hour)
	assert.ErrorIs(t, err, auth.ErrMissingSubject)
}

func TestIssueDefaultsRole(t *testing.T) {
	tm := newTokenManager(t, newFakeClock())

	token, _, err := tm.Issue("a@x.com", "", time.Hour)
	require.NoError(t, err)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStudent, claims.Role)
}

func TestVerifyExpiry(t *testing.T) {
	for _, ttl := range []time.Duration{0, -time.Minute} {
		t.Run(ttl.String(), func(t *testing.T) {
			tm := newTokenManager(t, newFakeClock())

			token, _, err := tm.Issue("a@x.com", domain.RoleStudent, ttl)
			require.NoError(t, err)

			_, err = tm.Verify(token)
			assert.ErrorIs(t, err, auth.ErrExpired)
		})
	}

	t.Run("after ttl elapses", func(t *testing.T) {
		clock := newFakeClock()
		tm := newTokenManager(t, clock)

		token, _, err := tm.Issue("a@x.com", domain.RoleStudent, time.Minute)
		require.NoError(t, err)

		clock.Advance(59 * time.Second)
		_, err = tm.Verify(token)
		require.NoError(t, err)

		clock.Advance(2 * time.Second)
		_, err = tm.Verify(token)
		assert.ErrorIs(t, err, auth.ErrExpired)
	})
}

func TestVerifyTamperedSignature(t *testing.T) {
	tm := newTokenManager(t, newFakeClock())

	token, _, err := tm.GenerateToken("a@x.com", domain.RoleStudent)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	parts[2] = string(sig)

	_, err = tm.Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, auth.ErrBadSignature)
}

func TestVerifyEditedSignatureCharacter(t *testing.T) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

	tm := newTokenManager(t, newFakeClock())
	token, _, err := tm.GenerateToken("a@x.com", domain.RoleStudent)
	require.NoError(t, err)

	cut := strings.LastIndex(token, ".") + 1
	head, sig := token[:cut], token[cut:]
	last := len(sig) - 1

	t.Run("last character", func(t *testing.T) {
		for _, r := range alphabet + "*=" {
			if byte(r) == sig[last] {
				continue
			}
			edited := head + sig[:last] + string(r)
			_, err := tm.Verify(edited)
			assert.ErrorIs(t, err, auth.ErrBadSignature, string(r))
		}
	})

	t.Run("non base64 character", func(t *testing.T) {
		_, err := tm.Verify(head + "*" + sig[1:])
		assert.ErrorIs(t, err, auth.ErrBadSignature)
	})

	t.Run("empty signature", func(t *testing.T) {
		_, err := tm.Verify(head)
		assert.ErrorIs(t, err, auth.ErrBadSignature)
	})
}

func TestIssueTruncatesToSeconds(t *testing.T) {
	clock := newFakeClock()
	clock.Advance(750 * time.Millisecond)
	tm := newTokenManager(t, clock)

	_, exp, err := tm.Issue("a@x.com", domain.RoleStudent, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, clock.Now().Add(time.Hour).Truncate(time.Second), exp, 0)
}

func TestVerifyTamperedPayload(t *testing.T) {
	tm := newTokenManager(t, newFakeClock())

	student, _, err := tm.GenerateToken("a@x.com", domain.RoleStudent)
	require.NoError(t, err)
	admin, _, err := tm.GenerateToken("a@x.com", domain.RoleAdmin)
	require.NoError(t, err)

	// admin payload with the student signature
	s := strings.Split(student, ".")
	a := strings.Split(admin, ".")
	forged := strings.Join([]string{s[0], a[1], s[2]}, ".")

	_, err = tm.Verify(forged)
	assert.ErrorIs(t, err, auth.ErrBadSignature)
}

func TestVerifyDifferentSecret(t *testing.T) {
	clock := newFakeClock()
	other, err := auth.NewTokenManager("some-other-secret", time.Hour, auth.WithClock(clock.Now))
	require.NoError(t, err)

	token, _, err := other.GenerateToken("a@x.com", domain.RoleAdmin)
	require.NoError(t, err)

	_, err = newTokenManager(t, clock).Verify(token)
	assert.ErrorIs(t, err, auth.ErrBadSignature)
}

func TestVerifySharedSecretAcrossInstances(t *testing.T) {
	clock := newFakeClock()
	issuer := newTokenManager(t, clock)
	verifier := newTokenManager(t, clock)

	token, _, err := issuer.GenerateToken("a@x.com", domain.RoleStudent)
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Subject)
}

func TestVerifyAlgorithmConfusion(t *testing.T) {
	clock := newFakeClock()
	tm := newTokenManager(t, clock)

	claims := jwt.MapClaims{
		"sub":  "a@x.com",
		"role": "admin",
		"exp":  clock.Now().Add(time.Hour).Unix(),
	}

	t.Run("none algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tm.Verify(token)
		assert.ErrorIs(t, err, auth.ErrBadSignature)
	})

	t.Run("other hmac algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = tm.Verify(token)
		assert.ErrorIs(t, err, auth.ErrBadSignature)
	})
}

func TestVerifyMissingSubject(t *testing.T) {
	clock := newFakeClock()
	tm := newTokenManager(t, clock)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "student",
		"exp":  clock.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, auth.ErrMissingSubject)
}

func TestVerifyMissingRoleDefaultsToStudent(t *testing.T) {
	clock := newFakeClock()
	tm := newTokenManager(t, clock)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "a@x.com",
		"exp": clock.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStudent, claims.Role)
}

func TestVerifyMissingExpiry(t *testing.T) {
	tm := newTokenManager(t, newFakeClock())

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "a@x.com",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, auth.ErrMalformed)
}

func TestVerifyMalformed(t *testing.T) {
	tm := newTokenManager(t, newFakeClock())

	for _, token := range []string{
		"",
		"not-a-token",
		"a.b",
		"a.b.c.d",
		"!!!.@@@.###",
		"eyJhbGciOiJIUzI1NiJ9.bm90LWpzb24.c2ln",
	} {
		_, err := tm.Verify(token)
		assert.ErrorIs(t, err, auth.ErrMalformed, token)
	}
}

func TestIssuerEnforcement(t *testing.T) {
	clock := newFakeClock()
	courses := newTokenManager(t, clock, auth.WithIssuer("courses"))
	authSvc := newTokenManager(t, clock, auth.WithIssuer("auth-service"))

	token, _, err := courses.GenerateToken("a@x.com", domain.RoleStudent)
	require.NoError(t, err)

	_, err = authSvc.Verify(token)
	assert.ErrorIs(t, err, auth.ErrMalformed)

	claims, err := courses.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "courses", claims.Issuer)
}
