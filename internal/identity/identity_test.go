package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icare-life/carebot/internal/domain"
	"github.com/icare-life/carebot/internal/usercache"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestVerify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/verify", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"success":true,"courses":["eldercare"],"is_membership":false}`)
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "test-key", time.Second, testLogger())

	result, err := client.Verify(context.Background(), "jane@example.com", "Jane")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"eldercare"}, result.Courses)
	assert.False(t, result.IsMembership)
}

func TestVerify_RetriesUpstreamErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"success":false}`)
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "", time.Second, testLogger())

	result, err := client.Verify(context.Background(), "jane@example.com", "Jane")
	require.NoError(t, err)
	assert.False(t, result.Success, "an unknown account is a result, not an error")
	assert.Equal(t, int32(2), calls.Load())
}

func TestVerifyOTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/verify-otp", r.URL.Path)
		fmt.Fprint(w, `{"valid":true}`)
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "", time.Second, testLogger())

	ok, err := client.VerifyOTP(context.Background(), "jane@example.com", "123456")
	require.NoError(t, err)
	assert.True(t, ok)
}

type countingVerifier struct {
	verifies atomic.Int32
	otps     atomic.Int32
	result   domain.IdentityResult
	err      error
}

func (v *countingVerifier) Verify(context.Context, string, string) (domain.IdentityResult, error) {
	v.verifies.Add(1)
	return v.result, v.err
}

func (v *countingVerifier) VerifyOTP(context.Context, string, string) (bool, error) {
	v.otps.Add(1)
	return true, nil
}

func testIdentityCache(t *testing.T) *usercache.Cache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return usercache.NewCache(client)
}

func TestCachedVerifier_ServesRepeatLookupsFromCache(t *testing.T) {
	next := &countingVerifier{result: domain.IdentityResult{Success: true, Courses: []string{"eldercare"}}}
	cached := NewCachedVerifier(next, testIdentityCache(t), testLogger())
	ctx := context.Background()

	first, err := cached.Verify(ctx, "jane@example.com", "Jane")
	require.NoError(t, err)

	second, err := cached.Verify(ctx, "jane@example.com", "Jane")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), next.verifies.Load(), "second lookup hits the cache")
}

func TestCachedVerifier_UnsuccessfulResultNotCached(t *testing.T) {
	next := &countingVerifier{result: domain.IdentityResult{Success: false}}
	cached := NewCachedVerifier(next, testIdentityCache(t), testLogger())
	ctx := context.Background()

	_, err := cached.Verify(ctx, "nobody@example.com", "Nobody")
	require.NoError(t, err)
	_, err = cached.Verify(ctx, "nobody@example.com", "Nobody")
	require.NoError(t, err)

	assert.Equal(t, int32(2), next.verifies.Load())
}

func TestCachedVerifier_ErrorsPassThrough(t *testing.T) {
	next := &countingVerifier{err: errors.New("account service down")}
	cached := NewCachedVerifier(next, testIdentityCache(t), testLogger())

	_, err := cached.Verify(context.Background(), "jane@example.com", "Jane")
	assert.Error(t, err)
}

func TestCachedVerifier_OTPAlwaysGoesUpstream(t *testing.T) {
	next := &countingVerifier{result: domain.IdentityResult{Success: true}}
	cached := NewCachedVerifier(next, testIdentityCache(t), testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := cached.VerifyOTP(ctx, "jane@example.com", "123456")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	assert.Equal(t, int32(3), next.otps.Load())
}
