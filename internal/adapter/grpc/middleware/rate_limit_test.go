package middleware

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const testMethod = "/user.v1.UserService/GetUser"

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

func okHandler(ctx context.Context, req any) (any, error) {
	return "success", nil
}

func peerContext(t *testing.T, addr string) context.Context {
	tcp, err := net.ResolveTCPAddr("tcp", addr)
	require.NoError(t, err)
	return peer.NewContext(context.Background(), &peer.Peer{Addr: tcp})
}

func TestRateLimiter_WithinLimit(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 10, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()

	ctx := peerContext(t, "127.0.0.1:12345")
	info := &grpc.UnaryServerInfo{FullMethod: testMethod}

	for i := 0; i < 10; i++ {
		resp, err := interceptor(ctx, nil, info, okHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}
}

func TestRateLimiter_ExceedLimit(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 5, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()

	ctx := peerContext(t, "127.0.0.1:12345")
	info := &grpc.UnaryServerInfo{FullMethod: testMethod}

	for i := 0; i < 5; i++ {
		_, err := interceptor(ctx, nil, info, okHandler)
		require.NoError(t, err)
	}

	resp, err := interceptor(ctx, nil, info, okHandler)
	require.Error(t, err)
	assert.Nil(t, resp)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.ResourceExhausted, st.Code())
	assert.Contains(t, st.Message(), "rate limit exceeded")
}

func TestRateLimiter_Disabled(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 1, WindowSeconds: 1, Enabled: false}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()

	ctx := peerContext(t, "127.0.0.1:12345")
	info := &grpc.UnaryServerInfo{FullMethod: testMethod}

	for i := 0; i < 10; i++ {
		_, err := interceptor(ctx, nil, info, okHandler)
		require.NoError(t, err)
	}
}

func TestRateLimiter_SeparateBuckets(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 2, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()

	ctx1 := peerContext(t, "192.168.1.1:12345")
	info := &grpc.UnaryServerInfo{FullMethod: testMethod}
	for i := 0; i < 2; i++ {
		_, err := interceptor(ctx1, nil, info, okHandler)
		require.NoError(t, err)
	}
	_, err := interceptor(ctx1, nil, info, okHandler)
	require.Error(t, err)

	// another client
	_, err = interceptor(peerContext(t, "192.168.1.2:12345"), nil, info, okHandler)
	require.NoError(t, err)

	// another method
	_, err = interceptor(ctx1, nil, &grpc.UnaryServerInfo{FullMethod: "/user.v1.UserService/ProcessUser"}, okHandler)
	require.NoError(t, err)
}

func TestRateLimiter_ForwardedFor(t *testing.T) {
	client, mr := setupTestRedis(t)
	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 5, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-forwarded-for", "203.0.113.1"))
	info := &grpc.UnaryServerInfo{FullMethod: testMethod}

	_, err := interceptor(ctx, nil, info, okHandler)
	require.NoError(t, err)
	assert.True(t, mr.Exists(Key(testMethod, "203.0.113.1")))
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 2, WindowSeconds: 2, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()

	ctx := peerContext(t, "127.0.0.1:12345")
	info := &grpc.UnaryServerInfo{FullMethod: testMethod}

	// 2 req/s over a 2s window
	for i := 0; i < 4; i++ {
		_, err := interceptor(ctx, nil, info, okHandler)
		require.NoError(t, err)
	}
	_, err := interceptor(ctx, nil, info, okHandler)
	require.Error(t, err)

	key := Key(testMethod, "127.0.0.1:12345")
	assert.Equal(t, 2*time.Second, mr.TTL(key))

	mr.FastForward(2 * time.Second)
	_, err = interceptor(ctx, nil, info, okHandler)
	require.NoError(t, err)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.SetError("ERR redis unavailable")

	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 1, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()

	ctx := peerContext(t, "127.0.0.1:12345")
	info := &grpc.UnaryServerInfo{FullMethod: testMethod}
	for i := 0; i < 3; i++ {
		resp, err := interceptor(ctx, nil, info, okHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}
}

func TestRateLimiterConfig_MaxRequests(t *testing.T) {
	assert.Equal(t, int64(20), RateLimiterConfig{RequestsPerSecond: 10, WindowSeconds: 2}.MaxRequests())
	assert.Equal(t, int64(1), RateLimiterConfig{RequestsPerSecond: 0.1, WindowSeconds: 1}.MaxRequests())
}
