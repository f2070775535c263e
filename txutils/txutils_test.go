package txutils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/certificate-registry/interfaces"
)

// revertDataError mimics the JSON-RPC error returned by eth_call and
// eth_estimateGas for a reverted execution.
type revertDataError struct {
	msg  string
	data string
}

func (e *revertDataError) Error() string          { return e.msg }
func (e *revertDataError) ErrorCode() int         { return 3 }
func (e *revertDataError) ErrorData() interface{} { return e.data }

func encodeRevert(reason string) string {
	// Error(string) selector, offset, length, padded payload.
	out := []byte{0x08, 0xc3, 0x79, 0xa0}
	word := func(n int) []byte {
		b := make([]byte, 32)
		b[31] = byte(n)
		return b
	}
	out = append(out, word(32)...)
	out = append(out, word(len(reason))...)
	padded := make([]byte, (len(reason)+31)/32*32)
	copy(padded, reason)
	out = append(out, padded...)
	return hexutil.Encode(out)
}

var fastPolicy = RetryPolicy{Attempts: 3, Delay: time.Millisecond, Retryable: IsRetryableRead}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastPolicy, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", io.EOF
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestRetry_ReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy, func(ctx context.Context) (bool, error) {
		calls++
		return false, fmt.Errorf("attempt %d: %w", calls, io.EOF)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "attempt 3")
}

func TestRetry_StopsOnDeterministicError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy, func(ctx context.Context) (int, error) {
		calls++
		return 0, interfaces.NewRevertError(interfaces.ReasonNotIssuer)
	})
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)
	assert.Equal(t, 1, calls)
}

func TestRetry_RetriesNotFound(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy, func(ctx context.Context) (int, error) {
		calls++
		return 0, interfaces.NewRevertError(interfaces.ReasonNotFound)
	})
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.Equal(t, 3, calls)
}

func TestRetry_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{Attempts: 3, Delay: time.Hour}

	calls := 0
	start := time.Now()
	_, err := Retry(ctx, policy, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, io.EOF
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestRetry_DefaultPolicy(t *testing.T) {
	p := DefaultReadPolicy()
	assert.Equal(t, 3, p.Attempts)
	assert.Equal(t, time.Second, p.Delay)
	require.NotNil(t, p.Retryable)
}

func TestGasWithBuffer(t *testing.T) {
	tests := []struct {
		estimate uint64
		percent  uint64
		want     uint64
	}{
		{100_000, 20, 120_000},
		{21_000, 20, 25_200},
		{3, 20, 4}, // 3.6 rounds up
		{2, 20, 2}, // 2.4 rounds down
		{0, 20, 0},
		{50_000, 0, 50_000},
	}
	for _, tt := range tests {
		got, err := GasWithBuffer(tt.estimate, tt.percent)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "estimate %d", tt.estimate)
	}

	_, err := GasWithBuffer(^uint64(0)/100, 20)
	assert.ErrorIs(t, err, interfaces.ErrNumericOverflow)

	_, err = GasWithBuffer(1, ^uint64(0))
	assert.ErrorIs(t, err, interfaces.ErrNumericOverflow)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    interfaces.ErrorKind
		details string
	}{
		{
			name:    "revert data",
			err:     &revertDataError{msg: "execution reverted", data: encodeRevert(interfaces.ReasonDuplicateID)},
			kind:    interfaces.KindDuplicateID,
			details: interfaces.ReasonDuplicateID,
		},
		{
			name:    "revert message",
			err:     errors.New("execution reverted: Only the owner can perform this action"),
			kind:    interfaces.KindNotAuthorized,
			details: interfaces.ReasonOnlyOwner,
		},
		{
			name:    "unknown revert reason",
			err:     errors.New("execution reverted: paused"),
			kind:    interfaces.KindUnknown,
			details: "paused",
		},
		{
			name: "user denied",
			err:  errors.New("MetaMask Tx Signature: User denied transaction signature."),
			kind: interfaces.KindUserRejected,
		},
		{
			name: "canceled",
			err:  fmt.Errorf("sign: %w", context.Canceled),
			kind: interfaces.KindUserRejected,
		},
		{
			name:    "bigint",
			err:     errors.New("can't convert BigInt to number"),
			kind:    interfaces.KindNumericOverflow,
			details: "can't convert BigInt to number",
		},
		{
			name: "connection refused",
			err:  errors.New("dial tcp 127.0.0.1:8545: connect: connection refused"),
			kind: interfaces.KindTransientUnavailable,
		},
		{
			name: "http 503",
			err:  rpc.HTTPError{StatusCode: 503, Status: "503 Service Unavailable"},
			kind: interfaces.KindTransientUnavailable,
		},
		{
			name: "http 400",
			err:  rpc.HTTPError{StatusCode: 400, Status: "400 Bad Request"},
			kind: interfaces.KindUnknown,
		},
		{
			name: "receipt not found",
			err:  ethereum.NotFound,
			kind: interfaces.KindTransientUnavailable,
		},
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			kind: interfaces.KindTransientUnavailable,
		},
		{
			name:    "unknown",
			err:     errors.New("nonce too low"),
			kind:    interfaces.KindUnknown,
			details: "nonce too low",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.kind, got.Kind)
			assert.NotEmpty(t, got.Message)
			assert.NotEmpty(t, got.Details)
			if tt.details != "" {
				assert.Equal(t, tt.details, got.Details)
			}
		})
	}

	assert.Nil(t, Classify(nil))

	existing := interfaces.NewRevertError(interfaces.ReasonAlreadyRevoked)
	assert.Same(t, existing, Classify(fmt.Errorf("wrapped: %w", existing)))
}

func TestClassifyRead(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Retry(ctx, fastPolicy, func(ctx context.Context) (bool, error) {
		return false, ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)

	got := ClassifyRead(err)
	assert.Equal(t, interfaces.KindUserRejected, got.Kind)
	assert.NotContains(t, got.Message, "Transaction")
	assert.NotContains(t, got.Details, "ransaction")
	assert.ErrorIs(t, got, context.Canceled)

	// Everything else is classified as usual.
	assert.Equal(t, interfaces.KindTransientUnavailable, ClassifyRead(io.EOF).Kind)
	assert.Nil(t, ClassifyRead(nil))
}

func TestIsRetryableRead(t *testing.T) {
	assert.True(t, IsRetryableRead(io.EOF))
	assert.True(t, IsRetryableRead(interfaces.NewRevertError(interfaces.ReasonNotFound)))
	assert.False(t, IsRetryableRead(interfaces.NewRevertError(interfaces.ReasonAlreadyRevoked)))
	assert.False(t, IsRetryableRead(errors.New("invalid argument")))
	assert.True(t, IsTransient(io.ErrUnexpectedEOF))
}
