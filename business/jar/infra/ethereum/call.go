package ethereum

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/feejar-monitor/internal/apperror"
	"github.com/fd1az/feejar-monitor/internal/circuitbreaker"
)

// callWithRetry runs one eth_call through cb, retrying transport errors.
// Reverts are final and do not count against the breaker.
func callWithRetry(ctx context.Context, client ContractCaller, cb *circuitbreaker.CircuitBreaker[[]byte], maxTries uint, to common.Address, data []byte) ([]byte, error) {
	op := func() ([]byte, error) {
		var reverted error
		out, err := cb.Execute(func() ([]byte, error) {
			out, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
			if isRevert(err) {
				reverted = err
				return nil, nil
			}
			return out, err
		})
		if reverted != nil {
			return nil, backoff.Permanent(reverted)
		}
		if err != nil {
			if ctx.Err() != nil || apperror.GetCode(err) == apperror.CodeCircuitOpen {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return out, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxTries),
		backoff.WithMaxElapsedTime(10*time.Second),
	)
}
