package ledgersim

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

const subscriptionBuffer = 256

var ErrSubscriberTooSlow = errors.New("log subscriber fell behind")

type logSubscription struct {
	query   ethereum.FilterQuery
	pending chan types.Log
	dropped chan struct{}
}

// SubscribeFilterLogs delivers logs matching q that are produced after the call.
func (b *Backend) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ls := &logSubscription{
		query:   q,
		pending: make(chan types.Log, subscriptionBuffer),
		dropped: make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[ls] = struct{}{}
	b.mu.Unlock()

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer func() {
			b.mu.Lock()
			delete(b.subs, ls)
			b.mu.Unlock()
		}()

		for {
			select {
			case lg := <-ls.pending:
				select {
				case ch <- lg:
				case <-quit:
					return nil
				}
			case <-ls.dropped:
				return ErrSubscriberTooSlow
			case <-ctx.Done():
				return ctx.Err()
			case <-quit:
				return nil
			}
		}
	}), nil
}

// publish hands lg to every matching subscription. Called with b.mu held.
func (b *Backend) publish(lg types.Log) {
	for ls := range b.subs {
		if !matchAddressAndTopics(ls.query, lg) {
			continue
		}
		select {
		case ls.pending <- lg:
		default:
			// Subscribers that fall behind are terminated, never skipped.
			delete(b.subs, ls)
			close(ls.dropped)
		}
	}
}
