package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/feejar-monitor/business/pricing/domain"
	"github.com/fd1az/feejar-monitor/internal/apperror"
	"github.com/fd1az/feejar-monitor/internal/asset"
	"github.com/fd1az/feejar-monitor/internal/logger"
)

type stubFeed struct {
	mu        sync.Mutex
	prices    map[common.Address]decimal.Decimal
	eth       decimal.Decimal
	err       error
	ethErr    error
	requested [][]common.Address
	ethCalls  atomic.Int32
}

func (f *stubFeed) TokenPricesUSD(_ context.Context, tokens []common.Address) (map[common.Address]decimal.Decimal, error) {
	f.mu.Lock()
	f.requested = append(f.requested, tokens)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[common.Address]decimal.Decimal)
	for _, t := range tokens {
		if p, ok := f.prices[t]; ok {
			out[t] = p
		}
	}
	return out, nil
}

func (f *stubFeed) ETHPriceUSD(context.Context) (decimal.Decimal, error) {
	f.ethCalls.Add(1)
	return f.eth, f.ethErr
}

type stubTicker struct {
	price decimal.Decimal
	err   error
}

func (s stubTicker) ETHPriceUSD(context.Context) (decimal.Decimal, error) {
	return s.price, s.err
}

type stubQuoter struct {
	prices map[common.Address]decimal.Decimal
}

func (q stubQuoter) QuoteUSD(_ context.Context, a *asset.Asset) (decimal.Decimal, error) {
	if p, ok := q.prices[a.Address()]; ok {
		return p, nil
	}
	return decimal.Zero, errors.New("no pool")
}

func newService(t *testing.T, feed PriceFeed, ticker SpotTicker, quoter OnChainQuoter) *PricingService {
	t.Helper()
	s, err := NewPricingService(ServiceConfig{CacheTTL: time.Minute}, feed, ticker, quoter, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestETHUSD_PrefersTicker(t *testing.T) {
	feed := &stubFeed{eth: decimal.NewFromInt(2990)}
	s := newService(t, feed, stubTicker{price: decimal.NewFromInt(3000)}, nil)

	p, err := s.ETHUSD(context.Background())
	require.NoError(t, err)
	assert.True(t, p.USD().Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, domain.SourceTicker, p.Source())

	_, err = s.ETHUSD(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, feed.ethCalls.Load(), "second call served from cache")
}

func TestETHUSD_FallsBackToFeed(t *testing.T) {
	feed := &stubFeed{eth: decimal.NewFromInt(2990)}
	s := newService(t, feed, stubTicker{err: errors.New("down")}, nil)

	p, err := s.ETHUSD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SourceFeed, p.Source())
	assert.True(t, p.USD().Equal(decimal.NewFromInt(2990)))
}

func TestETHUSD_AllSourcesFail(t *testing.T) {
	feed := &stubFeed{ethErr: errors.New("feed down")}
	s := newService(t, feed, stubTicker{err: errors.New("ticker down")}, nil)

	_, err := s.ETHUSD(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperror.CodePriceFeedFailed, apperror.GetCode(err))
	assert.Contains(t, err.Error(), "feed down")
	assert.Contains(t, err.Error(), "ticker down")
}

func TestETHUSD_WithoutTicker(t *testing.T) {
	s := newService(t, &stubFeed{eth: decimal.NewFromInt(3100)}, nil, nil)

	p, err := s.ETHUSD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SourceFeed, p.Source())
}

func TestUSDPrices_FeedQuoterAndUnpriced(t *testing.T) {
	junk := asset.MustNew(common.HexToAddress("0x00000000000000000000000000000000000d0570"), "JUNK", "Junk", 18)

	feed := &stubFeed{prices: map[common.Address]decimal.Decimal{
		asset.AddrUSDC: decimal.RequireFromString("0.9999"),
	}}
	quoter := stubQuoter{prices: map[common.Address]decimal.Decimal{
		asset.AddrWETH: decimal.NewFromInt(3000),
	}}
	s := newService(t, feed, nil, quoter)

	prices, err := s.USDPrices(context.Background(), []*asset.Asset{asset.USDC, asset.WETH, junk})
	require.NoError(t, err)
	require.Len(t, prices, 3)

	assert.Equal(t, domain.SourceFeed, prices[asset.AddrUSDC].Source())
	assert.Equal(t, domain.SourceQuoter, prices[asset.AddrWETH].Source())
	assert.True(t, prices[asset.AddrWETH].USD().Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, domain.SourceNone, prices[junk.Address()].Source())
	assert.True(t, prices[junk.Address()].IsZero())

	// priced tokens are cached, the unpriced one is asked for again
	_, err = s.USDPrices(context.Background(), []*asset.Asset{asset.USDC, asset.WETH, junk})
	require.NoError(t, err)
	require.Len(t, feed.requested, 2)
	assert.Equal(t, []common.Address{junk.Address()}, feed.requested[1])
}

func TestUSDPrices_FeedFailureWithoutQuoter(t *testing.T) {
	s := newService(t, &stubFeed{err: errors.New("503")}, nil, nil)

	_, err := s.USDPrices(context.Background(), []*asset.Asset{asset.USDC})
	assert.Equal(t, apperror.CodePriceFeedFailed, apperror.GetCode(err))
}

func TestUSDPrices_FeedFailureFallsBackToQuoter(t *testing.T) {
	quoter := stubQuoter{prices: map[common.Address]decimal.Decimal{
		asset.AddrWETH: decimal.NewFromInt(3000),
	}}
	s := newService(t, &stubFeed{err: errors.New("503")}, nil, quoter)

	prices, err := s.USDPrices(context.Background(), []*asset.Asset{asset.WETH, asset.DAI})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceQuoter, prices[asset.AddrWETH].Source())
	assert.Equal(t, domain.SourceNone, prices[asset.AddrDAI].Source())
}

func TestUSDPrices_NegativeFeedPriceIsUnpriced(t *testing.T) {
	feed := &stubFeed{prices: map[common.Address]decimal.Decimal{
		asset.AddrDAI: decimal.NewFromInt(-1),
	}}
	s := newService(t, feed, nil, nil)

	prices, err := s.USDPrices(context.Background(), []*asset.Asset{asset.DAI})
	require.NoError(t, err)
	assert.True(t, prices[asset.AddrDAI].IsZero())
}
