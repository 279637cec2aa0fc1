package app

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	blockchainDomain "github.com/fd1az/feejar-monitor/business/blockchain/domain"
	"github.com/fd1az/feejar-monitor/business/jar/domain"
	"github.com/fd1az/feejar-monitor/internal/asset"
)

var (
	jarAddr      = common.HexToAddress("0x9999999999999999999999999999999999999999")
	releaseAddr  = common.HexToAddress("0x2222222222222222222222222222222222222222")
	resourceAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	dustAddr     = common.HexToAddress("0x00000000000000000000000000000000000d0570")
	emptyAddr    = common.HexToAddress("0x0000000000000000000000000000000000e3e3e3")

	resourceAsset = asset.MustNew(resourceAddr, "RSRC", "Resource", 18)
	dustAsset     = asset.MustNew(dustAddr, "DUST", "Dust", 18)
	emptyAsset    = asset.MustNew(emptyAddr, "NONE", "Empty", 18)

	errBoom = errors.New("boom")
)

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

type stubBalances struct {
	holdings  []asset.Amount
	err       error
	lastAsked []common.Address
	mu        sync.Mutex
}

func scenarioBalances() *stubBalances {
	return &stubBalances{holdings: []asset.Amount{
		asset.MustAmount(asset.USDC, big.NewInt(500_000000)),
		asset.MustAmount(dustAsset, big.NewInt(1)),
		asset.MustAmount(asset.WETH, wei("2000000000000000000")),
		asset.Zero(emptyAsset),
	}}
}

func (s *stubBalances) Balances(_ context.Context, _ common.Address, tokens []common.Address) ([]asset.Amount, error) {
	s.mu.Lock()
	s.lastAsked = tokens
	s.mu.Unlock()
	return s.holdings, s.err
}

func (s *stubBalances) Metadata(_ context.Context, token common.Address) (*asset.Asset, error) {
	if token == resourceAddr {
		return resourceAsset, nil
	}
	return nil, errBoom
}

func (s *stubBalances) asked() []common.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAsked
}

type stubRelease struct {
	cfg ReleaseConfig
	err error
}

func scenarioRelease() *stubRelease {
	return &stubRelease{cfg: ReleaseConfig{
		Address:       releaseAddr,
		ResourceToken: resourceAddr,
		Threshold:     wei("4000000000000000000000"),
		Nonce:         big.NewInt(7),
	}}
}

func (s *stubRelease) Config(context.Context) (ReleaseConfig, error) {
	return s.cfg, s.err
}

type stubDiscovery struct {
	found []common.Address
	err   error
}

func (s *stubDiscovery) Discover(context.Context, common.Address) ([]common.Address, error) {
	return s.found, s.err
}

type stubEncoder struct {
	plan domain.ClaimPlan
}

func (s *stubEncoder) EncodeRelease(plan domain.ClaimPlan) ([]byte, error) {
	s.plan = plan
	return []byte{0xde, 0xad, 0xbe, 0xef}, nil
}

type stubPricer struct {
	prices map[common.Address]decimal.Decimal
	eth    decimal.Decimal
	err    error
}

func scenarioPricer() *stubPricer {
	return &stubPricer{
		prices: map[common.Address]decimal.Decimal{
			asset.AddrUSDC: decimal.NewFromInt(1),
			asset.AddrWETH: decimal.NewFromInt(3000),
			resourceAddr:   decimal.NewFromInt(5),
		},
		eth: decimal.NewFromInt(3000),
	}
}

func (s *stubPricer) USDPrices(_ context.Context, assets []*asset.Asset) (map[common.Address]asset.USDPrice, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[common.Address]asset.USDPrice, len(assets))
	for _, a := range assets {
		p, _ := asset.NewUSDPrice(a, s.prices[a.Address()], "test", time.Now())
		out[a.Address()] = p
	}
	return out, nil
}

func (s *stubPricer) ETHUSD(context.Context) (asset.USDPrice, error) {
	return asset.NewUSDPrice(asset.ETH, s.eth, "test", time.Now())
}

type stubChain struct {
	gasWei      *big.Int
	block       uint64
	estimate    uint64
	estimateErr error
	blockCalls  atomic.Int32
}

func scenarioChain() *stubChain {
	return &stubChain{gasWei: big.NewInt(20_000_000_000), block: 100, estimate: 180_000}
}

func (s *stubChain) GetGasPrice(context.Context) (*blockchainDomain.GasPrice, error) {
	return blockchainDomain.NewGasPrice(s.gasWei), nil
}

func (s *stubChain) LatestBlock(context.Context) (*blockchainDomain.Block, error) {
	s.blockCalls.Add(1)
	return &blockchainDomain.Block{Number: s.block, Timestamp: time.Now()}, nil
}

func (s *stubChain) EstimateGas(context.Context, common.Address, common.Address, []byte) (uint64, error) {
	return s.estimate, s.estimateErr
}

type fixture struct {
	balances  *stubBalances
	release   *stubRelease
	discovery *stubDiscovery
	encoder   *stubEncoder
	pricer    *stubPricer
	chain     *stubChain
}

func newFixture() *fixture {
	return &fixture{
		balances: scenarioBalances(),
		release:  scenarioRelease(),
		encoder:  &stubEncoder{},
		pricer:   scenarioPricer(),
		chain:    scenarioChain(),
	}
}

func (f *fixture) deps() Deps {
	d := Deps{
		Balances: f.balances,
		Release:  f.release,
		Encoder:  f.encoder,
		Pricer:   f.pricer,
		Chain:    f.chain,
	}
	if f.discovery != nil {
		d.Discovery = f.discovery
	}
	return d
}
