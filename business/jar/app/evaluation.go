package app

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/feejar-monitor/business/jar/domain"
	"github.com/fd1az/feejar-monitor/internal/asset"
)

// Snapshot is everything the engine needs, read at one block.
type Snapshot struct {
	BlockNumber uint64
	Timestamp   time.Time
	Release     ReleaseConfig
	Tokens      []domain.TokenBalance
	Unpriced    []common.Address
	Resource    domain.Resource
	Gas         domain.GasContext
	GasPriceWei *big.Int
	ETHUSD      asset.USDPrice
}

// Evaluation is a snapshot run through the engine.
type Evaluation struct {
	Snapshot  *Snapshot
	Selection domain.BurnSelection
	Formatted domain.FormattedResult
	Duration  time.Duration
}

// Payload is the wire form of an evaluation.
type Payload struct {
	domain.FormattedResult `yaml:",inline"`
	BlockNumber uint64    `json:"blockNumber" yaml:"blockNumber"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
}

// Payload returns the formatted result stamped with block and time.
func (e *Evaluation) Payload() Payload {
	return Payload{
		FormattedResult: e.Formatted,
		BlockNumber:     e.Snapshot.BlockNumber,
		Timestamp:       e.Snapshot.Timestamp,
	}
}

// Status summarises the jar and the chain for /api/status.
type Status struct {
	JarAddress     string    `json:"jarAddress"`
	ReleaseAddress string    `json:"releaseAddress"`
	ResourceToken  string    `json:"resourceToken"`
	ResourceSymbol string    `json:"resourceSymbol"`
	Threshold      string    `json:"threshold"`
	ThresholdRaw   string    `json:"thresholdRaw"`
	Nonce          string    `json:"nonce"`
	BlockNumber    uint64    `json:"blockNumber"`
	GasPriceGwei   string    `json:"gasPriceGwei"`
	ETHPriceUSD    string    `json:"ethPriceUSD"`
	ETHPriceSource string    `json:"ethPriceSource"`
	TokenCount     int       `json:"tokenCount"`
	UnpricedCount  int       `json:"unpricedCount"`
	SimulationMode bool      `json:"simulationMode"`
	EvaluatedAt    time.Time `json:"evaluatedAt"`
}

// SimulationInput is a caller-supplied snapshot.
type SimulationInput struct {
	Tokens    []domain.TokenBalance
	Gas       domain.GasContext
	Resource  domain.Resource
	Threshold *big.Int
}

// ClaimTx is an unsigned release transaction.
type ClaimTx struct {
	From         string   `json:"from"`
	To           string   `json:"to"`
	Data         string   `json:"data"`
	Value        string   `json:"value"`
	Gas          uint64   `json:"gas"`
	GasEstimated bool     `json:"gasEstimated"`
	GasPriceWei  string   `json:"gasPriceWei"`
	ChainID      uint64   `json:"chainId"`
	CostETH      string   `json:"costETH"`
	CostUSD      string   `json:"costUSD"`
	ReleaseNonce string   `json:"releaseNonce"`
	Assets       []string `json:"assets"`
	BurnAmount   string   `json:"burnAmount"`
	IsProfitable bool     `json:"isProfitable"`
	NetProfitUSD string   `json:"netProfitUSD"`
}
