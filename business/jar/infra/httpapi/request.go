package httpapi

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/feejar-monitor/business/jar/app"
	"github.com/fd1az/feejar-monitor/business/jar/domain"
	"github.com/fd1az/feejar-monitor/internal/apperror"
)

// TokenInput is one token of a simulation request. Balance is in smallest
// units, price in USD per whole token.
type TokenInput struct {
	Address  string  `json:"address"`
	Symbol   string  `json:"symbol"`
	Balance  string  `json:"balance"`
	Decimals int     `json:"decimals"`
	Price    float64 `json:"price"`
}

// SimulateRequest is the body of POST /api/simulate.
type SimulateRequest struct {
	Tokens           []TokenInput `json:"tokens"`
	GasPriceGwei     float64      `json:"gasPriceGwei"`
	EthUSDPrice      float64      `json:"ethUsdPrice"`
	ResourceAddress  string       `json:"resourceAddress"`
	ResourceSymbol   string       `json:"resourceSymbol"`
	ResourcePriceUSD float64      `json:"resourcePriceUsd"`
	ResourceDecimals int          `json:"resourceDecimals"`
	Threshold        string       `json:"threshold"`
}

// toInput validates the request into engine types.
func (req SimulateRequest) toInput() (app.SimulationInput, error) {
	if len(req.Tokens) == 0 {
		return app.SimulationInput{}, apperror.Validation(apperror.CodeInvalidInput, "tokens must not be empty")
	}

	tokens := make([]domain.TokenBalance, 0, len(req.Tokens))
	for i, t := range req.Tokens {
		field := fmt.Sprintf("tokens[%d]", i)

		bal, err := domain.ParseAmount(field+".balance", t.Balance)
		if err != nil {
			return app.SimulationInput{}, err
		}
		price, err := domain.DecimalFromFloat(field+".price", t.Price)
		if err != nil {
			return app.SimulationInput{}, err
		}
		tb, err := domain.NewTokenBalance(t.Address, t.Symbol, bal, t.Decimals, price)
		if err != nil {
			return app.SimulationInput{}, err
		}
		tokens = append(tokens, tb)
	}

	gwei, err := domain.DecimalFromFloat("gasPriceGwei", req.GasPriceGwei)
	if err != nil {
		return app.SimulationInput{}, err
	}
	eth, err := domain.DecimalFromFloat("ethUsdPrice", req.EthUSDPrice)
	if err != nil {
		return app.SimulationInput{}, err
	}
	gas, err := domain.NewGasContext(gwei, eth)
	if err != nil {
		return app.SimulationInput{}, err
	}

	resourcePrice, err := domain.DecimalFromFloat("resourcePriceUsd", req.ResourcePriceUSD)
	if err != nil {
		return app.SimulationInput{}, err
	}
	symbol := req.ResourceSymbol
	if symbol == "" {
		symbol = "RESOURCE"
	}
	resource, err := domain.NewResource(common.HexToAddress(req.ResourceAddress), symbol, req.ResourceDecimals, resourcePrice)
	if err != nil {
		return app.SimulationInput{}, err
	}

	threshold, err := domain.ParseAmount("threshold", req.Threshold)
	if err != nil {
		return app.SimulationInput{}, err
	}

	return app.SimulationInput{
		Tokens:    tokens,
		Gas:       gas,
		Resource:  resource,
		Threshold: threshold,
	}, nil
}
