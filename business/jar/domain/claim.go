package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/feejar-monitor/internal/apperror"
)

// ClaimPlan is what a release call needs: the nonce it must match, the
// assets to pull out of the jar and who receives them.
type ClaimPlan struct {
	Nonce     *big.Int
	Assets    []common.Address
	Recipient common.Address
	BurnRaw   *big.Int
}

// NewClaimPlan claims only the claimable side of sel; dust stays in the jar.
func NewClaimPlan(nonce *big.Int, sel BurnSelection, recipient string) (ClaimPlan, error) {
	if !common.IsHexAddress(recipient) || common.HexToAddress(recipient) == (common.Address{}) {
		return ClaimPlan{}, apperror.Validation(apperror.CodeInvalidRecipient, recipient)
	}
	if nonce == nil || nonce.Sign() < 0 {
		return ClaimPlan{}, apperror.Validation(apperror.CodeInvalidInput, "nonce")
	}
	if len(sel.Result.Claimable) == 0 {
		return ClaimPlan{}, apperror.Validation(apperror.CodeValidationError, "no claimable tokens")
	}

	assets := make([]common.Address, 0, len(sel.Result.Claimable))
	for _, t := range sel.Result.Claimable {
		assets = append(assets, t.Address())
	}

	return ClaimPlan{
		Nonce:     new(big.Int).Set(nonce),
		Assets:    assets,
		Recipient: common.HexToAddress(recipient),
		BurnRaw:   new(big.Int).Set(sel.ResourceAmountRaw),
	}, nil
}
