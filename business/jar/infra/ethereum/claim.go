package ethereum

import (
	"github.com/fd1az/feejar-monitor/business/jar/app"
	"github.com/fd1az/feejar-monitor/business/jar/domain"
	"github.com/fd1az/feejar-monitor/internal/apperror"
)

var _ app.ClaimEncoder = ClaimEncoder{}

// ClaimEncoder packs release(nonce, assets, recipient) calldata.
type ClaimEncoder struct{}

// EncodeRelease returns the calldata for plan.
func (ClaimEncoder) EncodeRelease(plan domain.ClaimPlan) ([]byte, error) {
	if plan.Nonce == nil {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "release nonce missing")
	}
	data, err := releaseContract.Pack("release", plan.Nonce, plan.Assets, plan.Recipient)
	if err != nil {
		return nil, apperror.New(apperror.CodeClaimBuildFailed, apperror.WithCause(err))
	}
	return data, nil
}
