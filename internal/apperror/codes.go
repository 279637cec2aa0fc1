package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"
	CodeFeatureDisabled Code = "FEATURE_DISABLED"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Engine input codes. These name the violated invariant.
const (
	CodeInvalidAddress        Code = "INVALID_ADDRESS"
	CodeInvalidBalance        Code = "INVALID_BALANCE"
	CodeInvalidDecimals       Code = "INVALID_DECIMALS"
	CodeInvalidPrice          Code = "INVALID_PRICE"
	CodeInvalidGasContext     Code = "INVALID_GAS_CONTEXT"
	CodeInvalidEngineConfig   Code = "INVALID_ENGINE_CONFIG"
	CodeInvalidResourceAmount Code = "INVALID_RESOURCE_AMOUNT"
	CodeInvalidThreshold      Code = "INVALID_THRESHOLD"
	CodeInvalidRecipient      Code = "INVALID_RECIPIENT"
)

// Chain codes
const (
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeBlockNotFound            Code = "BLOCK_NOT_FOUND"
	CodeGasEstimationFailed      Code = "GAS_ESTIMATION_FAILED"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"
	CodeBalanceFetchFailed       Code = "BALANCE_FETCH_FAILED"
	CodeReleaseConfigFailed      Code = "RELEASE_CONFIG_FAILED"
	CodeLogQueryFailed           Code = "LOG_QUERY_FAILED"
	CodeClaimBuildFailed         Code = "CLAIM_BUILD_FAILED"
)

// Pricing codes
const (
	CodePriceFeedFailed    Code = "PRICE_FEED_FAILED"
	CodePriceFeedRejected  Code = "PRICE_FEED_REJECTED"
	CodeSpotTickerFailed   Code = "SPOT_TICKER_FAILED"
	CodeUniswapQuoteFailed Code = "UNISWAP_QUOTE_FAILED"
	CodeInvalidQuote       Code = "INVALID_QUOTE"
)

// Resilience codes
const (
	CodeCacheMiss   Code = "CACHE_MISS"
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
