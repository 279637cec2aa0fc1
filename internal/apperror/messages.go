package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",
	CodeFeatureDisabled: "Feature is disabled",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	CodeInvalidAddress:        "Token address is not a valid 20-byte hex address",
	CodeInvalidBalance:        "Token balance must be a non-negative integer",
	CodeInvalidDecimals:       "Token decimals out of range",
	CodeInvalidPrice:          "Price must be a finite non-negative number",
	CodeInvalidGasContext:     "Gas context is invalid",
	CodeInvalidEngineConfig:   "Engine configuration is invalid",
	CodeInvalidResourceAmount: "Resource amount must be positive",
	CodeInvalidThreshold:      "Threshold must be positive",
	CodeInvalidRecipient:      "Recipient is not a valid address",

	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeBlockNotFound:            "Block not found",
	CodeGasEstimationFailed:      "Gas estimation failed",
	CodeContractCallFailed:       "Smart contract call failed",
	CodeBalanceFetchFailed:       "Failed to read jar balances",
	CodeReleaseConfigFailed:      "Failed to read release contract configuration",
	CodeLogQueryFailed:           "Failed to query transfer logs",
	CodeClaimBuildFailed:         "Failed to build claim transaction",

	CodePriceFeedFailed:    "Price feed request failed",
	CodePriceFeedRejected:  "Price feed rejected the request",
	CodeSpotTickerFailed:   "Spot ticker request failed",
	CodeUniswapQuoteFailed: "Failed to get Uniswap quote",
	CodeInvalidQuote:       "Invalid quote data",

	CodeCacheMiss:   "Cache miss",
	CodeCircuitOpen: "Circuit breaker is open",
}
