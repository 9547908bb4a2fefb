package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeSourceUnavailable: "Price source unavailable",
	CodeServiceTimeout:    "Service request timeout",
	CodeRateLimitExceeded: "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	// Chain gateway errors
	CodeConnectivityError:  "Could not connect to any configured provider",
	CodeRPCError:           "RPC call failed",
	CodeContractCallFailed: "Smart contract call failed",
	CodeInvalidAddress:     "Invalid on-chain address",

	// CEX aggregation errors
	CodeExchangeAPIError:      "Exchange API error",
	CodePriceExtractFailed:    "Could not extract price from exchange response",
	CodeExchangeNotConfigured: "Exchange is not configured",

	// DEX resolution errors
	CodeSwapSimulationFailed:  "Swap simulation failed",
	CodePoolNotFound:          "Liquidity pool not found",
	CodeInsufficientLiquidity: "Insufficient pool liquidity",

	// Oracle verification errors
	CodeOracleFeedMissing:      "No oracle feed configured for pair",
	CodeStaleOracleData:        "Oracle reading is stale",
	CodePriceDeviationExceeded: "Price deviates too far from oracle reference",

	// Notification errors
	CodeAlertDeliveryFailed: "Alert delivery failed",
	CodeDispatcherStopped:   "Dispatcher is stopped",

	// Circuit breaker errors
	CodeCircuitOpen: "Circuit breaker is open",
}
