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

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeSourceUnavailable Code = "SOURCE_UNAVAILABLE"
	CodeServiceTimeout    Code = "SERVICE_TIMEOUT"
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Scanner-specific error codes
const (
	// Chain gateway errors
	CodeConnectivityError  Code = "CONNECTIVITY_ERROR"
	CodeRPCError           Code = "RPC_ERROR"
	CodeContractCallFailed Code = "CONTRACT_CALL_FAILED"
	CodeInvalidAddress     Code = "INVALID_ADDRESS"

	// CEX aggregation errors
	CodeExchangeAPIError      Code = "EXCHANGE_API_ERROR"
	CodePriceExtractFailed    Code = "PRICE_EXTRACT_FAILED"
	CodeExchangeNotConfigured Code = "EXCHANGE_NOT_CONFIGURED"

	// DEX resolution errors
	CodeSwapSimulationFailed  Code = "SWAP_SIMULATION_FAILED"
	CodePoolNotFound          Code = "POOL_NOT_FOUND"
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"

	// Oracle verification errors
	CodeOracleFeedMissing      Code = "ORACLE_FEED_MISSING"
	CodeStaleOracleData        Code = "STALE_ORACLE_DATA"
	CodePriceDeviationExceeded Code = "PRICE_DEVIATION_EXCEEDED"

	// Notification errors
	CodeAlertDeliveryFailed Code = "ALERT_DELIVERY_FAILED"
	CodeDispatcherStopped   Code = "DISPATCHER_STOPPED"
	CodeQueueFull           Code = "QUEUE_FULL"

	// Circuit breaker errors
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
