package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 105
	ErrCodeInsufficientData     ErrorCode = 106
	ErrCodeMissingParameter     ErrorCode = 109

	// Data/Resource errors (200-299)
	ErrCodeQueryFailed          ErrorCode = 202
	ErrCodeHistoricalDataFailed ErrorCode = 203

	// Strategy errors (400-499)
	ErrCodeStrategyNotLoaded    ErrorCode = 400
	ErrCodeStrategyRuntimeError ErrorCode = 402
	ErrCodeVersionMismatch      ErrorCode = 404

	// Trading errors (500-599)
	ErrCodeOrderFailed ErrorCode = 500

	// Engine errors (600-699)
	ErrCodeEngineInitFailed  ErrorCode = 601
	ErrCodeEngineConfigError ErrorCode = 602
	ErrCodeEngineNoBroker    ErrorCode = 603
	ErrCodeEngineNoStrategy  ErrorCode = 604

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700

	// Callback errors (800-899)
	ErrCodeCallbackFailed ErrorCode = 800

	// Connectivity errors (900-909)
	ErrCodeNotConnected     ErrorCode = 900
	ErrCodeSessionTornDown  ErrorCode = 901
	ErrCodeRequestTimeout   ErrorCode = 902
	ErrCodeRequestCancelled ErrorCode = 903

	// Order rejection errors (910-919)
	ErrCodeOrderRejected      ErrorCode = 910
	ErrCodeLegPlacementFailed ErrorCode = 911
	ErrCodeCancelFailed       ErrorCode = 912

	// Currency errors (920-929)
	ErrCodeCurrencyResolution ErrorCode = 920

	// Ledger errors (930-939)
	ErrCodeLedgerPersist ErrorCode = 931
	ErrCodeLedgerRestore ErrorCode = 932

	// Scheduling errors (940-949)
	ErrCodeScheduleOutOfHours ErrorCode = 940
	ErrCodeInvalidFrequency   ErrorCode = 941
	ErrCodeInvalidTimezone    ErrorCode = 942

	// Notification errors (950-959)
	ErrCodeNotifyFailed ErrorCode = 950
)
