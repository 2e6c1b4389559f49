package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidConfiguration ErrorCode = 100
	ErrCodeMissingParameter     ErrorCode = 101
	ErrCodeInvalidParameter     ErrorCode = 102
	ErrCodeUnknownIndicator     ErrorCode = 103
	ErrCodeUnknownModelKind     ErrorCode = 104
	ErrCodeInvalidPeriod        ErrorCode = 105
	ErrCodeInvalidThreshold     ErrorCode = 106
	ErrCodeInvalidTimespan      ErrorCode = 107
	ErrCodeInvalidStorage       ErrorCode = 108
	ErrCodeIncompatibleModel    ErrorCode = 109
	ErrCodeInvalidType          ErrorCode = 110

	// Data errors (200-299)
	ErrCodeEmptySeries       ErrorCode = 200
	ErrCodeInsufficientData  ErrorCode = 201
	ErrCodeEmptyTrainingSet  ErrorCode = 202
	ErrCodeSingleClass       ErrorCode = 203
	ErrCodeFeatureMismatch   ErrorCode = 204
	ErrCodeModelDecodeFailed ErrorCode = 205
	ErrCodeModelNotTrained   ErrorCode = 206
	ErrCodeNoDataFound       ErrorCode = 207

	// External service errors (700-799)
	ErrCodePriceFetchFailed  ErrorCode = 700
	ErrCodePersistenceFailed ErrorCode = 701
	ErrCodeBrokerFailed      ErrorCode = 702
	ErrCodeMetricsPushFailed ErrorCode = 703
)

// Category groups error codes into the three failure classes the pipeline reacts to.
type Category string

const (
	CategoryUnknown         Category = "unknown"
	CategoryConfiguration   Category = "configuration"
	CategoryData            Category = "data"
	CategoryExternalService Category = "external_service"
)

// Category returns the failure class of the code.
func (c ErrorCode) Category() Category {
	switch {
	case c >= 100 && c < 200:
		return CategoryConfiguration
	case c >= 200 && c < 300:
		return CategoryData
	case c >= 700 && c < 800:
		return CategoryExternalService
	default:
		return CategoryUnknown
	}
}
