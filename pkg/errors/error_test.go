package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeUnknownIndicator, "unknown indicator")
	suite.NotNil(err)
	suite.Equal(ErrCodeUnknownIndicator, err.Code)
	suite.Equal("unknown indicator", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeUnknownModelKind, "unknown model kind: %s", "xgboost")
	suite.Equal(ErrCodeUnknownModelKind, err.Code)
	suite.Equal("unknown model kind: xgboost", err.Message)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("connection refused")
	err := Wrapf(ErrCodePriceFetchFailed, cause, "failed to fetch prices for %s", "AAPL")
	suite.Equal(ErrCodePriceFetchFailed, err.Code)
	suite.Equal("failed to fetch prices for AAPL", err.Message)
	suite.Equal(cause, err.Cause)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestErrorString() {
	suite.Equal("[100] bad config", New(ErrCodeInvalidConfiguration, "bad config").Error())
	suite.Equal("[701] save failed: disk full", Wrap(ErrCodePersistenceFailed, "save failed", errors.New("disk full")).Error())
}

func (suite *ErrorTestSuite) TestCategory() {
	tests := []struct {
		name     string
		err      error
		expected Category
	}{
		{"configuration", New(ErrCodeUnknownIndicator, "x"), CategoryConfiguration},
		{"data", New(ErrCodeEmptyTrainingSet, "x"), CategoryData},
		{"external", New(ErrCodeBrokerFailed, "x"), CategoryExternalService},
		{"wrapped", fmt.Errorf("outer: %w", New(ErrCodePriceFetchFailed, "x")), CategoryExternalService},
		{"insufficient data", NewInsufficientDataError(20, 3, "AAPL", "too few bars"), CategoryData},
		{"plain", errors.New("plain"), CategoryUnknown},
		{"nil", nil, CategoryUnknown},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, CategoryOf(tc.err))
		})
	}
}

func (suite *ErrorTestSuite) TestCategoryPredicates() {
	suite.True(IsConfigurationError(New(ErrCodeMissingParameter, "x")))
	suite.False(IsConfigurationError(New(ErrCodeEmptySeries, "x")))
	suite.True(IsDataError(New(ErrCodeEmptySeries, "x")))
	suite.True(IsExternalServiceError(New(ErrCodePersistenceFailed, "x")))
	suite.False(IsExternalServiceError(errors.New("x")))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := fmt.Errorf("wrapped: %w", New(ErrCodeSingleClass, "one class"))
	suite.True(HasCode(err, ErrCodeSingleClass))
	suite.False(HasCode(err, ErrCodeEmptySeries))
	suite.Equal(ErrCodeUnknown, GetCode(errors.New("plain")))
}

func (suite *ErrorTestSuite) TestAsError() {
	err := fmt.Errorf("wrapped: %w", New(ErrCodeNoDataFound, "nothing"))

	var target *Error
	suite.True(As(err, &target))
	suite.Equal(ErrCodeNoDataFound, target.Code)
}

func (suite *ErrorTestSuite) TestInsufficientDataError() {
	err := NewInsufficientDataErrorf(20, 5, "MSFT", "need %d bars, got %d", 20, 5)
	suite.Equal("need 20 bars, got 5", err.Error())
	suite.Equal("MSFT", err.Symbol)
	suite.True(IsInsufficientDataError(fmt.Errorf("outer: %w", err)))
	suite.False(IsInsufficientDataError(errors.New("plain")))
	suite.Equal(ErrCodeInsufficientData, GetCode(err))
}
