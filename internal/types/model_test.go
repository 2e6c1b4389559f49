package types

import (
	"testing"

	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ModelTestSuite struct {
	suite.Suite
}

func TestModelSuite(t *testing.T) {
	suite.Run(t, new(ModelTestSuite))
}

func (suite *ModelTestSuite) TestParseModelKind() {
	for _, kind := range ModelKinds {
		parsed, err := ParseModelKind(string(kind))
		suite.NoError(err)
		suite.Equal(kind, parsed)
	}

	parsed, err := ParseModelKind("")
	suite.NoError(err)
	suite.Equal(ModelKindRandomForest, parsed)
}

func (suite *ModelTestSuite) TestParseModelKindUnknown() {
	_, err := ParseModelKind("xgboost")
	suite.Error(err)
	suite.True(errors.IsConfigurationError(err))
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownModelKind))
	suite.Contains(err.Error(), "xgboost")
}

func (suite *ModelTestSuite) TestParseLabel() {
	label, err := ParseLabel("buy")
	suite.NoError(err)
	suite.Equal(LabelBuy, label)

	_, err = ParseLabel("strong_buy")
	suite.Error(err)
}
