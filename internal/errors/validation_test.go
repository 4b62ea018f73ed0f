package errors_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/dungeonbreak/internal/errors"
)

type ValidationTestSuite struct {
	suite.Suite
}

func TestValidationSuite(t *testing.T) {
	suite.Run(t, new(ValidationTestSuite))
}

func (s *ValidationTestSuite) TestBuilderNoErrors() {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("title", "Escape the Dungeon", vb)
	errors.ValidateRange("totalLevels", 12, 1, 64, vb)
	errors.ValidateFloatRange("traitMin", -1, -1, 1, vb)

	s.Assert().NoError(vb.Build())
}

func (s *ValidationTestSuite) TestBuilderCollectsAllFields() {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("title", "  ", vb)
	errors.ValidateMin("rooms", 0, 1, vb)
	errors.ValidateEnum("trait", "Courage", []string{"Empathy", "Survival"}, vb)
	errors.ValidateUnique("skills", []string{"appraisal", "xray", "appraisal"}, vb)

	err := vb.Build()
	s.Require().Error(err)
	s.Assert().True(errors.IsInvalidArgument(err))

	fields, ok := errors.GetMeta(err)["validation_errors"].(map[string][]string)
	s.Require().True(ok)
	s.Assert().Equal([]string{"is required"}, fields["title"])
	s.Assert().Equal([]string{"must be at least 1"}, fields["rooms"])
	s.Assert().Equal([]string{"must be one of: Empathy, Survival"}, fields["trait"])
	s.Assert().Equal([]string{`duplicate id "appraisal"`}, fields["skills"])
}

func (s *ValidationTestSuite) TestErrorMessageIsSorted() {
	v := errors.NewValidationError()
	v.AddFieldError("zeta", "bad")
	v.AddFieldError("alpha", "worse")

	s.Assert().Equal("validation failed: alpha: worse; zeta: bad", v.Error())
}

func (s *ValidationTestSuite) TestFloatRange() {
	vb := errors.NewValidationBuilder()
	errors.ValidateFloatRange("probability", 1.5, 0, 1, vb)

	err := vb.Build()
	s.Require().Error(err)
	s.Assert().Contains(err.Error(), "probability: must be between 0 and 1")
}
