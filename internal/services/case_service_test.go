// internal/services/case_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func validDMCAInput() DMCAInput {
	return DMCAInput{
		TrackID:                 uuid.New(),
		RequesterName:           "Jordan Reyes",
		RequesterEmail:          "legal@rightsholder.example.com",
		RightsHolder:            "Example Records LLC",
		InfringementDescription: "The uploaded track reproduces our recording in full.",
		OriginalWorkDescription: "Original master recording released 2019, catalog EX-1042.",
		GoodFaithStatement:      true,
		AccuracyStatement:       true,
		AuthorityStatement:      true,
	}
}

func TestValidateDMCAValid(t *testing.T) {
	assert.NoError(t, ValidateDMCA(validDMCAInput()))
}

func TestValidateDMCAMissingRequiredFields(t *testing.T) {
	mutations := []func(*DMCAInput){
		func(i *DMCAInput) { i.RequesterName = "" },
		func(i *DMCAInput) { i.RequesterEmail = "  " },
		func(i *DMCAInput) { i.RightsHolder = "" },
		func(i *DMCAInput) { i.InfringementDescription = "" },
		func(i *DMCAInput) { i.OriginalWorkDescription = "" },
	}

	for i, mutate := range mutations {
		input := validDMCAInput()
		mutate(&input)
		assert.Error(t, ValidateDMCA(input), "mutation %d should fail", i)
	}
}

func TestValidateDMCAInvalidEmail(t *testing.T) {
	for _, email := range []string{"not-an-email", "missing@domain", "@nodomain.com", "spaces in@mail.com"} {
		input := validDMCAInput()
		input.RequesterEmail = email
		assert.Error(t, ValidateDMCA(input), email)
	}
}

func TestValidateDMCARequiresAllSwornStatements(t *testing.T) {
	mutations := []func(*DMCAInput){
		func(i *DMCAInput) { i.GoodFaithStatement = false },
		func(i *DMCAInput) { i.AccuracyStatement = false },
		func(i *DMCAInput) { i.AuthorityStatement = false },
	}

	for i, mutate := range mutations {
		input := validDMCAInput()
		mutate(&input)
		err := ValidateDMCA(input)
		assert.Error(t, err, "statement mutation %d", i)
		assert.Contains(t, err.Error(), "sworn statements")
	}
}
