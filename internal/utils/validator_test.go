// internal/utils/validator_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsObjectID(t *testing.T) {
	assert.True(t, IsObjectID("507f1f77bcf86cd799439011"))
	assert.True(t, IsObjectID("000000000000000000000001"))
	assert.False(t, IsObjectID("507f1f77bcf86cd79943901"))   // too short
	assert.False(t, IsObjectID("507f1f77bcf86cd7994390111")) // too long
	assert.False(t, IsObjectID("507f1f77bcf86cd79943901z"))
	assert.False(t, IsObjectID(""))
}

func TestGetValidationErrors(t *testing.T) {
	type payload struct {
		Name  string `validate:"required"`
		Score int    `validate:"min=1,max=5"`
	}

	err := ValidateStruct(&payload{Score: 9})
	errs := GetValidationErrors(err)
	assert.Len(t, errs, 2)

	assert.Nil(t, GetValidationErrors(ValidateStruct(&payload{Name: "ok", Score: 3})))
}
