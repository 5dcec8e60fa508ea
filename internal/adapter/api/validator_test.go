package api

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	CounterpartID string   `json:"counterpartId" validate:"required"`
	MessageIDs    []string `json:"messageIds" validate:"omitempty,dive,uuid"`
}

func TestValidator_UsesJSONFieldNames(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&sample{})
	require.Error(t, err)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "counterpartId", verrs[0].Field())

	err = v.Validate(&sample{CounterpartID: "v", MessageIDs: []string{"nope"}})
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "uuid", verrs[0].Tag())

	assert.NoError(t, v.Validate(&sample{CounterpartID: "v"}))
}
