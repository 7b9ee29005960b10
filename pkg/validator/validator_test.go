package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reviewBody struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Rating    int    `json:"rating" validate:"min=1,max=5"`
	Comment   string `json:"comment" validate:"max=10"`
	Status    string `json:"status,omitempty" validate:"omitempty,oneof=pending paid failed refunded"`
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_Success(t *testing.T) {
	err := Validate(reviewBody{ProductID: "8a6e0804-2bd0-4672-b79d-d97027f9071a", Rating: 4, Comment: "nice"})
	assert.NoError(t, err)
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	fields := fieldsOf(t, Validate(reviewBody{Rating: 3}))

	assert.Equal(t, "is required", fields["product_id"])
	assert.NotContains(t, fields, "ProductID")
}

func TestValidate_NumericBounds(t *testing.T) {
	fields := fieldsOf(t, Validate(reviewBody{ProductID: "8a6e0804-2bd0-4672-b79d-d97027f9071a", Rating: 6}))
	assert.Equal(t, "must be at most 5", fields["rating"])

	fields = fieldsOf(t, Validate(reviewBody{ProductID: "8a6e0804-2bd0-4672-b79d-d97027f9071a", Rating: 0}))
	assert.Equal(t, "must be at least 1", fields["rating"])
}

func TestValidate_StringLength(t *testing.T) {
	fields := fieldsOf(t, Validate(reviewBody{
		ProductID: "8a6e0804-2bd0-4672-b79d-d97027f9071a",
		Rating:    5,
		Comment:   "far too long for ten",
	}))
	assert.Equal(t, "must be at most 10 characters", fields["comment"])
}

func TestValidate_OneOfAndUUID(t *testing.T) {
	fields := fieldsOf(t, Validate(reviewBody{ProductID: "p-1", Rating: 5, Status: "shipped"}))

	assert.Equal(t, "must be a valid UUID", fields["product_id"])
	assert.Equal(t, "must be one of: pending paid failed refunded", fields["status"])
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(reviewBody{Rating: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'product_id' is required")
}
