package dto

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindingErrorMessage(t *testing.T) {
	type form struct {
		Username string `validate:"required"`
		Email    string `validate:"omitempty,email"`
		Role     string `validate:"required,oneof=admin user"`
	}

	validate := validator.New()
	err := validate.Struct(form{Email: "not-an-email", Role: "root"})
	require.Error(t, err)

	msg := BindingErrorMessage(err)
	assert.Contains(t, msg, "Username is required")
	assert.Contains(t, msg, "Email must be a valid email address")
	assert.Contains(t, msg, "Role must be one of: admin user")
}

func TestBindingErrorMessagePassthrough(t *testing.T) {
	err := errors.New("unexpected EOF")
	assert.Equal(t, "unexpected EOF", BindingErrorMessage(err))
}
