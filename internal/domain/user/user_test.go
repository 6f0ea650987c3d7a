package user

import (
	"testing"

	"github.com/h4food/foodmarket/internal/domain/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNormalisesEmail(t *testing.T) {
	u, err := New("  Chef@Example.COM ", " Mina ", "https://img/1.png")
	require.NoError(t, err)
	assert.Equal(t, "chef@example.com", u.Email)
	assert.Equal(t, "Mina", u.Name)
}

func TestNewRejectsBadEmail(t *testing.T) {
	_, err := New("", "x", "")
	assert.ErrorIs(t, err, ErrEmailRequired)

	_, err = New("not-an-email", "x", "")
	assert.ErrorIs(t, err, failure.ErrValidation)
}
