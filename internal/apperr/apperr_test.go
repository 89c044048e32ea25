package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_WrapsSourceAndMapsTo500(t *testing.T) {
	err := Storage(errors.New("disk I/O error"), "create")

	rich, ok := From(err)
	require.True(t, ok)
	assert.Equal(t, goerrors.CategoryInternal, rich.Category)
	assert.Equal(t, TextStorage, rich.TextCode)
	assert.Equal(t, http.StatusInternalServerError, Status(err))
	assert.True(t, IsStorage(err))
	assert.False(t, IsNotFound(err))
}

func TestNotFound_SurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NotFound("webhook not found", "abc"))

	assert.True(t, IsNotFound(err))
	assert.Equal(t, http.StatusNotFound, Status(err))
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad json", nil), http.StatusBadRequest},
		{"too large", TooLarge(1024), http.StatusRequestEntityTooLarge},
		{"signature", InvalidSignature("Firma inválida"), http.StatusUnauthorized},
		{"overloaded", Overloaded("queue full"), http.StatusTooManyRequests},
		{"rate limited", RateLimited("10.0.0.1"), http.StatusTooManyRequests},
		{"configuration", Configuration("secret missing"), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestFrom_Nil(t *testing.T) {
	_, ok := From(nil)
	assert.False(t, ok)
}
