package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("images must not be empty"), http.StatusBadRequest},
		{"not found", NotFound("product", "abc"), http.StatusNotFound},
		{"conflict", Conflict("duplicate"), http.StatusConflict},
		{"store unavailable", StoreUnavailable(errors.New("dial tcp")), http.StatusServiceUnavailable},
		{"internal", Internal(errors.New("boom")), http.StatusInternalServerError},
		{"wrapped not found", fmt.Errorf("get product: %w", NotFound("product", "x")), http.StatusNotFound},
		{"bare sentinel", fmt.Errorf("lookup: %w", ErrNotFound), http.StatusNotFound},
		{"plain error", errors.New("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestStoreUnavailableMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("list products: %w", StoreUnavailable(errors.New("server selection timeout")))
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.Equal(t, "STORE_UNAVAILABLE", Code(err))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "product with id 42 not found", Message(NotFound("product", "42")))
	assert.Equal(t, "raw", Message(errors.New("raw")))
	assert.Equal(t, "NOT_FOUND", Code(fmt.Errorf("x: %w", ErrNotFound)))
}
