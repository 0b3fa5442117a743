package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAndIs(t *testing.T) {
	err := New(CodeNotFound, "document not found")
	assert.True(t, Is(err, CodeNotFound))
	assert.False(t, Is(err, CodeConflict))
	assert.Equal(t, "not_found: document not found", err.Error())
}

func TestWrap(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("wrapped cause is unwrappable", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeInternal, "store unavailable")
		assert.True(t, Is(err, CodeInternal))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("outermost code wins", func(t *testing.T) {
		inner := New(CodeNotFound, "missing")
		outer := Wrap(inner, CodeConflict, "stale read")
		assert.Equal(t, CodeConflict, GetCode(outer))
	})
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeInternal, GetCode(fmt.Errorf("plain error")))
	assert.Equal(t, CodeCrypto, GetCode(New(CodeCrypto, "bad signature")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:   http.StatusBadRequest,
		CodeUnauthorized: http.StatusUnauthorized,
		CodeForbidden:    http.StatusForbidden,
		CodeNotFound:     http.StatusNotFound,
		CodeConflict:     http.StatusConflict,
		CodeTimeout:      http.StatusGatewayTimeout,
		CodeIntegrity:    http.StatusInternalServerError,
		CodeCrypto:       http.StatusInternalServerError,
		Code("unknown"):  http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
