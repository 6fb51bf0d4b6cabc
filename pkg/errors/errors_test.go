package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/agentstation/rirstats/pkg/errors"
)

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := &pkgerrors.NotFoundError{Resource: "record", ID: "1.1.1.0"}
		assert.Equal(t, "record 1.1.1.0 not found", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
	})

	t.Run("wrapped error", func(t *testing.T) {
		wrapped := errors.Join(errors.New("lookup failed"), pkgerrors.NewNotFoundError("asn", "64512"))
		assert.True(t, pkgerrors.IsNotFound(wrapped))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := pkgerrors.NewValidationError("value", "0", "range cannot be empty")
		assert.Equal(t, "invalid value 0: range cannot be empty", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrInvalidInput))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{Message: "priority list is empty"}
		assert.Equal(t, "validation failed: priority list is empty", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})
}

func TestFetchError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		unavailable bool
	}{
		{"transport failure", 0, true},
		{"server error", 503, true},
		{"not found", 404, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pkgerrors.NewFetchError("apnic", "https://example.net/apnic", tt.status, errors.New("boom"))
			assert.Equal(t, tt.unavailable, pkgerrors.IsUnavailable(err))
			assert.Contains(t, err.Error(), "apnic")
		})
	}
}

func TestConfigError(t *testing.T) {
	base := errors.New("unknown source")
	err := pkgerrors.NewConfigError("resolver", "bad source order", base)
	assert.Equal(t, "configuration error in resolver: bad source order", err.Error())
	assert.ErrorIs(t, err, base)
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestMergeError(t *testing.T) {
	base := errors.New("wrong kind")
	err := pkgerrors.NewMergeError("asn", []string{"apnic", "arin"}, base)
	assert.Contains(t, err.Error(), "merge asn records from [apnic arin]")
	assert.ErrorIs(t, err, base)

	noSources := pkgerrors.NewMergeError("ipv4", nil, base)
	assert.Equal(t, "merge ipv4 records: wrong kind", noSources.Error())
}

func TestParseError(t *testing.T) {
	t.Run("with line", func(t *testing.T) {
		err := &pkgerrors.ParseError{Format: "delegated", File: "apnic", Line: 12, Column: 3, Message: "bad field"}
		assert.Equal(t, "parse error in delegated at apnic:12:3: bad field", err.Error())
	})

	t.Run("file only", func(t *testing.T) {
		err := pkgerrors.NewParseError("swap", "rir-swap", "unexpected EOF", nil)
		assert.Equal(t, "parse error in swap file rir-swap: unexpected EOF", err.Error())
	})

	t.Run("no file", func(t *testing.T) {
		err := pkgerrors.NewParseError("yaml", "", "bad indent", nil)
		assert.Equal(t, "yaml parse error: bad indent", err.Error())
	})
}

func TestIOError(t *testing.T) {
	base := errors.New("permission denied")
	err := pkgerrors.NewIOError("rename", "/out/combined-stat", base)
	assert.Equal(t, "IO error during rename of /out/combined-stat: permission denied", err.Error())
	assert.ErrorIs(t, err, base)
}

func TestWrapHelpers(t *testing.T) {
	base := errors.New("base")

	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, pkgerrors.WrapIO("read", "x", nil))
		assert.NoError(t, pkgerrors.WrapParse("delegated", "x", nil))
		assert.NoError(t, pkgerrors.WrapResource("load", "config", "", nil))
		assert.NoError(t, pkgerrors.WrapValidation("field", nil))
	})

	t.Run("typed results", func(t *testing.T) {
		var ioErr *pkgerrors.IOError
		require.ErrorAs(t, pkgerrors.WrapIO("read", "x", base), &ioErr)
		assert.Equal(t, "read", ioErr.Operation)

		var parseErr *pkgerrors.ParseError
		require.ErrorAs(t, pkgerrors.WrapParse("delegated", "apnic", base), &parseErr)
		assert.Equal(t, "apnic", parseErr.File)

		var resErr *pkgerrors.ResourceError
		require.ErrorAs(t, pkgerrors.WrapResource("load", "config", "rirstats.yaml", base), &resErr)
		assert.ErrorIs(t, resErr, base)

		assert.True(t, pkgerrors.IsValidationError(pkgerrors.WrapValidation("priority", base)))
	})
}
