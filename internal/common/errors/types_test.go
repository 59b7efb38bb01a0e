package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name: "basic error",
			appError: &AppError{
				Type:    ErrTypeConfig,
				Message: "configuration is invalid",
			},
			want: "config: configuration is invalid",
		},
		{
			name: "error with code",
			appError: &AppError{
				Type:    ErrTypeValidation,
				Message: "ttl must not be negative",
				Code:    "TTL001",
			},
			want: "validation: ttl must not be negative: code=TTL001",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeStorage,
				Message: "disk write failed",
				Cause:   errors.New("disk full"),
			},
			want: "storage: disk write failed: cause=disk full",
		},
		{
			name: "error with context sorted by key",
			appError: &AppError{
				Type:    ErrTypeSerialization,
				Message: "decode failed",
				Context: map[string]interface{}{
					"tier": "l2",
					"key":  "meter:1:unit",
				},
			},
			want: "serialization: decode failed: context={key=meter:1:unit, tier=l2}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.appError.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	appError := StorageError("wrapper error", cause)

	assert.Same(t, cause, appError.Unwrap())
	assert.True(t, errors.Is(appError, cause))
	assert.Nil(t, ValidationError("no cause").Unwrap())
}

func TestAppError_WithContextAndCode(t *testing.T) {
	appError := ValidationError("key must not be empty")

	result := appError.WithContext("field", "key").WithCode("KEY001")

	assert.Same(t, appError, result)
	assert.Equal(t, "key", appError.Context["field"])
	assert.Equal(t, "KEY001", appError.Code)
}

func TestConstructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name string
		err  *AppError
		want ErrorType
	}{
		{"validation", ValidationError("bad"), ErrTypeValidation},
		{"config", ConfigError("bad"), ErrTypeConfig},
		{"storage", StorageError("bad", cause), ErrTypeStorage},
		{"serialization", SerializationError("bad", cause), ErrTypeSerialization},
		{"timeout", TimeoutError("cull"), ErrTypeTimeout},
		{"internal", InternalError("bad", cause), ErrTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Type)
		})
	}

	assert.Equal(t, "timeout during cull", TimeoutError("cull").Message)
}

func TestIsType(t *testing.T) {
	wrapped := fmt.Errorf("set failed: %w", ValidationError("negative ttl"))

	assert.True(t, IsType(wrapped, ErrTypeValidation))
	assert.False(t, IsType(wrapped, ErrTypeStorage))
	assert.False(t, IsType(errors.New("plain"), ErrTypeValidation))
	assert.False(t, IsType(nil, ErrTypeValidation))
}

func TestGetType(t *testing.T) {
	assert.Equal(t, ErrorType(""), GetType(nil))
	assert.Equal(t, ErrTypeInternal, GetType(errors.New("plain")))
	assert.Equal(t, ErrTypeStorage, GetType(fmt.Errorf("ctx: %w", StorageError("x", nil))))
}

func TestAs(t *testing.T) {
	var appErr *AppError
	wrapped := fmt.Errorf("outer: %w", TimeoutError("disk get"))

	assert.True(t, As(wrapped, &appErr))
	assert.Equal(t, ErrTypeTimeout, appErr.Type)
	assert.False(t, As(errors.New("plain"), &appErr))
}
