package shared_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskwell/taskwell-api/internal/api/shared"
)

type taggedRequest struct {
	Title string `json:"title" validate:"required,max=5"`
}

type selfValidatingRequest struct {
	fail bool
}

var errSelfValidation = errors.New("self validation failed")

func (r selfValidatingRequest) Validate() error {
	if r.fail {
		return errSelfValidation
	}
	return nil
}

func TestDecodeJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(`{"title":"milk"}`))

	var decoded taggedRequest
	require.NoError(t, shared.DecodeJSON(req, &decoded))
	assert.Equal(t, "milk", decoded.Title)

	bad := httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(`{"title":`))
	assert.Error(t, shared.DecodeJSON(bad, &decoded))
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, shared.ValidateRequest(taggedRequest{Title: "milk"}))
	assert.Error(t, shared.ValidateRequest(taggedRequest{}))
	assert.Error(t, shared.ValidateRequest(taggedRequest{Title: "far too long"}))

	// A struct with its own Validate method bypasses the tag validator.
	assert.NoError(t, shared.ValidateRequest(selfValidatingRequest{}))
	assert.ErrorIs(t, shared.ValidateRequest(selfValidatingRequest{fail: true}), errSelfValidation)
}
