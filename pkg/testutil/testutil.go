// Package testutil holds small helpers shared across package tests. Keep it
// dependency-light; container helpers live in the containers subpackage.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "taxtrail/pkg/domain"
	dErrors "taxtrail/pkg/domain-errors"
	"taxtrail/pkg/requestcontext"
)

// AssertCode asserts that err carries the given domain error code.
func AssertCode(t *testing.T, err error, code dErrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, dErrors.CodeOf(err), "unexpected error code for %v", err)
}

// AuthedContext builds a request context carrying an authenticated accountant
// and a fixed request time, mirroring what the middleware stack installs.
func AuthedContext(accountantID id.AccountantID, now time.Time) context.Context {
	ctx := requestcontext.WithAccountantID(context.Background(), accountantID)
	return requestcontext.WithTime(ctx, now)
}

// NewJSONRequest builds an HTTP request with a JSON-encoded body.
func NewJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DecodeJSON unmarshals a recorded response body into out.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}
