package security

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode_IsStableForSameInput(t *testing.T) {
	assert.Equal(t, Code("classify", "AUTOMATION_TOOL_DETECTED"), Code("classify", "AUTOMATION_TOOL_DETECTED"))
}

func TestCode_DiffersAcrossReasons(t *testing.T) {
	assert.NotEqual(t, Code("classify", "a"), Code("classify", "b"))
}

func TestWriteBlocked_OmitsDebugDetailInProduction(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	WriteBlocked(w, r, 403, "Access denied", "classify", "AUTOMATION_TOOL_DETECTED", "matched curl", false)

	var env Envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	assert.Equal(t, "Access denied", env.Error)
	assert.Nil(t, env.XyPriss)
}

func TestWriteBlocked_IncludesDebugDetailWhenEnabled(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("User-Agent", "curl/8.0")
	WriteBlocked(w, r, 403, "Access denied", "classify", "AUTOMATION_TOOL_DETECTED", "matched curl", true)

	var env Envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	require.NotNil(t, env.XyPriss)
	assert.Equal(t, "classify", env.XyPriss.Module)
	assert.Equal(t, "curl/8.0", env.XyPriss.UserAgent)
}
