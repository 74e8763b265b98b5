package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAutomationTool_BlocksKnownCLIClients(t *testing.T) {
	for _, ua := range []string{"curl/8.4.0", "python-requests/2.31.0", "PostmanRuntime/7.36.0", "Wget/1.21"} {
		blocked, _ := isAutomationTool(ua)
		assert.True(t, blocked, ua)
	}
}

func TestIsAutomationTool_BlocksEmptyOrShortUA(t *testing.T) {
	blocked, reason := isAutomationTool("")
	assert.True(t, blocked)
	assert.Contains(t, reason, "empty")

	blocked, reason = isAutomationTool("abc")
	assert.True(t, blocked)
	assert.Contains(t, reason, "short")
}

func TestIsAutomationTool_AllowsRealBrowserUA(t *testing.T) {
	ua := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	blocked, _ := isAutomationTool(ua)
	assert.False(t, blocked)
}
