package inject

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathTraversalDetector_DotDotSlash(t *testing.T) {
	d := PathTraversalDetector{}
	r := httptest.NewRequest("GET", "/files/../../etc/passwd", nil)
	finding, err := d.Inspect(r, Inputs{}, DefaultDetectorConfig())
	assert.NoError(t, err)
	assert.NotNil(t, finding)
	assert.Equal(t, AttackPathTraversal, finding.Type)
	assert.Equal(t, "path", finding.Field)
}

func TestPathTraversalDetector_EncodedTraversal(t *testing.T) {
	d := PathTraversalDetector{}
	r := httptest.NewRequest("GET", "/", nil)
	in := Inputs{Body: "path=%2e%2e%2fsecret"}
	finding, err := d.Inspect(r, in, DefaultDetectorConfig())
	assert.NoError(t, err)
	assert.NotNil(t, finding)
}

func TestPathTraversalDetector_Clean(t *testing.T) {
	d := PathTraversalDetector{}
	r := httptest.NewRequest("GET", "/files/report.pdf", nil)
	finding, err := d.Inspect(r, Inputs{}, DefaultDetectorConfig())
	assert.NoError(t, err)
	assert.Nil(t, finding)
}

func TestScanPattern_SetsFieldAndValue(t *testing.T) {
	f := scanPattern(pathTraversalPatterns, "a/../b", "body", AttackPathTraversal, DefaultDetectorConfig())
	assert.NotNil(t, f)
	assert.Equal(t, "body", f.Field)
	assert.Equal(t, "../", f.Value)
}
