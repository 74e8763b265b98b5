package inject

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandInjectionDetector_ShellChain(t *testing.T) {
	d := CommandInjectionDetector{}
	r := httptest.NewRequest("GET", "/", nil)
	in := Inputs{Body: "host=example.com; cat /etc/passwd"}
	finding, err := d.Inspect(r, in, DefaultDetectorConfig())
	assert.NoError(t, err)
	assert.NotNil(t, finding)
}

func TestCommandInjectionDetector_Substitution(t *testing.T) {
	d := CommandInjectionDetector{}
	r := httptest.NewRequest("GET", "/run?cmd=$(whoami)", nil)
	in := Inputs{Query: r.URL.Query()}
	finding, err := d.Inspect(r, in, DefaultDetectorConfig())
	assert.NoError(t, err)
	assert.NotNil(t, finding)
}

func TestCommandInjectionDetector_Clean(t *testing.T) {
	d := CommandInjectionDetector{}
	r := httptest.NewRequest("GET", "/run?cmd=build-report", nil)
	in := Inputs{Query: r.URL.Query()}
	finding, err := d.Inspect(r, in, DefaultDetectorConfig())
	assert.NoError(t, err)
	assert.Nil(t, finding)
}
