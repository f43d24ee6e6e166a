package secret

import (
	"encoding/json"
	"fmt"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestSecret(t *testing.T) {
	s := String("benchmarkdbpass")
	assert.Check(t, cmp.Equal(s.Raw(), "benchmarkdbpass"))
	assert.Check(t, cmp.Equal(fmt.Sprintf("%v", s), "REDACTED"))
	assert.Check(t, cmp.Equal(fmt.Sprintf("%#v", s), "REDACTED"))
	assert.Check(t, cmp.Equal(s.String(), "REDACTED"))

	b, err := json.Marshal(struct {
		Pass String `json:"pass"`
	}{Pass: s})
	assert.Assert(t, err)
	assert.Check(t, cmp.Equal(string(b), `{"pass":"REDACTED"}`))

	text, err := s.MarshalText()
	assert.Assert(t, err)
	assert.Check(t, cmp.Equal(string(text), "REDACTED"))
}

func TestSecret_IsSet(t *testing.T) {
	assert.Check(t, String("x").IsSet())
	assert.Check(t, !String("").IsSet())
}
