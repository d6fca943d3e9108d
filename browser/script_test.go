package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepsJSON(t *testing.T) {
	assert.Equal(t, "[]", stepsJSON(Locator{}))
	assert.Equal(t, `[{"q":"div","n":0},{"q":"input","n":3}]`, stepsJSON(Query("div").Child("input").Nth(3)))
}

func TestCountScript_QuotesSelector(t *testing.T) {
	s := countScript(Query("tbody"), `div[class*="row"]`)
	assert.Contains(t, s, `"div[class*=\"row\"]"`)
	assert.Contains(t, s, `[{"q":"tbody","n":0}]`)
}

func TestCallScript(t *testing.T) {
	s, err := callScript("([a, b]) => a + b", []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, `(([a, b]) => a + b)(["x","y"])`, s)

	_, err = callScript("x => x", make(chan int))
	assert.Error(t, err)
}
