package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "hello", String("  hello  "))
	assert.Equal(t, "scriptalert(1)/script", String("<script>alert(1)</script>"))
	assert.Equal(t, "", String("   "))
	assert.Equal(t, "a b", String("a b"))
}

func TestCleanRecursion(t *testing.T) {
	in := map[string]any{
		"name": "  <b>Juliette</b> ",
		"tags": []any{" one ", "<two>", 3.0, true, nil},
		"nested": map[string]any{
			"street": " 12 <Main> Rd ",
			"depth":  []any{map[string]any{"x": "<y>"}},
		},
		"count": 5.0,
	}

	got := Clean(in).(map[string]any)

	assert.Equal(t, "bJuliette/b", got["name"])
	assert.Equal(t, []any{"one", "two", 3.0, true, nil}, got["tags"])
	nested := got["nested"].(map[string]any)
	assert.Equal(t, "12 Main Rd", nested["street"])
	inner := nested["depth"].([]any)[0].(map[string]any)
	assert.Equal(t, "y", inner["x"])
	assert.Equal(t, 5.0, got["count"])
}

func TestCleanPreservesArrayOrderAndLength(t *testing.T) {
	in := []any{"c", "a", "b"}
	got := Clean(in).([]any)
	assert.Equal(t, []any{"c", "a", "b"}, got)
}

func TestCleanScalarsPassThrough(t *testing.T) {
	assert.Equal(t, 42.0, Clean(42.0))
	assert.Equal(t, false, Clean(false))
	assert.Nil(t, Clean(nil))
}
