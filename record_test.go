package binskema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reoring/binskema"
)

func TestRecord(t *testing.T) {
	r := binskema.NewRecord("b", 1, "a", binskema.NewRecord("x", 2), "list", []any{binskema.NewRecord("y", 3), 4})
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []string{"b", "a", "list"}, r.Keys())

	r.Set("b", 5)
	v, ok := r.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 5, v)
	_, ok = r.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, map[string]any{
		"b":    5,
		"a":    map[string]any{"x": 2},
		"list": []any{map[string]any{"y": 3}, 4},
	}, r.Map())

	var names []string
	r.Range(func(name string, _ any) bool {
		names = append(names, name)
		return name != "a"
	})
	assert.Equal(t, []string{"b", "a"}, names)

	assert.Equal(t, "{x:2}", binskema.NewRecord("x", 2).String())
}

func TestOverlay(t *testing.T) {
	base := binskema.Map{"a": 1, "sum": 9}
	o := binskema.Overlay(base, "sum", 0)

	v, _ := o.Get("sum")
	assert.Equal(t, 0, v)
	v, _ = o.Get("a")
	assert.Equal(t, 1, v)

	o.Set("a", 2)
	o.Set("sum", 3)
	assert.Equal(t, binskema.Map{"a": 2, "sum": 9}, base)
	v, _ = o.Get("sum")
	assert.Equal(t, 3, v)
}
