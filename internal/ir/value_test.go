package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalObject_RoundTrip(t *testing.T) {
	obj := Object{
		"code":  String("S0032-281X2002000300001"),
		"count": Int(3),
		"ok":    Bool(true),
		"v10":   Array{Object{"_": String("Silva"), "r": String("ND")}},
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)

	got, err := UnmarshalObject(data)
	require.NoError(t, err)
	assert.Equal(t, obj, got)
}

func TestUnmarshal_Null(t *testing.T) {
	v, err := Unmarshal([]byte(`{"a":null}`))
	require.NoError(t, err)
	assert.Equal(t, Object{"a": Null{}}, v)
}

func TestUnmarshal_RejectsFloats(t *testing.T) {
	_, err := Unmarshal([]byte(`{"a":1.5}`))
	assert.Error(t, err)

	_, err = UnmarshalObject([]byte(`[1]`))
	assert.Error(t, err)
}

func TestObject_Str(t *testing.T) {
	obj := Object{"a": String("x"), "b": Int(1)}
	assert.Equal(t, "x", obj.Str("a"))
	assert.Equal(t, "", obj.Str("b"))
	assert.Equal(t, "", obj.Str("missing"))
}

