package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectSortedKeys(t *testing.T) {
	obj := IRObject{
		"a":  IRInt(1),
		"A":  IRInt(2),
		"aa": IRInt(3),
		"Aa": IRInt(5),
		"AA": IRInt(6),
	}

	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aa"}, obj.SortedKeys())
	assert.Empty(t, IRObject{}.SortedKeys())
}

func TestSortedKeysUTF16Order(t *testing.T) {
	// U+10000 encodes as a surrogate pair starting 0xD800, which sorts before
	// U+E000 in UTF-16 but after it in UTF-8.
	obj := IRObject{
		"\uE000":     IRInt(1),
		"\U00010000": IRInt(2),
	}

	assert.Equal(t, []string{"\U00010000", "\uE000"}, obj.SortedKeys())
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  IRValue
	}{
		{"nil", nil, IRNull{}},
		{"string", "widget", IRString("widget")},
		{"int", 42, IRInt(42)},
		{"int64", int64(-7), IRInt(-7)},
		{"bool", true, IRBool(true)},
		{"array", []any{1, "two"}, IRArray{IRInt(1), IRString("two")}},
		{"object", map[string]any{"k": false}, IRObject{"k": IRBool(false)}},
		{"already ir", IRInt(3), IRInt(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.input)
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "want %s, got %s", Format(tt.want), Format(got))
		})
	}
}

func TestFromAnyRejectsFloats(t *testing.T) {
	_, err := FromAny(3.14)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float")

	_, err = FromAny([]any{1, 2.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array[1]")
}

func TestToAnyInvertsFromAny(t *testing.T) {
	original := IRObject{
		"name":  IRString("p"),
		"count": IRInt(3),
		"tags":  IRArray{IRString("a"), IRNull{}},
	}

	back, err := FromAny(ToAny(original))
	require.NoError(t, err)
	assert.True(t, Equal(original, back))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, `"hi"`, Format(IRString("hi")))
	assert.Equal(t, "42", Format(IRInt(42)))
	assert.Equal(t, "false", Format(IRBool(false)))
	assert.Equal(t, "null", Format(IRNull{}))
	assert.Equal(t, "null", Format(nil))
	assert.Equal(t, `[1, "x"]`, Format(IRArray{IRInt(1), IRString("x")}))
	assert.Equal(t, `{a: 1, b: true}`, Format(IRObject{"b": IRBool(true), "a": IRInt(1)}))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(IRInt(1), IRInt(1)))
	assert.False(t, Equal(IRInt(1), IRString("1")))
	assert.True(t, Equal(IRNull{}, IRNull{}))
	assert.True(t, Equal(IRArray{IRInt(1)}, IRArray{IRInt(1)}))
	assert.False(t, Equal(IRArray{IRInt(1)}, IRArray{IRInt(1), IRInt(2)}))
	assert.False(t, Equal(IRObject{"a": IRInt(1)}, IRObject{"b": IRInt(1)}))
	assert.False(t, Equal(IRArray{}, IRObject{}))
}

func TestUnmarshalIRValue(t *testing.T) {
	v, err := UnmarshalIRValue([]byte(`{"a":[1,true,null],"b":"x"}`))
	require.NoError(t, err)
	assert.True(t, Equal(IRObject{
		"a": IRArray{IRInt(1), IRBool(true), IRNull{}},
		"b": IRString("x"),
	}, v))

	_, err = UnmarshalIRValue([]byte(`1.5`))
	assert.Error(t, err)

	_, err = UnmarshalIRValue([]byte(`99999999999999999999`))
	assert.Error(t, err)
}

func TestMarshalIRValueKeyOrder(t *testing.T) {
	data, err := MarshalIRValue(IRObject{"z": IRInt(1), "a": IRNull{}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":null,"z":1}`, string(data))
}
