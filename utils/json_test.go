package utils

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalJSONSortsKeys(t *testing.T) {
	out, err := CanonicalJSON(json.RawMessage(`{"year": 2015, "hp": 200, "type": "SUV"}`))
	require.NoError(t, err)
	require.Equal(t, `{"hp":200,"type":"SUV","year":2015}`, string(out))
}

func TestCanonicalJSONStripsWhitespace(t *testing.T) {
	spaced := json.RawMessage("{\n  \"b\": 1,\n  \"a\": 2\n}")
	out, err := CanonicalJSON(spaced)
	require.NoError(t, err)
	require.Equal(t, `{"a":2,"b":1}`, string(out))
}

func TestCanonicalJSONNestedObjects(t *testing.T) {
	out, err := CanonicalJSON(json.RawMessage(`{"z":{"b":1,"a":2},"a":[{"y":1,"x":2}]}`))
	require.NoError(t, err)
	require.Equal(t, `{"a":[{"x":2,"y":1}],"z":{"a":2,"b":1}}`, string(out))
}

func TestFingerprintDeterministic(t *testing.T) {
	first, err := Fingerprint(json.RawMessage(`{"type":"Coupe","hp":400}`))
	require.NoError(t, err)

	// Same value, different key order and whitespace
	second, err := Fingerprint(json.RawMessage(`{ "hp": 400, "type": "Coupe" }`))
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Len(t, first, 64)
	require.Equal(t, strings.ToLower(first), first)
}

func TestFingerprintDistinguishesValues(t *testing.T) {
	first, err := Fingerprint(json.RawMessage(`{"type":"Coupe","hp":400}`))
	require.NoError(t, err)

	second, err := Fingerprint(json.RawMessage(`{"type":"Coupe","hp":401}`))
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}
