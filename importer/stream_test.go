package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type streamFixture struct {
	Name string `json:"name"`
}

func TestStreamJSONArrayDecodesEachElement(t *testing.T) {
	var got []string
	err := streamJSONArray(strings.NewReader(`[{"name":"a"},{"name":"b"},{"name":"c"}]`), func(f streamFixture) error {
		got = append(got, f.Name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestStreamJSONArrayEmptyArray(t *testing.T) {
	var calls int
	err := streamJSONArray(strings.NewReader(`[]`), func(f streamFixture) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestStreamJSONArrayRejectsNonArray(t *testing.T) {
	err := streamJSONArray(strings.NewReader(`{"name":"a"}`), func(f streamFixture) error {
		return nil
	})
	assert.Error(t, err)
}

func TestStreamJSONArrayStopsEarlyOnCallbackError(t *testing.T) {
	var calls int
	err := streamJSONArray(strings.NewReader(`[{"name":"a"},{"name":"b"}]`), func(f streamFixture) error {
		calls++
		if f.Name == "a" {
			return assert.AnError
		}
		return nil
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls)
}
