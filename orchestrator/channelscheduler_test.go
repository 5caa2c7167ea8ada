package orchestrator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTsSortKey(t *testing.T) {
	assert.Less(t, tsSortKey("1700000000.000100"), tsSortKey("1700000001.000100"))
	assert.Equal(t, math.Inf(1), tsSortKey("not-a-timestamp"))
	assert.Equal(t, math.Inf(1), tsSortKey(""))
}

func TestTsSortKey_MalformedSortsLast(t *testing.T) {
	keys := []string{"1700000002.0", "garbage", "1700000001.0"}
	sorted := append([]string(nil), keys...)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if tsSortKey(sorted[j]) < tsSortKey(sorted[i]) {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	assert.Equal(t, []string{"1700000001.0", "1700000002.0", "garbage"}, sorted)
}
