package tracker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"madcal/internal/model"
	"madcal/internal/tracker"
)

func diff(keys ...string) map[string]model.ChangeRecord {
	d := make(map[string]model.ChangeRecord, len(keys))
	for _, k := range keys {
		d[k] = model.ChangeRecord{Added: 1, Total: 1}
	}
	return d
}

func TestNotifierSequence(t *testing.T) {
	n := tracker.NewNotifier()

	steps := []struct {
		diff map[string]model.ChangeRecord
		want []string
	}{
		{diff("wicked"), nil},
		{diff("wicked"), nil},
		{diff("wicked", "matilda", "aladdin"), []string{"aladdin", "matilda"}},
		{diff(), nil},
		{diff("wicked"), []string{"wicked"}},
	}
	for i, s := range steps {
		assert.Equal(t, s.want, n.Observe(s.diff), "step %d", i)
	}
	assert.Equal(t, []string{"wicked"}, n.Keys())
}

func TestRestoredNotifierIsPrimed(t *testing.T) {
	n := tracker.RestoreNotifier([]string{"wicked"})
	assert.True(t, n.Primed())
	assert.Equal(t, []string{"matilda"}, n.Observe(diff("wicked", "matilda")))

	empty := tracker.RestoreNotifier(nil)
	assert.Equal(t, []string{"wicked"}, empty.Observe(diff("wicked")))
}

func TestNewNotifierIsNotPrimed(t *testing.T) {
	n := tracker.NewNotifier()
	assert.False(t, n.Primed())
	assert.Empty(t, n.Keys())
}
