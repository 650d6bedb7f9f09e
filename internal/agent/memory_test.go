package agent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemory(t *testing.T) {
	t.Run("TrimKeepsSystemTurns", func(t *testing.T) {
		m := NewMemory(4)
		m.Add("system", "rules")
		for i := 0; i < 6; i++ {
			m.Add("user", fmt.Sprintf("turn %d", i))
		}

		assert.Equal(t, 4, m.Len())
		msgs := m.Messages()
		assert.Equal(t, "system", msgs[0].Role)
		assert.Equal(t, "turn 5", msgs[len(msgs)-1].Content)
	})

	t.Run("UnboundedWhenCapZero", func(t *testing.T) {
		m := NewMemory(0)
		for i := 0; i < 100; i++ {
			m.Add("user", "x")
		}
		assert.Equal(t, 100, m.Len())
	})

	t.Run("ClearKeepsSystem", func(t *testing.T) {
		m := NewMemory(10)
		m.Add("system", "rules")
		m.Add("user", "hello")
		m.Add("assistant", "hi")

		m.Clear()
		assert.Equal(t, 1, m.Len())
		assert.True(t, m.HasSystem())
	})

	t.Run("Summary", func(t *testing.T) {
		m := NewMemory(10)
		m.Add("user", "a")
		m.Add("assistant", "b")
		m.Add("user", "c")
		assert.Equal(t, "Conversation: 3 messages (2 user, 1 assistant)", m.Summary())
	})
}
