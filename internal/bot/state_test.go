package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateStore(t *testing.T) {
	s := newStateStore()

	st := s.get(1)
	assert.Equal(t, stepNone, st.Step)

	st.Step = stepPhone
	st.Draft = ReservationDraft{Date: "2026-09-02", Hour: "11:00", FullName: "Ali Valiyev"}
	assert.Equal(t, stepPhone, s.get(1).Step)

	// Other users get independent state.
	assert.Equal(t, stepNone, s.get(2).Step)

	s.reset(1)
	assert.Equal(t, stepNone, s.get(1).Step)
	assert.Empty(t, s.get(1).Draft.Date)
}
