package bot

import "sync"

type dialogStep string

const (
	stepNone     dialogStep = "none"
	stepFullName dialogStep = "full_name"
	stepPhone    dialogStep = "phone"
)

// ReservationDraft is the per-user pending selection collected by the
// dialog before the engine is invoked with a fully-formed request.
type ReservationDraft struct {
	Date     string // YYYY-MM-DD
	Hour     string // HH:00
	FullName string
}

type userState struct {
	Step  dialogStep
	Draft ReservationDraft
}

// stateStore holds short-lived dialog state keyed by user id. Entries are
// cleared on completion or abandonment; the booking engine never sees it.
type stateStore struct {
	mu sync.Mutex
	m  map[int64]*userState
}

func newStateStore() *stateStore {
	return &stateStore{m: make(map[int64]*userState)}
}

func (s *stateStore) get(userID int64) *userState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.m[userID]
	if st == nil {
		st = &userState{Step: stepNone}
		s.m[userID] = st
	}
	return st
}

func (s *stateStore) reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
}
