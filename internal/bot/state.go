package bot

import (
	"sync"
	"time"

	"smena/internal/model"
)

type editStep string

const (
	stepNone          editStep = "none"
	stepPickStart     editStep = "pick_start"
	stepPickEnd       editStep = "pick_end"
	stepBatchSelect   editStep = "batch_select"
	stepBatchStart    editStep = "batch_start"
	stepBatchEnd      editStep = "batch_end"
	stepTemplateStart editStep = "template_start"
	stepTemplateEnd   editStep = "template_end"
)

// userState is the transient UI state of one chat: the month on screen, the
// date being edited, the batch selection set and the in-flight-save flag.
type userState struct {
	Step  editStep
	Year  int
	Month time.Month

	Date         model.Date // day being edited
	PendingStart string

	Selection map[model.Date]bool

	TemplateDow time.Weekday

	// Saving disables the save control while a template save is in
	// flight, so two saves never overlap.
	Saving bool
}

func (s *userState) resetFlow() {
	s.Step = stepNone
	s.Date = model.Date{}
	s.PendingStart = ""
	s.Selection = nil
}

type stateStore struct {
	mu    sync.Mutex
	m     map[int64]*userState
	today func() model.Date
}

func newStateStore(today func() model.Date) *stateStore {
	return &stateStore{m: make(map[int64]*userState), today: today}
}

func (s *stateStore) get(userID int64) *userState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.m[userID]
	if st == nil {
		now := s.today()
		st = &userState{Step: stepNone, Year: now.Year, Month: now.Month}
		s.m[userID] = st
	}
	return st
}

func (s *stateStore) reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
}
