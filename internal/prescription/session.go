package prescription

import (
	"context"
	"errors"
	"sync"
)

// State - состояние проверки рецепта.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateValid      State = "valid"
	StateInvalid    State = "invalid"
)

// ErrValidationInProgress - проверка уже запущена.
var ErrValidationInProgress = errors.New("prescription validation already in progress")

// Session хранит состояние проверки одного рецепта:
// idle -> validating -> {valid, invalid}; новая загрузка возвращает в idle.
type Session struct {
	mu        sync.Mutex
	validator *Validator
	state     State
	result    Result
}

// NewSession создаёт сессию в состоянии idle.
func NewSession(v *Validator) *Session {
	return &Session{validator: v, state: StateIdle}
}

// State возвращает текущее состояние.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result возвращает результат последней завершённой проверки.
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Reset сбрасывает сессию при повторной загрузке файла.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
	s.result = Result{}
}

// Submit запускает проверку. Некорректный файл переводит сессию в invalid
// и возвращает ошибку валидации.
func (s *Session) Submit(ctx context.Context, upload Upload) (State, error) {
	s.mu.Lock()
	if s.state == StateValidating {
		s.mu.Unlock()
		return StateValidating, ErrValidationInProgress
	}
	s.state = StateValidating
	s.result = Result{}
	s.mu.Unlock()

	res, err := s.validator.Validate(ctx, upload)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = res
	if err != nil || !res.IsValid {
		s.state = StateInvalid
	} else {
		s.state = StateValid
	}
	return s.state, err
}
