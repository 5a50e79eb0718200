package app

import (
	"sync"

	"github.com/gdamore/tcell/v2"
)

// Screen wraps the terminal backend. Under test the application boots with
// a tcell simulation screen so no real terminal is required.
type Screen struct {
	mu     sync.Mutex
	screen tcell.Screen
	inited bool
}

// NewScreen creates a screen over a real terminal.
func NewScreen() (*Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return &Screen{screen: screen}, nil
}

// NewSimulationScreen creates a headless screen backed by tcell's
// simulation backend.
func NewSimulationScreen() *Screen {
	return &Screen{screen: tcell.NewSimulationScreen("UTF-8")}
}

// Init initializes the underlying tcell screen.
func (s *Screen) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inited {
		return nil
	}
	if err := s.screen.Init(); err != nil {
		return err
	}
	s.inited = true
	return nil
}

// Fini releases the underlying tcell screen. Safe to call more than once.
func (s *Screen) Fini() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inited {
		return
	}
	s.screen.Fini()
	s.inited = false
}

// Size returns the screen dimensions.
func (s *Screen) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen.Size()
}

// Underlying exposes the tcell screen for components that render.
func (s *Screen) Underlying() tcell.Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen
}
