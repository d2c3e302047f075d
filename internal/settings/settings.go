package settings

import (
	"errors"
	"fmt"
	"sync"

	"monkeysnype/internal/utility"
)

const (
	DefaultBackgroundColor = "#171717"
	DefaultTargetColor     = "#9ae600"
)

var ErrInvalidColor = errors.New("invalid color")

// Display holds the view preferences chosen from the side menu.
type Display struct {
	ShowMenu        bool   `json:"show_menu"`
	ShowStats       bool   `json:"show_stats"`
	BackgroundColor string `json:"bg_color"`
	TargetColor     string `json:"target_color"`
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	ShowMenu        *bool   `json:"show_menu,omitempty"`
	ShowStats       *bool   `json:"show_stats,omitempty"`
	BackgroundColor *string `json:"bg_color,omitempty"`
	TargetColor     *string `json:"target_color,omitempty"`
}

type Store struct {
	mu      sync.Mutex
	display Display
}

func NewStore() *Store {
	return &Store{
		display: Display{
			BackgroundColor: DefaultBackgroundColor,
			TargetColor:     DefaultTargetColor,
		},
	}
}

func (s *Store) Get() Display {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display
}

// Apply validates every field of p before changing anything.
func (s *Store) Apply(p Patch) (Display, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.display
	if p.ShowMenu != nil {
		next.ShowMenu = *p.ShowMenu
	}
	if p.ShowStats != nil {
		next.ShowStats = *p.ShowStats
	}
	if p.BackgroundColor != nil {
		c, err := utility.NormalizeHexColor(*p.BackgroundColor)
		if err != nil {
			return s.display, fmt.Errorf("background: %w: %v", ErrInvalidColor, err)
		}
		next.BackgroundColor = c
	}
	if p.TargetColor != nil {
		c, err := utility.NormalizeHexColor(*p.TargetColor)
		if err != nil {
			return s.display, fmt.Errorf("target: %w: %v", ErrInvalidColor, err)
		}
		next.TargetColor = c
	}
	s.display = next
	return next, nil
}
