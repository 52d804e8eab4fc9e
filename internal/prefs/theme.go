// Package prefs persists the panel's only durable state: the theme flag.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ThemeKey is the preference key holding the theme.
const ThemeKey = "theme"

var ErrUnknownTheme = errors.New("unknown theme")

func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeDark, ThemeLight:
		return Theme(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTheme, s)
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// Themes caches the stored theme. It is read from the store once by Load and
// written back on every change.
type Themes struct {
	store Store

	mu       sync.RWMutex
	current  Theme
	onChange []func(Theme)
}

func NewThemes(store Store) *Themes {
	return &Themes{store: store, current: ThemeDark}
}

// OnChange registers fn to be called after a successful change.
func (t *Themes) OnChange(fn func(Theme)) {
	t.mu.Lock()
	t.onChange = append(t.onChange, fn)
	t.mu.Unlock()
}

// Load reads the stored theme. Anything other than "light" means dark.
func (t *Themes) Load(ctx context.Context) (Theme, error) {
	v, ok, err := t.store.Get(ctx, ThemeKey)
	if err != nil {
		return ThemeDark, fmt.Errorf("load theme: %w", err)
	}

	theme := ThemeDark
	if ok && Theme(v) == ThemeLight {
		theme = ThemeLight
	}

	t.mu.Lock()
	t.current = theme
	t.mu.Unlock()
	return theme, nil
}

func (t *Themes) Current() Theme {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Set persists theme. The cached value only changes if the write succeeds.
func (t *Themes) Set(ctx context.Context, theme Theme) error {
	if _, err := ParseTheme(string(theme)); err != nil {
		return err
	}
	if err := t.store.Set(ctx, ThemeKey, string(theme)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}

	t.mu.Lock()
	t.current = theme
	hooks := append([]func(Theme){}, t.onChange...)
	t.mu.Unlock()

	for _, fn := range hooks {
		fn(theme)
	}
	return nil
}

// Toggle flips and persists the theme.
func (t *Themes) Toggle(ctx context.Context) (Theme, error) {
	next := t.Current().Toggle()
	if err := t.Set(ctx, next); err != nil {
		return t.Current(), err
	}
	return next, nil
}
