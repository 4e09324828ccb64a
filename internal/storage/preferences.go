package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"hhsfinance/internal/core"
)

// Preferences is the typed view of the persisted record.
type Preferences struct {
	store Store
}

func NewPreferences(store Store) *Preferences {
	return &Preferences{store: store}
}

// Store returns the underlying key/value store.
func (p *Preferences) Store() Store {
	return p.store
}

// LoadState returns the persisted state. found is false on a fresh install.
// A stored value that does not parse is reported as an error.
func (p *Preferences) LoadState(ctx context.Context) (state core.AppState, found bool, err error) {
	raw, ok, err := p.store.Get(ctx, KeyAppState)
	if err != nil || !ok {
		return core.AppState{}, false, err
	}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return core.AppState{}, false, fmt.Errorf("decode stored state: %w", err)
	}
	return state, true, nil
}

func (p *Preferences) SaveState(ctx context.Context, state core.AppState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return p.store.Set(ctx, KeyAppState, string(b))
}

// ArchiveState records a snapshot that is about to be replaced.
func (p *Preferences) ArchiveState(ctx context.Context, reason string, state core.AppState) error {
	b, err := json.Marshal(state.Clone())
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return p.store.Archive(ctx, reason, string(b))
}

// Settings reads language and theme, defaulting to English and light.
func (p *Preferences) Settings(ctx context.Context) (core.Settings, error) {
	s := core.DefaultSettings()
	lang, ok, err := p.store.Get(ctx, KeyLanguage)
	if err != nil {
		return s, err
	}
	if ok && core.Language(lang).Valid() {
		s.Language = core.Language(lang)
	}
	theme, ok, err := p.store.Get(ctx, KeyTheme)
	if err != nil {
		return s, err
	}
	if ok {
		s.IsDark = core.Theme(theme) == core.ThemeDark
	}
	return s, nil
}

func (p *Preferences) SaveSettings(ctx context.Context, s core.Settings) error {
	if err := p.SetLanguage(ctx, s.Language); err != nil {
		return err
	}
	return p.SetDark(ctx, s.IsDark)
}

func (p *Preferences) SetLanguage(ctx context.Context, lang core.Language) error {
	if !lang.Valid() {
		return fmt.Errorf("unsupported language %q", lang)
	}
	return p.store.Set(ctx, KeyLanguage, string(lang))
}

func (p *Preferences) SetDark(ctx context.Context, dark bool) error {
	theme := core.ThemeLight
	if dark {
		theme = core.ThemeDark
	}
	return p.store.Set(ctx, KeyTheme, string(theme))
}

func (p *Preferences) Authenticated(ctx context.Context) (bool, error) {
	v, ok, err := p.store.Get(ctx, KeyAuth)
	if err != nil || !ok {
		return false, err
	}
	return v == "true", nil
}

func (p *Preferences) SetAuthenticated(ctx context.Context, auth bool) error {
	v := "false"
	if auth {
		v = "true"
	}
	return p.store.Set(ctx, KeyAuth, v)
}
