// Package backup converts application state to and from the portable
// backup document. Two document shapes exist: the full envelope written
// by current versions, and the legacy envelope (a bare state) that older
// versions produced and that is still accepted on import.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"hhsfinance/internal/core"
)

// Version is written to metadata.version of every encoded document.
const Version = "1.1"

// Format tells which envelope a document used.
type Format int

const (
	FormatFull Format = iota + 1
	FormatLegacy
)

func (f Format) String() string {
	switch f {
	case FormatFull:
		return "full"
	case FormatLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

var (
	// ErrMalformed means the document is not an object or matches neither envelope.
	ErrMalformed = errors.New("malformed backup document")
	// ErrInvalidStructure means an envelope was recognised but its lists are not lists.
	ErrInvalidStructure = errors.New("invalid backup structure")
)

// DecodeError describes why a document was rejected.
type DecodeError struct {
	Kind   error
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := e.Kind.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Is(target error) bool {
	return target == e.Kind
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ImportedSettings is the subset of settings found in a document. Fields
// that were absent or of the wrong type stay unset.
type ImportedSettings struct {
	Language core.Language
	Dark     *bool
}

// Apply overlays the imported fields onto s.
func (is *ImportedSettings) Apply(s core.Settings) core.Settings {
	if is == nil {
		return s
	}
	if is.Language != "" {
		s.Language = is.Language
	}
	if is.Dark != nil {
		s.IsDark = *is.Dark
	}
	return s
}

// Snapshot is a successfully decoded document.
type Snapshot struct {
	State    core.AppState
	Settings *ImportedSettings
	Metadata *core.Metadata
	Format   Format
}

type fullEnvelope struct {
	AppState json.RawMessage `json:"appState"`
	Settings json.RawMessage `json:"settings"`
	Metadata json.RawMessage `json:"metadata"`
}

type legacyEnvelope struct {
	Transactions json.RawMessage `json:"transactions"`
	Categories   json.RawMessage `json:"categories"`
	Currency     json.RawMessage `json:"currency"`
}

// Encode builds the full envelope for state and settings at now. Nil lists
// are written as empty ones.
func Encode(state core.AppState, settings core.Settings, now time.Time) core.BackupData {
	state = state.Clone()
	return core.BackupData{
		AppState: state,
		Settings: settings,
		Metadata: core.Metadata{
			Version:   Version,
			Timestamp: now.UTC(),
			Description: fmt.Sprintf("Backup with %d transactions and %d categories.",
				len(state.Transactions), len(state.Categories)),
		},
	}
}

// Marshal renders doc as indented JSON.
func Marshal(doc core.BackupData) ([]byte, error) {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal backup: %w", err)
	}
	return b, nil
}

// FileName is the suggested name for a backup taken at now.
func FileName(now time.Time) string {
	return "HHS_Finance_Backup_" + now.Format("2006-01-02") + ".json"
}

// Decode classifies and validates a backup document. The full envelope is
// tried first, then the legacy one. On error no state is returned.
func Decode(data []byte) (Snapshot, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil || top == nil {
		return Snapshot{}, &DecodeError{Kind: ErrMalformed, Reason: "not a JSON object", Err: err}
	}

	switch {
	case present(top, "appState") && present(top, "metadata"):
		var env fullEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return Snapshot{}, &DecodeError{Kind: ErrMalformed, Err: err}
		}
		return decodeFull(env)
	case present(top, "transactions") && present(top, "categories"):
		var env legacyEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return Snapshot{}, &DecodeError{Kind: ErrMalformed, Err: err}
		}
		state, err := decodeState(env)
		if err != nil {
			return Snapshot{}, err
		}
		return Snapshot{State: state, Format: FormatLegacy}, nil
	default:
		return Snapshot{}, &DecodeError{Kind: ErrMalformed, Reason: "unrecognised envelope"}
	}
}

func decodeFull(env fullEnvelope) (Snapshot, error) {
	var inner legacyEnvelope
	if err := json.Unmarshal(env.AppState, &inner); err != nil {
		return Snapshot{}, &DecodeError{Kind: ErrInvalidStructure, Reason: "appState is not an object", Err: err}
	}
	state, err := decodeState(inner)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		State:    state,
		Settings: decodeSettings(env.Settings),
		Metadata: decodeMetadata(env.Metadata),
		Format:   FormatFull,
	}, nil
}

func decodeState(env legacyEnvelope) (core.AppState, error) {
	if !isArray(env.Transactions) {
		return core.AppState{}, &DecodeError{Kind: ErrInvalidStructure, Reason: "transactions is not a list"}
	}
	if !isArray(env.Categories) {
		return core.AppState{}, &DecodeError{Kind: ErrInvalidStructure, Reason: "categories is not a list"}
	}
	var state core.AppState
	if err := json.Unmarshal(env.Transactions, &state.Transactions); err != nil {
		return core.AppState{}, &DecodeError{Kind: ErrInvalidStructure, Reason: "bad transaction", Err: err}
	}
	if err := json.Unmarshal(env.Categories, &state.Categories); err != nil {
		return core.AppState{}, &DecodeError{Kind: ErrInvalidStructure, Reason: "bad category", Err: err}
	}
	if len(env.Currency) > 0 {
		// a non-string currency is treated as missing
		_ = json.Unmarshal(env.Currency, &state.Currency)
	}
	if state.Transactions == nil {
		state.Transactions = []core.Transaction{}
	}
	if state.Categories == nil {
		state.Categories = []core.Category{}
	}
	return state, nil
}

func decodeSettings(raw json.RawMessage) *ImportedSettings {
	if !isObject(raw) {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	out := &ImportedSettings{}
	var lang string
	if err := json.Unmarshal(fields["lang"], &lang); err == nil && core.Language(lang).Valid() {
		out.Language = core.Language(lang)
	}
	var dark bool
	if err := json.Unmarshal(fields["isDark"], &dark); err == nil {
		out.Dark = &dark
	}
	return out
}

func decodeMetadata(raw json.RawMessage) *core.Metadata {
	if !isObject(raw) {
		return nil
	}
	var md core.Metadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return nil
	}
	return &md
}

func present(m map[string]json.RawMessage, key string) bool {
	v, ok := m[key]
	return ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// ReadFile decodes the backup document stored at path.
func ReadFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read backup file: %w", err)
	}
	return Decode(data)
}

// WriteFile writes doc to path, replacing any previous file.
func WriteFile(path string, doc core.BackupData) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write backup file: %w", err)
	}
	return nil
}
