package domain

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one message in a conversation, in the role/parts shape the LLM
// history expects.
type Turn struct {
	Role  Role     `json:"role"`
	Parts []string `json:"parts"`
}

// UnmarshalJSON accepts parts either as plain strings or as Gemini-style
// {"text": ...} objects.
func (t *Turn) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role  Role              `json:"role"`
		Parts []json.RawMessage `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parts := make([]string, 0, len(raw.Parts))
	for i, p := range raw.Parts {
		if bytes.HasPrefix(bytes.TrimSpace(p), []byte(`"`)) {
			var s string
			if err := json.Unmarshal(p, &s); err != nil {
				return fmt.Errorf("parts[%d]: %w", i, err)
			}
			parts = append(parts, s)
			continue
		}
		var obj struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(p, &obj); err != nil {
			return fmt.Errorf("parts[%d]: expected a string or an object with text: %w", i, err)
		}
		parts = append(parts, obj.Text)
	}
	t.Role, t.Parts = raw.Role, parts
	return nil
}

// NewTurn builds a single-part turn.
func NewTurn(role Role, text string) Turn {
	return Turn{Role: role, Parts: []string{text}}
}

// Text joins the parts of the turn.
func (t Turn) Text() string {
	return strings.Join(t.Parts, "\n")
}

// StoredTurn is a Turn persisted in a session.
type StoredTurn struct {
	ID        string
	SessionID string
	Seq       int
	Turn      Turn
	CreatedAt time.Time
}
