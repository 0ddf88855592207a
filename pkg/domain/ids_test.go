package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "correspondence/pkg/domain-errors"
)

// TestParseID_Invariants validates that ids must be non-empty, well-formed,
// non-nil UUIDs.
func TestParseID_Invariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty string", "", true},
		{"whitespace only", "   ", true},
		{"nil uuid", uuid.Nil.String(), true},
		{"sql injection attempt", "'; DROP TABLE communications;--", true},
		{"null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"oversized input", strings.Repeat("a", 1000), true},
		{"uppercase valid uuid", "550E8400-E29B-41D4-A716-446655440000", false},
		{"valid uuid", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCommunicationID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	valid := uuid.New().String()

	parsers := map[string]func(string) error{
		"account":       func(s string) error { _, err := ParseAccountID(s); return err },
		"dependency":    func(s string) error { _, err := ParseDependencyID(s); return err },
		"institution":   func(s string) error { _, err := ParseInstitutionID(s); return err },
		"officer":       func(s string) error { _, err := ParseOfficerID(s); return err },
		"procedure":     func(s string) error { _, err := ParseProcedureID(s); return err },
		"communication": func(s string) error { _, err := ParseCommunicationID(s); return err },
		"archive":       func(s string) error { _, err := ParseArchiveID(s); return err },
		"folder":        func(s string) error { _, err := ParseFolderID(s); return err },
	}

	for name, parse := range parsers {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, parse(valid))
			require.Error(t, parse("invalid"))
			require.Error(t, parse(uuid.Nil.String()))
		})
	}
}

func TestIDsEncodeAsPlainStrings(t *testing.T) {
	procedureID := NewProcedureID()

	body, err := json.Marshal(map[string]ProcedureID{"procedureId": procedureID})
	require.NoError(t, err)
	assert.JSONEq(t, `{"procedureId":"`+procedureID.String()+`"}`, string(body))

	var decoded struct {
		ProcedureID ProcedureID `json:"procedureId"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, procedureID, decoded.ProcedureID)
	assert.False(t, decoded.ProcedureID.IsNil())
}
