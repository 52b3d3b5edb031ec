package gameid

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGenerate(t *testing.T) {
	id := Generate()

	if len(id) != 26 {
		t.Errorf("expected 26 characters, got %d", len(id))
	}
	if err := Validate(id); err != nil {
		t.Errorf("generated ID failed validation: %v", err)
	}
}

func TestGenerateUnique(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := Generate()
		if ids[id] {
			t.Errorf("duplicate ID generated: %s", id)
		}
		ids[id] = true
	}
}

func TestGenerateTimeSorted(t *testing.T) {
	var ids []string
	for i := 0; i < 10; i++ {
		ids = append(ids, Generate())
		time.Sleep(time.Millisecond)
	}

	// UUIDv7 ids sort by timestamp
	for i := 1; i < len(ids); i++ {
		if strings.Compare(ids[i-1], ids[i]) >= 0 {
			t.Errorf("IDs not sorted: %s >= %s", ids[i-1], ids[i])
		}
	}
}

func TestEncodeBase32(t *testing.T) {
	var zero [16]byte
	if got := encodeBase32(zero); got != strings.Repeat("0", 26) {
		t.Errorf("zero uuid encoded as %s", got)
	}

	id := uuid.MustParse("0190a8b4-7c3e-7d2a-9b1c-4f5e6a7b8c9d")
	a, b := encodeBase32(id), encodeBase32(id)
	if a != b {
		t.Errorf("encoding not stable: %s != %s", a, b)
	}
	if err := Validate(a); err != nil {
		t.Errorf("encoded uuid failed validation: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "valid ID", id: "01h5n0et5q6mt3v7ms1234abcd"},
		{name: "too short", id: "01h5n0et5q6mt3v7ms123", wantErr: true},
		{name: "too long", id: "01h5n0et5q6mt3v7ms1234abcdef", wantErr: true},
		{name: "invalid character", id: "01h5n0et5q6mt3v7ms1234abci", wantErr: true},
		{name: "uppercase not allowed", id: "01H5N0ET5Q6MT3V7MS1234ABCD", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRoomCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code := RoomCode()
		if err := ValidateRoomCode(code); err != nil {
			t.Errorf("room code %q failed validation: %v", code, err)
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Errorf("expected mostly unique codes, got %d distinct", len(seen))
	}
}

func TestValidateRoomCode(t *testing.T) {
	tests := []struct {
		code    string
		wantErr bool
	}{
		{"3F9A1C", false},
		{NormalizeRoomCode(" 3f9a1c "), false},
		{"3F9A1", true},
		{"3F9A1CD", true},
		{"3F9A1G", true},
		{"3f9a1c", true},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := ValidateRoomCode(tt.code)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRoomCode(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
		})
	}
}

func TestAlphabet(t *testing.T) {
	if len(alphabet) != 32 {
		t.Errorf("alphabet should have 32 characters, got %d", len(alphabet))
	}

	seen := make(map[rune]bool)
	for _, char := range alphabet {
		if seen[char] {
			t.Errorf("duplicate character in alphabet: %c", char)
		}
		seen[char] = true
	}

	for _, char := range "ilou" {
		if strings.ContainsRune(alphabet, char) {
			t.Errorf("alphabet should not contain %c", char)
		}
	}
}
