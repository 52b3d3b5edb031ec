// Package gameid generates session ids and room codes.
package gameid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Base32 alphabet used by TypeID (Crockford's base32)
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// RoomCodeLength is the length of a room code.
const RoomCodeLength = 6

// Generate returns a session id: a UUIDv7 encoded as a 26-character
// base32 string, so ids sort by creation time.
func Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return encodeBase32(id)
}

// RoomCode returns a short uppercase code from a random UUID, e.g. "3F9A1C".
func RoomCode() string {
	return strings.ToUpper(uuid.NewString()[:RoomCodeLength])
}

// NormalizeRoomCode upper-cases and trims user input.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateRoomCode checks a normalized room code.
func ValidateRoomCode(code string) error {
	if len(code) != RoomCodeLength {
		return fmt.Errorf("room code must be %d characters, got %d", RoomCodeLength, len(code))
	}
	for i, c := range code {
		if !(c >= '0' && c <= '9') && !(c >= 'A' && c <= 'F') {
			return fmt.Errorf("invalid character %c at position %d", c, i)
		}
	}
	return nil
}

// encodeBase32 encodes 128 bits as 26 base32 characters, 5 bits at a time
// with two zero bits of padding at the end.
func encodeBase32(data [16]byte) string {
	result := make([]byte, 26)
	for i := 0; i < 26; i++ {
		bitOffset := i * 5
		byteIndex := bitOffset / 8
		bitIndex := bitOffset % 8

		var value uint8
		if byteIndex < 16 {
			if bitIndex <= 3 {
				value = (data[byteIndex] >> (3 - bitIndex)) & 0x1f
			} else {
				value = (data[byteIndex] << (bitIndex - 3)) & 0x1f
				if byteIndex+1 < 16 {
					value |= data[byteIndex+1] >> (11 - bitIndex)
				}
			}
		}
		result[i] = alphabet[value]
	}
	return string(result)
}

// Validate checks if a session id is valid (26 characters, valid base32)
func Validate(id string) error {
	if len(id) != 26 {
		return fmt.Errorf("id must be exactly 26 characters, got %d", len(id))
	}
	for i, char := range id {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}
	return nil
}
