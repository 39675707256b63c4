// Package input implements the tokenizer and validator for locally-typed
// chat commands.
package input

// CharClass selects which per-character rule ValidateWord applies.
type CharClass uint8

const (
	// ClassCredential allows [A-Za-z0-9-], used for username/channel/secret.
	ClassCredential CharClass = iota
	// ClassDisplayName allows printable 0x21..0x7E.
	ClassDisplayName
	// ClassContents allows printable 0x20..0x7E (space included).
	ClassContents
)

// Length limits, carried as-is from the reference client.
const (
	MaxUsernameLen    = 20
	MaxChannelLen     = 128
	MaxSecretLen      = 20
	MaxDisplayNameLen = 20
	MaxContentsLen    = 14000
)

// ValidateWord checks s against maxLen and the per-character rule for
// class, returning false on the first violation.
func ValidateWord(s string, maxLen int, class CharClass) bool {
	if len(s) > maxLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !charOK(s[i], class) {
			return false
		}
	}
	return true
}

func charOK(c byte, class CharClass) bool {
	switch class {
	case ClassCredential:
		return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-'
	case ClassDisplayName:
		return c >= 0x21 && c <= 0x7E
	case ClassContents:
		return c >= 0x20 && c <= 0x7E
	}
	return false
}
