package input

import (
	"strings"

	"github.com/ipk24chat/client/internal/wire"
)

// Command is the locally-parsed form of one user input line, prior to
// wire encoding. Unlike wire.ProtocolRecord, it owns its strings outright
// since it is built once per line and handed off immediately.
type Command struct {
	Kind wire.CommandKind

	Username    string
	Secret      string
	DisplayName string
	Channel     string
	Contents    string
}

// ParseUserCommand scans the first whitespace-delimited token of line and
// classifies it. Anything that isn't a recognized slash command becomes a
// CommandMsg carrying the whole line as Contents. Missing required tokens
// for a recognized command yield CommandMissing.
func ParseUserCommand(line string) Command {
	if !strings.HasPrefix(line, "/") {
		return Command{Kind: wire.CommandMsg, Contents: line}
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{Kind: wire.CommandMsg, Contents: line}
	}

	switch fields[0] {
	case "/auth":
		if len(fields) != 4 {
			return Command{Kind: wire.CommandMissing}
		}
		return Command{Kind: wire.CommandAuth, Username: fields[1], Secret: fields[2], DisplayName: fields[3]}

	case "/join":
		if len(fields) != 2 {
			return Command{Kind: wire.CommandMissing}
		}
		return Command{Kind: wire.CommandJoin, Channel: fields[1]}

	case "/rename":
		if len(fields) != 2 {
			return Command{Kind: wire.CommandMissing}
		}
		return Command{Kind: wire.CommandRename, DisplayName: fields[1]}

	case "/help":
		if len(fields) != 1 {
			return Command{Kind: wire.CommandMissing}
		}
		return Command{Kind: wire.CommandHelp}

	case "/exit":
		if len(fields) != 1 {
			return Command{Kind: wire.CommandMissing}
		}
		return Command{Kind: wire.CommandExit}

	default:
		return Command{Kind: wire.CommandMsg, Contents: line}
	}
}

// ValidateCommand applies per-field length/character-class rules to c and
// returns a human-readable reason on failure, or "" if c is well-formed.
// A MSG command's Contents is validated against MaxContentsLen/ClassContents;
// on failure the caller is responsible for printing the reason and
// suppressing the send.
func ValidateCommand(c Command) (reason string) {
	switch c.Kind {
	case wire.CommandAuth:
		if !ValidateWord(c.Username, MaxUsernameLen, ClassCredential) {
			return "invalid username"
		}
		if !ValidateWord(c.Secret, MaxSecretLen, ClassCredential) {
			return "invalid secret"
		}
		if !ValidateWord(c.DisplayName, MaxDisplayNameLen, ClassDisplayName) {
			return "invalid display name"
		}
	case wire.CommandJoin:
		if !ValidateWord(c.Channel, MaxChannelLen, ClassCredential) {
			return "invalid channel id"
		}
	case wire.CommandRename:
		if !ValidateWord(c.DisplayName, MaxDisplayNameLen, ClassDisplayName) {
			return "invalid display name"
		}
	case wire.CommandMsg:
		if !ValidateWord(c.Contents, MaxContentsLen, ClassContents) {
			return "invalid message contents"
		}
	}
	return ""
}
