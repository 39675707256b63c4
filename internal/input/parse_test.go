package input

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ipk24chat/client/internal/wire"
)

func TestClient_Input_ParseAuth(t *testing.T) {
	cmd := ParseUserCommand("/auth alice secret Alice")
	require.Equal(t, wire.CommandAuth, cmd.Kind)
	require.Equal(t, "alice", cmd.Username)
	require.Equal(t, "secret", cmd.Secret)
	require.Equal(t, "Alice", cmd.DisplayName)
}

func TestClient_Input_ParseAuthMissingArgs(t *testing.T) {
	cmd := ParseUserCommand("/auth alice secret")
	require.Equal(t, wire.CommandMissing, cmd.Kind)
}

func TestClient_Input_ParseJoinAndRename(t *testing.T) {
	join := ParseUserCommand("/join general")
	require.Equal(t, wire.CommandJoin, join.Kind)
	require.Equal(t, "general", join.Channel)

	rename := ParseUserCommand("/rename Bobby")
	require.Equal(t, wire.CommandRename, rename.Kind)
	require.Equal(t, "Bobby", rename.DisplayName)
}

func TestClient_Input_ParseHelpAndExit(t *testing.T) {
	require.Equal(t, wire.CommandHelp, ParseUserCommand("/help").Kind)
	require.Equal(t, wire.CommandExit, ParseUserCommand("/exit").Kind)
	require.Equal(t, wire.CommandMissing, ParseUserCommand("/help extra").Kind)
}

func TestClient_Input_UnrecognizedSlashIsTreatedAsMessage(t *testing.T) {
	cmd := ParseUserCommand("/unknown thing")
	require.Equal(t, wire.CommandMsg, cmd.Kind)
	require.Equal(t, "/unknown thing", cmd.Contents)
}

func TestClient_Input_PlainLineIsMessage(t *testing.T) {
	cmd := ParseUserCommand("hello everyone")
	require.Equal(t, wire.CommandMsg, cmd.Kind)
	require.Equal(t, "hello everyone", cmd.Contents)
}

func TestClient_Input_ValidateCommand_AuthLimits(t *testing.T) {
	valid := Command{Kind: wire.CommandAuth, Username: "alice", Secret: "s3cr3t", DisplayName: "Alice_A."}
	require.Empty(t, ValidateCommand(valid))

	tooLong := Command{Kind: wire.CommandAuth, Username: "123456789012345678901", Secret: "s3cr3t", DisplayName: "Alice"}
	require.NotEmpty(t, ValidateCommand(tooLong))

	badChars := Command{Kind: wire.CommandAuth, Username: "alice!", Secret: "s3cr3t", DisplayName: "Alice"}
	require.NotEmpty(t, ValidateCommand(badChars))
}

func TestClient_Input_ValidateWord_BoundaryLengths(t *testing.T) {
	exact := "01234567890123456789" // 20 chars
	require.Len(t, exact, MaxUsernameLen)
	require.True(t, ValidateWord(exact, MaxUsernameLen, ClassCredential))

	overByOne := exact + "x"
	require.False(t, ValidateWord(overByOne, MaxUsernameLen, ClassCredential))
}

func TestClient_Input_ValidateWord_CharClasses(t *testing.T) {
	require.True(t, ValidateWord("a-b-C9", 20, ClassCredential))
	require.False(t, ValidateWord("has space", 20, ClassCredential))

	require.True(t, ValidateWord("Alice!", 20, ClassDisplayName))
	require.False(t, ValidateWord("tab\there", 20, ClassDisplayName))

	require.True(t, ValidateWord("hello world!", 20, ClassContents))
}
