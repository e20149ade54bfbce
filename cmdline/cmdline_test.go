package cmdline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestEncode(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"single", []string{"cmd.exe"}, `cmd.exe`},
		{"joined with spaces", []string{"a", "b", "c"}, `a b c`},
		{"empty arg is two quotes", []string{""}, `""`},
		{"space forces quoting", []string{"hello world"}, `"hello world"`},
		{"tab forces quoting", []string{"hello\tworld"}, "\"hello\tworld\""},
		{"plain backslashes untouched", []string{`back\slash`}, `back\slash`},
		{"trailing backslash unquoted", []string{`ends\`}, `ends\`},
		{"trailing backslash quoted is doubled", []string{`ends \`}, `"ends \\"`},
		{"embedded quote", []string{`asdf"qwer`}, `asdf\"qwer`},
		{"leading and trailing quotes", []string{`"asdf"`}, `\"asdf\"`},
		{"quote after backslash", []string{`\"`}, `\\\"`},
		{"quote inside quoted arg", []string{`asdf" "qwer`}, `"asdf\" \"qwer"`},
		{"mixed vector", []string{"a b", `c"d`, ""}, `"a b" c\"d ""`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(c.want, Encode(c.args))
		})
	}
}

func TestDecode(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		name string
		line string
		want []string
	}{
		{"simple", `a b c`, []string{"a", "b", "c"}},
		{"collapsed separators", "a  \t b", []string{"a", "b"}},
		{"quoted section spans spaces", `a"b c"d`, []string{"ab cd"}},
		{"empty quoted arg", `""`, []string{""}},
		{"double double quote", `"a""b"`, []string{`a"b`}},
		{"odd backslash run", `\\\" x`, []string{`\"`, "x"}},
		{"even backslash run", `\\"a b"`, []string{`\a b`}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(c.want, Decode(c.line))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	vectors := [][]string{
		{"cmd.exe"},
		{"cmd.exe", "/c", "echo", "hello"},
		{""},
		{"", "", ""},
		{"with space", "with\ttab"},
		{`quote"inside`, `"wrapped"`},
		{`trailing\`, `trailing \`, `multi\\\`},
		{`\\server\share\path`, `C:\Program Files\app.exe`},
		{`all "of it" together\`, "", `\"`, "plain"},
		{`malicious argument"&whoami`},
	}

	for _, argv := range vectors {
		got := Decode(Encode(argv))
		if diff := cmp.Diff(argv, got); diff != "" {
			t.Errorf("round trip mismatch for %q (-want +got):\n%s", argv, diff)
		}
	}
}
