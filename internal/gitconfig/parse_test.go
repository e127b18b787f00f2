package gitconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `# global comment
[core]
	repositoryformatversion = 0
	filemode = true
	bare = false
[remote "origin"]
	url = git@github.com:me/repo.git
	fetch = +refs/heads/*:refs/remotes/origin/*
[user]
	name = Old Name
	email = old@example.com ; inline comment
	signingkey = ABCDEF
[branch "main"]
	remote = origin
`

func TestParse_RoundTripsUnchanged(t *testing.T) {
	inputs := []string{
		sample,
		"",
		"[core]\n\tbare",
		"\r\n[core]\r\n\tbare = false\r\n",
		"[alias]\n\tlg = log --graph \\\n\t\t--oneline\n",
	}
	for _, in := range inputs {
		f, err := Parse([]byte(in))
		require.NoError(t, err, in)
		assert.Equal(t, in, string(f.Bytes()))
	}
}

func TestParse_Values(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	tests := []struct {
		section, sub, key, want string
	}{
		{"core", "", "filemode", "true"},
		{"remote", "origin", "url", "git@github.com:me/repo.git"},
		{"user", "", "email", "old@example.com"},
		{"USER", "", "Name", "Old Name"},
		{"branch", "main", "remote", "origin"},
	}
	for _, tt := range tests {
		got, ok := f.Get(tt.section, tt.sub, tt.key)
		assert.True(t, ok, "%s.%s.%s", tt.section, tt.sub, tt.key)
		assert.Equal(t, tt.want, got)
	}

	_, ok := f.Get("remote", "ORIGIN", "url")
	assert.False(t, ok, "subsections are case sensitive")
}

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{" plain", "plain"},
		{" trailing   ", "trailing"},
		{` "  quoted  " `, "  quoted  "},
		{` a "b # c" d # comment`, "a b # c d"},
		{` tab\there`, "tab\there"},
		{` esc \"q\" \\ x`, `esc "q" \ x`},
		{" inner  spaces kept", "inner  spaces kept"},
		{" ; all comment", ""},
		{" joined \\\nline", "joined line"},
	}
	for _, tt := range tests {
		got, err := decodeValue(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParse_LastValueWins(t *testing.T) {
	f, err := Parse([]byte("[user]\n\tname = a\n[user]\n\tname = b\n"))
	require.NoError(t, err)
	got, _ := f.Get("user", "", "name")
	assert.Equal(t, "b", got)
}

func TestParse_LegacySubsection(t *testing.T) {
	f, err := Parse([]byte("[remote.Origin]\n\turl = x\n"))
	require.NoError(t, err)
	got, ok := f.Get("remote", "origin", "url")
	assert.True(t, ok)
	assert.Equal(t, "x", got)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"key before section", "name = x\n[user]\n", 1},
		{"unterminated header", "[user\n\tname = x\n", 1},
		{"bad key after header", "[user] 9junk = x\n", 1},
		{"bad section name", "[us_er]\n", 1},
		{"unquoted subsection", "[remote origin]\n", 1},
		{"bad key", "[user]\n\t9name = x\n", 2},
		{"missing equals", "[user]\n\tname x\n", 2},
		{"unterminated quote", "[user]\n\tname = \"x\n", 2},
		{"unknown escape", "[user]\n\tname = \\q\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

func TestParse_HeaderComment(t *testing.T) {
	f, err := Parse([]byte("[user] # mine\n\tname = x\n"))
	require.NoError(t, err)
	got, _ := f.Get("user", "", "name")
	assert.Equal(t, "x", got)
}

func TestParse_EntryOnHeaderLine(t *testing.T) {
	input := "[core] bare = false\n\tfilemode = true\n[user]\tname = Old # inline\n\temail = old@x.com\n"
	f, err := Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, input, string(f.Bytes()))

	got, ok := f.Get("core", "", "bare")
	assert.True(t, ok)
	assert.Equal(t, "false", got)
	got, _ = f.Get("user", "", "name")
	assert.Equal(t, "Old", got)

	f.Set("user", "", "name", "New")
	f.Set("user", "", "email", "new@x.com")
	assert.Equal(t,
		"[core] bare = false\n\tfilemode = true\n[user]\tname = New\n\temail = new@x.com\n",
		string(f.Bytes()))
}

func TestSet_DropsDuplicateOnHeaderLine(t *testing.T) {
	f, err := Parse([]byte("[user]\n\tname = A\n[user] name = B\n\temail = b@x.com\n"))
	require.NoError(t, err)

	f.Set("user", "", "name", "C")
	assert.Equal(t, "[user]\n\tname = C\n[user]\n\temail = b@x.com\n", string(f.Bytes()))
	got, _ := f.Get("user", "", "name")
	assert.Equal(t, "C", got)
}

func TestSet_ReplacesInPlaceKeepingOtherKeys(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	f.Set("user", "", "name", "New Name")
	f.Set("user", "", "email", "new@example.com")

	want := `# global comment
[core]
	repositoryformatversion = 0
	filemode = true
	bare = false
[remote "origin"]
	url = git@github.com:me/repo.git
	fetch = +refs/heads/*:refs/remotes/origin/*
[user]
	name = New Name
	email = new@example.com
	signingkey = ABCDEF
[branch "main"]
	remote = origin
`
	assert.Equal(t, want, string(f.Bytes()))
}

func TestSet_DropsLaterDuplicates(t *testing.T) {
	f, err := Parse([]byte("[user]\n  name = a\n  name = b\n[core]\n[user]\n  name = c\n"))
	require.NoError(t, err)

	f.Set("user", "", "name", "z")
	assert.Equal(t, "[user]\n  name = z\n[core]\n[user]\n", string(f.Bytes()))
}

func TestSet_InsertsAfterLastEntryOfSection(t *testing.T) {
	f, err := Parse([]byte("[user]\n\tsigningkey = K\n\n# next\n[core]\n\tbare = false\n"))
	require.NoError(t, err)

	f.Set("user", "", "email", "e@x")
	assert.Equal(t, "[user]\n\tsigningkey = K\n\temail = e@x\n\n# next\n[core]\n\tbare = false\n", string(f.Bytes()))
}

func TestSet_EmptySectionAtEOFWithoutNewline(t *testing.T) {
	f, err := Parse([]byte("[core]\n\tbare = false\n[user]"))
	require.NoError(t, err)

	f.Set("user", "", "name", "n")
	assert.Equal(t, "[core]\n\tbare = false\n[user]\n\tname = n\n", string(f.Bytes()))
}

func TestSet_AppendsSection(t *testing.T) {
	f, err := Parse([]byte("[core]\n\tbare = false"))
	require.NoError(t, err)

	f.Set("user", "", "name", "n")
	f.Set("remote", `we"ird`, "url", "u")
	assert.Equal(t, "[core]\n\tbare = false\n[user]\n\tname = n\n[remote \"we\\\"ird\"]\n\turl = u\n", string(f.Bytes()))

	reparsed, err := Parse(f.Bytes())
	require.NoError(t, err)
	got, ok := reparsed.Get("remote", `we"ird`, "url")
	assert.True(t, ok)
	assert.Equal(t, "u", got)
}

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jane Doe", "Jane Doe"},
		{" padded ", `" padded "`},
		{"a#b", `"a#b"`},
		{`back\slash`, `back\\slash`},
		{`say "hi"`, `say \"hi\"`},
	}
	for _, tt := range tests {
		got := encodeValue(tt.in)
		assert.Equal(t, tt.want, got)

		decoded, err := decodeValue(" " + got)
		require.NoError(t, err)
		assert.Equal(t, tt.in, decoded)
	}
}

func TestSubsections(t *testing.T) {
	f, err := Parse([]byte(sample + "[remote \"upstream\"]\n\turl = u\n[remote \"origin\"]\n\tpushurl = p\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"origin", "upstream"}, f.Subsections("remote"))
	assert.True(t, f.HasSection("branch", "main"))
	assert.False(t, f.HasSection("branch", "dev"))
}
