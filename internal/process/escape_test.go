package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteWindowsArg(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", `""`},
		{"plain", "plain"},
		{"white space", `"white space"`},
		{`c:\path`, `c:\path`},
		{`c:\my path\`, `"c:\my path\\"`},
		{`say "hi"`, `"say \"hi\""`},
		{`a\"b`, `"a\\\"b"`},
		{"tab\there", "\"tab\there\""},
		{"amper&sand", "amper&sand"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteWindowsArg(tt.in))
		})
	}
}

func TestWindowsCommandLine(t *testing.T) {
	got := WindowsCommandLine(`C:\Program Files\app.exe`, []string{"-v", "two words", ""})
	assert.Equal(t, `"C:\Program Files\app.exe" -v "two words" ""`, got)
}

func TestIsBatchFile(t *testing.T) {
	assert.True(t, IsBatchFile(`C:\bin\start.bat`))
	assert.True(t, IsBatchFile(`start.CMD`))
	assert.False(t, IsBatchFile(`start.exe`))
	assert.False(t, IsBatchFile(`start`))
	assert.False(t, IsBatchFile(`start.bat.txt`))
}

func TestQuoteBatchArg(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", `""`},
		{"white space", `"white space"`},
		{"amper&sand", `"amper&sand"`},
		{"<foo>", `"<foo>"`},
		{"a|b^c", `"a|b^c"`},
		{"it's", `"it's"`},
		{`say "hi"`, `"say ""hi"""`},
		{"%PATH%", `"%%cd:~,%PATH%%cd:~,%"`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := quoteBatchArg(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := quoteBatchArg("two\nlines")
	assert.ErrorIs(t, err, errUnsafeBatchArgument)
}

func TestBatchCommandLine(t *testing.T) {
	got, err := BatchCommandLine(`C:\Windows\System32\cmd.exe`, `C:\app\run server.bat`, []string{"amper&sand", "x"})
	require.NoError(t, err)
	assert.Equal(t, `C:\Windows\System32\cmd.exe /d /s /c ""C:\app\run server.bat" "amper&sand" "x""`, got)

	_, err = BatchCommandLine(`cmd.exe`, `run.bat`, []string{"a\r\nb"})
	assert.ErrorIs(t, err, errUnsafeBatchArgument)
}
