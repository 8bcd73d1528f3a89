package process

import (
	"errors"
	"path/filepath"
	"strings"
)

// errUnsafeBatchArgument is returned for arguments that cmd.exe cannot carry
// verbatim to a batch script.
var errUnsafeBatchArgument = errors.New("argument contains a line break and cannot be passed to a batch script")

// QuoteWindowsArg quotes s so that CommandLineToArgvW, and therefore the C
// runtime of the child, reads it back as exactly one argument equal to s.
// Backslashes are literal unless they precede a double quote.
func QuoteWindowsArg(s string) string {
	if s == "" {
		return `""`
	}
	if !strings.ContainsAny(s, " \t\n\v\"") {
		return s
	}

	var b strings.Builder
	b.WriteByte('"')
	backslashes := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			backslashes++
		case '"':
			b.WriteString(strings.Repeat(`\`, backslashes*2+1))
			b.WriteByte('"')
			backslashes = 0
		default:
			if backslashes > 0 {
				b.WriteString(strings.Repeat(`\`, backslashes))
				backslashes = 0
			}
			b.WriteByte(c)
		}
	}
	// Backslashes before the closing quote must be doubled.
	b.WriteString(strings.Repeat(`\`, backslashes*2))
	b.WriteByte('"')
	return b.String()
}

// WindowsCommandLine joins an executable and its arguments into a
// CreateProcess command line.
func WindowsCommandLine(executable string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, QuoteWindowsArg(executable))
	for _, a := range args {
		parts = append(parts, QuoteWindowsArg(a))
	}
	return strings.Join(parts, " ")
}

// IsBatchFile reports whether path names a .bat or .cmd script, which
// Windows can only run through cmd.exe.
func IsBatchFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bat", ".cmd":
		return true
	default:
		return false
	}
}

// quoteBatchArg wraps s in double quotes for cmd.exe. Inside quotes cmd.exe
// leaves & | < > ^ ; and ' alone; embedded quotes are doubled so the quote
// state stays balanced, and % is rewritten into an expansion of an empty
// substring so that no variable is ever substituted.
func quoteBatchArg(s string) (string, error) {
	if strings.ContainsAny(s, "\r\n") {
		return "", errUnsafeBatchArgument
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`""`)
		case '%':
			b.WriteString(`%%cd:~,%`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String(), nil
}

// BatchCommandLine builds the command line that runs script with args
// through interpreter (normally %ComSpec%). /s makes cmd.exe strip only the
// outermost pair of quotes, /d skips AutoRun hooks.
func BatchCommandLine(interpreter, script string, args []string) (string, error) {
	parts := make([]string, 0, len(args)+1)
	quoted, err := quoteBatchArg(script)
	if err != nil {
		return "", err
	}
	parts = append(parts, quoted)
	for _, a := range args {
		q, err := quoteBatchArg(a)
		if err != nil {
			return "", err
		}
		parts = append(parts, q)
	}
	return QuoteWindowsArg(interpreter) + ` /d /s /c "` + strings.Join(parts, " ") + `"`, nil
}
