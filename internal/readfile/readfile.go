package readfile

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// maxSize bounds inputs read for tokenization and explanation text.
const maxSize = 4 << 20

// ReadNormalized returns the file content with CRLF line endings folded to LF.
func ReadNormalized(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > maxSize {
		return "", fmt.Errorf("%s: file too large (%d bytes)", path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s: not valid UTF-8", path)
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}
