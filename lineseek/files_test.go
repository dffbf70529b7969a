package lineseek

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// writeFile writes data to name inside a fresh test temp dir and returns
// the full path.
func writeFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeLines writes lines, each followed by term, and returns the path.
func writeLines(t testing.TB, name string, lines []string, term string) string {
	t.Helper()
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString(term)
	}
	return writeFile(t, name, []byte(b.String()))
}

// writeUniform writes count lines of exactly width bytes each, terminator
// included, and returns the path.
func writeUniform(t testing.TB, name string, count, width int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := bufio.NewWriterSize(f, 1<<20)
	for i := 0; i < count; i++ {
		if _, err := w.WriteString(uniformLine(i, width)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

// uniformLine returns line i of a writeUniform file: the zero-padded line
// number, truncated to its low digits, then "\n".
func uniformLine(i, width int) string {
	body := width - 1
	digits := strings.Repeat("0", body) + strconv.Itoa(i)
	return digits[len(digits)-body:] + "\n"
}
