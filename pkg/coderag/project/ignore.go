package project

import (
	"bytes"
	"os"
	"path/filepath"
)

// ignoreEntry is the literal line appended to a project's ignore file.
const ignoreEntry = ".coderag/"

// AugmentIgnoreFile idempotently appends ".coderag/" to root's ignore file
// so a project's local vector store doesn't get committed. This is plain
// boundary I/O — appending one literal line and checking whether it's
// already present — not a pattern-matching concern, so it stays on the
// standard library rather than pulling in a gitignore-matching library
// (see DESIGN.md's dropped-dependency note on go-git).
//
// If the ignore file doesn't exist, it is created. If it exists and
// already contains the entry (as a whole line, ignoring surrounding
// whitespace), nothing is written. Existing content and line endings are
// preserved; CRLF files get the entry appended with a CRLF terminator.
func AugmentIgnoreFile(root string) error {
	path := filepath.Join(root, IgnoreFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return os.WriteFile(path, []byte(ignoreEntry+"\n"), 0o644)
		}
		return err
	}

	if hasIgnoreLine(data, ignoreEntry) {
		return nil
	}

	newline := []byte("\n")
	if bytes.Contains(data, []byte("\r\n")) {
		newline = []byte("\r\n")
	}

	out := data
	if len(out) > 0 && !bytes.HasSuffix(out, newline) && !bytes.HasSuffix(out, []byte("\n")) {
		out = append(out, newline...)
	}
	out = append(out, []byte(ignoreEntry)...)
	out = append(out, newline...)

	return os.WriteFile(path, out, 0o644)
}

// hasIgnoreLine reports whether data contains entry as a standalone line,
// tolerant of both LF and CRLF terminators and surrounding whitespace.
func hasIgnoreLine(data []byte, entry string) bool {
	for _, raw := range bytes.Split(data, []byte("\n")) {
		line := bytes.TrimRight(raw, "\r")
		line = bytes.TrimSpace(line)
		if string(line) == entry || string(line) == ".coderag" {
			return true
		}
	}
	return false
}
