// Package textfile loads text files as line sequences and writes them
// back atomically.
package textfile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const maxLineCount = 100000

var (
	// ErrNotRegular is returned when the target is not a regular file.
	ErrNotRegular = errors.New("not a regular file")
	// ErrTooLarge is returned when the target exceeds the size limit.
	ErrTooLarge = errors.New("file too large")
	// ErrNotUTF8 is returned when the target is not valid UTF-8.
	ErrNotUTF8 = errors.New("file is not valid UTF-8")
	// ErrTooManyLines is returned when the target exceeds the line limit.
	ErrTooManyLines = errors.New("file exceeds line limit")
)

// Document is a text file held as lines. The terminator flavor and the
// presence of a final newline are recorded at load time, so a document
// rendered without edits reproduces the original bytes exactly.
type Document struct {
	Path            string
	Lines           []string
	EOL             string
	TrailingNewline bool
	Mode            fs.FileMode

	raw []byte
}

// Load reads the file at path into a Document. The target must be a
// regular file no larger than maxSize bytes containing valid UTF-8.
// A maxSize of 0 disables the size check.
func Load(path string, maxSize int64) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotRegular)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("%s: %d bytes: %w", path, info.Size(), ErrTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotUTF8)
	}

	doc := &Document{
		Path: path,
		EOL:  detectEOL(data),
		Mode: info.Mode().Perm(),
		raw:  data,
	}
	doc.Lines, doc.TrailingNewline = splitLines(data)
	if len(doc.Lines) > maxLineCount {
		return nil, fmt.Errorf("%s: %w", path, ErrTooManyLines)
	}
	return doc, nil
}

// Bytes returns the file content as read from disk.
func (d *Document) Bytes() []byte { return d.raw }

// Render joins the lines using the recorded terminator flavor and
// restores the final newline when the original had one.
func (d *Document) Render() []byte {
	if len(d.Lines) == 0 {
		return []byte{}
	}
	s := strings.Join(d.Lines, d.EOL)
	if d.TrailingNewline {
		s += d.EOL
	}
	return []byte(s)
}

// detectEOL picks the terminator to render with. A single CRLF sequence
// anywhere makes the whole file CRLF; bare CR is treated as LF.
func detectEOL(data []byte) string {
	if bytes.Contains(data, []byte("\r\n")) {
		return "\r\n"
	}
	return "\n"
}

// splitLines splits content into lines. CRLF and bare CR are normalized
// to LF first. A final terminator does not produce an extra empty line;
// its presence is returned separately.
func splitLines(data []byte) ([]string, bool) {
	if len(data) == 0 {
		return []string{}, false
	}
	s := string(data)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	trailing := strings.HasSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	if trailing {
		lines = lines[:len(lines)-1]
	}
	return lines, trailing
}

// WriteAtomic replaces the file at path with content. The content lands
// in a temp file in the same directory and is renamed over the target,
// so a failure along the way leaves the original untouched.
func WriteAtomic(path string, content []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmp.Name(), path, err)
	}
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("set permissions on %s: %w", path, err)
	}
	return nil
}
