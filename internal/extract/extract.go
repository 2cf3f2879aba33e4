// Package extract turns uploaded note files into plain text.
//
// Two formats are supported: PDF (parsed with github.com/ledongthuc/pdf) and
// plain text (read as UTF-8). The format is chosen by file extension; callers
// should check Supported before staging a file at all.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrUnsupportedType is returned for extensions outside the allow-list.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrNoText is returned when a file parses but yields no text, e.g. a
	// scanned PDF without a text layer.
	ErrNoText = errors.New("no extractable text")
)

// Kind is a supported input format.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindText Kind = "txt"
)

// Error wraps an extraction failure with the name of the file it concerns.
type Error struct {
	FileName string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract %s: %v", e.FileName, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf maps a file name to its Kind by extension (case-insensitive).
func KindOf(fileName string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return KindPDF, nil
	case ".txt":
		return KindText, nil
	default:
		return "", ErrUnsupportedType
	}
}

// Supported reports whether fileName has an allowed extension.
func Supported(fileName string) bool {
	_, err := KindOf(fileName)
	return err == nil
}

// File extracts the text of the file at path. fileName is the client's name
// for it and decides the format; path is usually a temp file with a random
// name.
func File(ctx context.Context, path, fileName string) (string, error) {
	kind, err := KindOf(fileName)
	if err != nil {
		return "", &Error{FileName: fileName, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return "", &Error{FileName: fileName, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", &Error{FileName: fileName, Err: err}
	}
	defer f.Close()

	var text string
	switch kind {
	case KindPDF:
		st, serr := f.Stat()
		if serr != nil {
			return "", &Error{FileName: fileName, Err: serr}
		}
		text, err = PDF(f, st.Size())
	case KindText:
		text, err = Text(f)
	}
	if err != nil {
		return "", &Error{FileName: fileName, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &Error{FileName: fileName, Err: ErrNoText}
	}
	return text, nil
}

// PDF extracts the plain text layer of a PDF document.
//
// The parser panics on some malformed inputs; those panics are returned as
// errors.
func PDF(r io.ReaderAt, size int64) (text string, err error) {
	if size == 0 {
		return "", ErrNoText
	}
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return normalize(buf.String()), nil
}

// Text reads r as UTF-8. Invalid sequences are replaced, a leading byte order
// mark is dropped and line endings become "\n".
func Text(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return normalize(string(b)), nil
}

func normalize(s string) string {
	s = strings.ToValidUTF8(s, "\ufffd")
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return norm.NFC.String(s)
}
