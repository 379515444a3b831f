// Package ingestion turns resume files into plain text and rejects text too
// short to describe a candidate.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MinTextLength is the shortest resume text accepted for a run.
const MinTextLength = 50

// ErrTextTooShort is returned when extracted text is below MinTextLength.
var ErrTextTooShort = errors.New("resume text is too short")

var pdfToText = func(ctx context.Context, path string) ([]byte, error) {
	return exec.CommandContext(ctx, "pdftotext", "-layout", path, "-").Output()
}

// ReadResume returns the text of a .txt, .md or .pdf resume.
func ReadResume(ctx context.Context, path string) (string, error) {
	var (
		data []byte
		err  error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".md", "":
		data, err = os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read resume %s: %w", path, err)
		}
		if !utf8.Valid(data) {
			return "", fmt.Errorf("resume %s is not valid UTF-8 text", path)
		}
	case ".pdf":
		data, err = pdfToText(ctx, path)
		if err != nil {
			return "", fmt.Errorf("pdf extraction requires pdftotext (poppler-utils) for %s: %w", path, err)
		}
	default:
		return "", fmt.Errorf("unsupported resume file type %q", ext)
	}

	text := strings.TrimSpace(string(data))
	if err := CheckText(text); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return text, nil
}

// CheckText rejects text shorter than MinTextLength characters.
func CheckText(text string) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(text)); n < MinTextLength {
		return fmt.Errorf("%w: %d characters, need at least %d", ErrTextTooShort, n, MinTextLength)
	}
	return nil
}
