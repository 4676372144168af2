package server

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/text/unicode/norm"

	"sharex-server/internal/storage"
)

// unsafeExtensionRunes may not appear in a kept extension. Besides
// separators this covers what breaks network shares or the returned URL.
const unsafeExtensionRunes = `"*:<>?|\/#%`

// generateID returns a random URL-safe id of exactly length runes over
// the alphabet A-Za-z0-9_-.
func generateID(length int) (string, error) {
	return gonanoid.New(length)
}

// extensionOf returns the part of name after its last dot, including the
// dot, or "" if there is none. Extensions that are not safe to put in a
// filename and a URL are dropped rather than rewritten.
func extensionOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return ""
	}
	ext := norm.NFC.String(name[i+1:])
	for _, r := range ext {
		if r == unicode.ReplacementChar || !unicode.IsPrint(r) || unicode.IsSpace(r) ||
			strings.ContainsRune(unsafeExtensionRunes, r) {
			return ""
		}
	}
	return "." + ext
}

// allocateName picks the stored name for an upload of originalName.
//
// If the first candidate is taken one more is drawn and used without
// checking again. Two concurrent uploads can therefore still pick the same
// name; storage.Disk refuses the second create.
func allocateName(ctx context.Context, store storage.Storage, originalName string, length int) (string, error) {
	ext := extensionOf(originalName)

	id, err := generateID(length)
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}

	taken, err := store.Exists(ctx, id+ext)
	if err != nil {
		return "", fmt.Errorf("check %s: %w", id+ext, err)
	}
	if taken {
		if id, err = generateID(length); err != nil {
			return "", fmt.Errorf("generate id: %w", err)
		}
	}

	return id + ext, nil
}
