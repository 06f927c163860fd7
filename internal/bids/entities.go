package bids

import (
	"path/filepath"
	"strings"
)

// Entities is the decomposition of a BIDS filename into its key-value
// entities plus the trailing suffix and extension. Entities absent from the
// name are left empty.
type Entities struct {
	Subject string
	Session string
	Task    string
	Run     string
	Space   string
	Desc    string

	// Suffix is the final underscore-separated segment (bold, mask,
	// events, ...), Ext the full extension including a compression suffix.
	Suffix string
	Ext    string
}

// ParseEntities decomposes a BIDS filename. Unknown entities are ignored;
// a name without any underscore is treated as bare suffix.
func ParseEntities(name string) Entities {
	base := filepath.Base(name)

	var e Entities
	e.Ext = extension(base)
	stem := strings.TrimSuffix(base, e.Ext)

	parts := strings.Split(stem, "_")
	last := parts[len(parts)-1]
	if !strings.Contains(last, "-") {
		e.Suffix = last
		parts = parts[:len(parts)-1]
	}

	for _, part := range parts {
		key, value, ok := strings.Cut(part, "-")
		if !ok {
			continue
		}
		switch key {
		case "sub":
			e.Subject = value
		case "ses":
			e.Session = value
		case "task":
			e.Task = value
		case "run":
			e.Run = value
		case "space":
			e.Space = value
		case "desc":
			e.Desc = value
		}
	}
	return e
}

// extension returns the file extension, keeping double extensions like
// .nii.gz intact.
func extension(base string) string {
	ext := filepath.Ext(base)
	if ext == ".gz" {
		ext = filepath.Ext(strings.TrimSuffix(base, ext)) + ext
	}
	return ext
}
