package strm

import (
	"os"

	"strmhook/internal/fileutil"
	"strmhook/internal/services"
)

// Outcome reports what a write did.
type Outcome int

const (
	Created Outcome = iota + 1
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Writer creates pointer files. An existing file is never modified.
type Writer struct {
	mode os.FileMode
}

// NewWriter returns a writer producing world-readable pointer files.
func NewWriter() *Writer {
	return &Writer{mode: 0o644}
}

// Write stores url as the entire content of localPath. Concurrent writers to
// the same path race on an exclusive create: one creates, the rest skip.
func (w *Writer) Write(localPath, url string) (Outcome, error) {
	created, err := fileutil.WriteNew(localPath, []byte(url), w.mode)
	if err != nil {
		return 0, services.Wrap(services.ErrWrite, "strm", "write", localPath, err)
	}
	if !created {
		return Skipped, nil
	}
	return Created, nil
}
