package strm

import (
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"strmhook/internal/config"
)

// Extension is the suffix of generated pointer files.
const Extension = ".strm"

// Target is the mapping of one remote media file to its pointer file.
type Target struct {
	RemotePath string
	LocalPath  string
	URL        string
}

// Rewrite describes how remote paths are rewritten inside playback URLs.
type Rewrite struct {
	// From lists prefixes matched on a path-segment boundary, first match wins.
	From []string
	To   string
	// FirstSegment replaces the first path segment when no From prefix matches.
	FirstSegment string
}

// Mapper computes pointer-file locations and playback URLs. It performs no I/O.
type Mapper struct {
	saveDir string
	server  string
	rewrite Rewrite
	exts    map[string]struct{}
	encode  bool
}

// NewMapper builds a mapper from normalized configuration.
func NewMapper(cfg *config.Config) *Mapper {
	return &Mapper{
		saveDir: cfg.STRM.SaveDir,
		server:  cfg.STRM.Server,
		rewrite: Rewrite{
			From:         cfg.STRM.ReplaceFrom,
			To:           cfg.STRM.ReplaceTo,
			FirstSegment: cfg.STRM.ReplacePath,
		},
		exts:   extensionSet(cfg.STRM.VideoExts),
		encode: cfg.STRM.EncodePath,
	}
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		set[foldExt(ext)] = struct{}{}
	}
	return set
}

func foldExt(ext string) string {
	return cases.Fold().String(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// CleanRemotePath returns the canonical slash-rooted form of a remote path.
// Dot segments are resolved, so the result can never climb above the root.
func CleanRemotePath(remotePath string) string {
	return path.Clean("/" + strings.TrimSpace(remotePath))
}

// IsMedia reports whether the remote path carries a recognized media extension.
func (m *Mapper) IsMedia(remotePath string) bool {
	_, ok := m.mediaExt(CleanRemotePath(remotePath))
	return ok
}

func (m *Mapper) mediaExt(cleaned string) (string, bool) {
	ext := path.Ext(cleaned)
	if ext == "" || ext == path.Base(cleaned) {
		return "", false
	}
	if _, ok := m.exts[foldExt(ext)]; !ok {
		return "", false
	}
	return ext, true
}

// Map returns the pointer-file target for remotePath. Files without a media
// extension are excluded and report false.
func (m *Mapper) Map(remotePath string) (Target, bool) {
	cleaned := CleanRemotePath(remotePath)
	ext, ok := m.mediaExt(cleaned)
	if !ok {
		return Target{}, false
	}

	local := norm.NFC.String(strings.TrimSuffix(cleaned, ext) + Extension)
	return Target{
		RemotePath: cleaned,
		LocalPath:  filepath.Join(m.saveDir, filepath.FromSlash(local)),
		URL:        m.server + m.urlPath(m.rewrite.Apply(cleaned)),
	}, true
}

func (m *Mapper) urlPath(p string) string {
	if !m.encode {
		return p
	}
	segments := strings.Split(p, "/")
	for i, segment := range segments {
		segments[i] = escapeSegment(segment)
	}
	return strings.Join(segments, "/")
}

// escapeSegment percent-encodes every byte outside the RFC 3986 unreserved
// set, so sub-delimiters such as & + = : @ $ are encoded too.
func escapeSegment(segment string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(segment))
	for i := 0; i < len(segment); i++ {
		c := segment[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return c == '-' || c == '.' || c == '_' || c == '~'
}

// Apply rewrites a cleaned remote path.
func (r Rewrite) Apply(p string) string {
	for _, from := range r.From {
		if p == from || strings.HasPrefix(p, from+"/") {
			return path.Join(r.To, strings.TrimPrefix(p, from))
		}
	}
	if r.FirstSegment != "" {
		// ["", "mount", "rest..."]
		parts := strings.SplitN(p, "/", 3)
		if len(parts) == 3 {
			return path.Join(r.FirstSegment, parts[2])
		}
	}
	return p
}
