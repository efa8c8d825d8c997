// Package strm maps remote media paths to STRM pointer files and writes them.
//
// A pointer file lives under the configured save directory at the remote
// path with its extension replaced by .strm; its only content is the
// playback URL, the configured server prefix followed by the (optionally
// rewritten and percent-encoded) remote path.
package strm
