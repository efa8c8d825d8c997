// Package alist is a small client for the AList file-system API.
//
// Only the two read endpoints strmhook needs are covered: /api/fs/list for
// directory contents and /api/fs/get for a single object. Walk builds on them
// to collect every file below a directory without recursion.
//
// Transport failures, non-2xx responses and AList error codes are reported as
// services.ErrRemoteUnavailable; AList "not found" answers as
// services.ErrNotFound.
package alist
