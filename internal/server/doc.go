// Package server exposes the webhook HTTP surface:
//
//	POST /webhook/strm          {"path": "/remote/dir"}   walk AList, write pointer files
//	POST /webhook/strm/direct   {"files": ["/a.mkv"]}     write pointer files without listing
//	GET  /health                                           liveness, never authenticated
//	GET  /config                                           redacted settings
//	GET  /history?limit=N                                  recent runs
//	GET  /metrics                                          Prometheus exposition
//
// When server.token is set the webhook, config and history routes require
// "Authorization: Bearer <token>".
package server
