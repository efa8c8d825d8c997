package alist

import (
	"context"

	"strmhook/internal/logging"
	"strmhook/internal/services"
)

type frame struct {
	entries []Entry
	next    int
}

// Walk returns every file below root in depth-first listing order. A root
// that is itself a file yields just that file. Directories are traversal
// nodes only and never appear in the result. refresh applies to the root
// listing. The first listing failure aborts the walk.
func (c *Client) Walk(ctx context.Context, root string, refresh bool) ([]Entry, error) {
	rootEntry, err := c.Stat(ctx, root)
	if err != nil {
		return nil, err
	}
	if !rootEntry.IsDir {
		return []Entry{rootEntry}, nil
	}

	children, err := c.List(ctx, rootEntry.Path, refresh)
	if err != nil {
		return nil, err
	}

	var files []Entry
	dirs := 1
	// Explicit stack of partially consumed listings; remote trees may be deep.
	stack := []*frame{{entries: children}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, services.Wrap(services.ErrRemoteUnavailable, "alist", "walk", rootEntry.Path, err)
		}
		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]
			continue
		}
		entry := top.entries[top.next]
		top.next++

		if !entry.IsDir {
			files = append(files, entry)
			continue
		}
		nested, err := c.List(ctx, entry.Path, false)
		if err != nil {
			return nil, err
		}
		dirs++
		stack = append(stack, &frame{entries: nested})
	}

	c.logger.Info("alist walk complete",
		logging.String(logging.FieldPath, rootEntry.Path),
		logging.Int("directories", dirs),
		logging.Int("files", len(files)),
	)
	return files, nil
}
