// Package pager reads large item collections in bounded pages using an
// opaque continuation cursor, so peak memory stays at one page's worth of
// items rather than the full collection.
package pager

import (
	"context"

	"github.com/EliuX/cloud-tools/pkg/resource"
)

// Cursor is an opaque resume token issued by the page reader's backing
// store. The pager never inspects or modifies its contents. The empty
// cursor starts a read from the beginning.
type Cursor string

// PageReader reads one page of items starting at cursor. done signals the
// terminal page; next is only meaningful while done is false.
type PageReader interface {
	ReadPage(ctx context.Context, cursor Cursor, pageSize int) (items []resource.Record, next Cursor, done bool, err error)
}

// VisitFunc receives one page of items. last is true on the terminal page.
type VisitFunc func(items []resource.Record, last bool) error

// ForEachPage walks the collection page by page, handing each page to
// visit before advancing the cursor. A read or visit error aborts the
// walk immediately.
func ForEachPage(ctx context.Context, r PageReader, pageSize int, visit VisitFunc) error {
	var cursor Cursor
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		items, next, done, err := r.ReadPage(ctx, cursor, pageSize)
		if err != nil {
			return err
		}
		if err := visit(items, done); err != nil {
			return err
		}
		if done {
			return nil
		}
		cursor = next
	}
}
