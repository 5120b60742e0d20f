package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"gradescope-backend/lib/scrapers/gradescope/core"

	"github.com/PuerkitoBio/goquery"
)

// pageCursor is the resumable walk state: re-fetching cursor.path continues
// the walk from exactly where it was, which is what lets a listing survive
// a mid-walk session refresh without starting over from page 1.
type pageCursor struct {
	path string
	page int
	done bool
}

// walkPages drives a paginated listing to completion, invoking visit for
// every row on every page. The row count and continuation signal are read
// from each page itself, never from an out-of-band total. An ambiguous
// continuation signal fails closed with a PageError. Any empty page stops
// the walk even when a next-page link is present; past the first page that
// is an anomaly and gets logged, on the first page it is just an empty
// listing.
func (c Client) walkPages(
	ctx context.Context,
	start string,
	rowSelector string,
	visit func(page int, row *goquery.Selection) error,
) error {
	cursor := pageCursor{path: start, page: 1}
	refreshedPage := 0

	for !cursor.done {
		if err := ctx.Err(); err != nil {
			return err
		}

		doc, err := c.Core.GetDocument(ctx, cursor.path)
		if errors.Is(err, core.SessionExpired) && refreshedPage != cursor.page {
			// refresh once, then resume from the page that tripped the
			// expiry rather than from page 1
			refreshedPage = cursor.page
			err = c.Core.EnsureValid(ctx)
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}

		rows := doc.Find(rowSelector)
		if rows.Length() == 0 {
			if cursor.page > 1 {
				slog.WarnContext(
					ctx, "empty listing page, stopping walk",
					"path", cursor.path,
					"page", cursor.page,
				)
			}
			return nil
		}

		var visitErr error
		rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
			visitErr = visit(cursor.page, row)
			return visitErr == nil
		})
		if visitErr != nil {
			return visitErr
		}

		cursor, err = nextCursor(doc, cursor)
		if err != nil {
			return err
		}
	}

	return nil
}

func nextCursor(doc *goquery.Document, cursor pageCursor) (pageCursor, error) {
	next := doc.Find(selNextPage)
	if next.Length() == 0 {
		cursor.done = true
		return cursor, nil
	}

	href := next.First().AttrOr("href", "")
	if href == "" {
		return cursor, &PageError{
			Path:   cursor.path,
			Page:   cursor.page,
			Reason: "next-page link is missing its href",
		}
	}

	link, err := url.Parse(href)
	if err != nil {
		return cursor, &PageError{
			Path:   cursor.path,
			Page:   cursor.page,
			Reason: fmt.Sprintf("next-page link %q does not parse: %v", href, err),
		}
	}

	page, err := strconv.Atoi(link.Query().Get("page"))
	if err != nil || page <= cursor.page {
		return cursor, &PageError{
			Path:   cursor.path,
			Page:   cursor.page,
			Reason: fmt.Sprintf("continuation signal %q does not advance the walk", href),
		}
	}

	cursor.path = href
	cursor.page = page
	return cursor, nil
}
