package personio

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

const (
	// DefaultPageLimit is the page size requested from list endpoints.
	DefaultPageLimit = 100
	// DefaultMaxPages is a hard safety ceiling against server-side metadata
	// bugs causing infinite pagination.
	DefaultMaxPages = 1000
)

// PageCursor is the immutable pagination state. Each iteration derives a new
// cursor instead of mutating in place, so any page's request parameters are
// independently reproducible.
type PageCursor struct {
	Limit  int
	Offset int
	Page   int // 0 until the server advertises page-style metadata
}

// newCursor seeds a cursor with limit=100/offset=0, letting caller-supplied
// parameters override the defaults.
func newCursor(params url.Values) PageCursor {
	c := PageCursor{Limit: DefaultPageLimit}
	if v := params.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Limit = n
		}
	}
	if v := params.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Offset = n
		}
	}
	return c
}

// query merges the cursor over the caller's base parameters.
func (c PageCursor) query(base url.Values) url.Values {
	q := url.Values{}
	for k, vs := range base {
		q[k] = vs
	}
	q.Set("limit", strconv.Itoa(c.Limit))
	q.Set("offset", strconv.Itoa(c.Offset))
	if c.Page > 0 {
		q.Set("page", strconv.Itoa(c.Page))
	}
	return q
}

// advance derives the next cursor. When the server reports page-style
// metadata we follow it, and also keep the offset numerically consistent
// with the items collected so far; otherwise we fall back to pure offset
// advancement.
func (c PageCursor) advance(meta *pageMeta, collected int) PageCursor {
	next := c
	next.Offset = collected
	if meta != nil && meta.CurrentPage != nil {
		next.Page = *meta.CurrentPage + 1
	}
	return next
}

// FetchAll drives repeated GETs against a list endpoint until the server
// reports the last page, collecting every entity eagerly. maxPages <= 0
// applies DefaultMaxPages. Hitting the cap logs a truncation warning and
// returns the partial set rather than failing; callers must tolerate an
// incomplete result under pathological server metadata.
func (c *Client) FetchAll(ctx context.Context, endpoint string, params url.Values, maxPages int) ([]Entity, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if params == nil {
		params = url.Values{}
	}

	cursor := newCursor(params)
	var all []Entity
	done := false

	for page := 1; page <= maxPages; page++ {
		c.logger.Debug("personio.fetch_page",
			zap.String("endpoint", endpoint),
			zap.Int("page", page),
			zap.Int("offset", cursor.Offset))

		var env listEnvelope
		if err := c.Get(ctx, endpoint, cursor.query(params), &env); err != nil {
			return nil, fmt.Errorf("fetch page %d of %s: %w", page, endpoint, err)
		}

		items, single, err := env.items()
		if err != nil {
			return nil, fmt.Errorf("decode page %d of %s: %w", page, endpoint, err)
		}

		if single != nil {
			// Some endpoints return a single object under data.
			all = append(all, single)
			done = true
			break
		}
		if len(items) == 0 {
			done = true
			break
		}
		all = append(all, items...)

		meta := env.meta()
		currentPage, totalPages := 1, 1
		if meta != nil {
			if meta.CurrentPage != nil {
				currentPage = *meta.CurrentPage
			}
			if meta.TotalPages != nil {
				totalPages = *meta.TotalPages
			}
		}

		c.logger.Info("personio.page_fetched",
			zap.String("endpoint", endpoint),
			zap.Int("current_page", currentPage),
			zap.Int("total_pages", totalPages),
			zap.Int("collected", len(all)))

		if currentPage >= totalPages {
			done = true
			break
		}

		cursor = cursor.advance(meta, len(all))
	}

	if !done {
		c.logger.Warn("personio.pagination_truncated",
			zap.String("endpoint", endpoint),
			zap.Int("max_pages", maxPages),
			zap.Int("collected", len(all)))
	}

	return all, nil
}
