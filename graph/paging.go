package graph

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Walk reads req and then follows paging.next, handing every page's items to
// fn in upstream order. It stops after maxPages pages; maxPages <= 0 reads only
// the first page.
func Walk[T any](ctx context.Context, c *Client, token string, req Request, maxPages int, fn func([]T) error) error {
	var page List[T]
	if err := c.Get(ctx, token, req, &page); err != nil {
		return err
	}
	if err := fn(page.Data); err != nil {
		return err
	}

	for read := 1; read < maxPages; read++ {
		if page.Paging == nil || page.Paging.Next == "" || len(page.Data) == 0 {
			return nil
		}
		next := page.Paging.Next
		page = List[T]{}
		if err := c.GetURL(ctx, token, req.Endpoint, next, &page); err != nil {
			return err
		}
		if err := fn(page.Data); err != nil {
			return err
		}
	}

	if page.Paging != nil && page.Paging.Next != "" && len(page.Data) > 0 {
		log.Warn().
			Str("endpoint", string(req.Endpoint)).
			Int("max_pages", maxPages).
			Msg("stopped following cursors at page limit")
	}
	return nil
}
