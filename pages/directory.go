// Package pages lists the pages a user administers and resolves page scoped tokens.
package pages

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-page-insights/graph"
	"github.com/jrsteele09/go-page-insights/internal/errors"
	"github.com/rs/zerolog/log"
)

// Resource is an administrable page. AccessToken is empty when the listing
// did not carry one; it is then resolved at fetch time.
type Resource struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	AccessToken string `json:"-"`
}

// Directory is the resource directory backed by the Graph API.
type Directory struct {
	client    *graph.Client
	pageLimit int
	maxPages  int
}

func NewDirectory(client *graph.Client, pageLimit, maxPages int) *Directory {
	if maxPages <= 0 {
		maxPages = 1
	}
	return &Directory{client: client, pageLimit: pageLimit, maxPages: maxPages}
}

// ListResources returns the user's pages in upstream order, following cursors
// up to the configured page cap. Entries without an id or name are skipped.
func (d *Directory) ListResources(ctx context.Context, userToken string) ([]Resource, error) {
	if userToken == "" {
		return nil, &errors.AuthError{Op: "list pages", Message: "no user access token", Err: errors.ErrMissingToken}
	}

	resources := make([]Resource, 0)
	err := graph.Walk(ctx, d.client, userToken, graph.Accounts(d.pageLimit), d.maxPages, func(accounts []graph.Account) error {
		for _, a := range accounts {
			if a.ID == "" || a.Name == "" {
				log.Warn().Str("id", a.ID).Msg("skipping page without id or name")
				continue
			}
			resources = append(resources, Resource{
				ID:          a.ID,
				Name:        a.Name,
				Category:    a.Category,
				AccessToken: a.AccessToken,
			})
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewAuthError("list pages", err)
	}
	return resources, nil
}

// ResolveResourceToken fetches the page scoped token for resourceID.
func (d *Directory) ResolveResourceToken(ctx context.Context, resourceID, userToken string) (string, error) {
	op := fmt.Sprintf("resolve token for page %s", resourceID)
	if userToken == "" {
		return "", &errors.AuthError{Op: op, Message: "no user access token", Err: errors.ErrMissingToken}
	}

	var resp graph.PageTokenResponse
	if err := d.client.Get(ctx, userToken, graph.PageToken(resourceID), &resp); err != nil {
		return "", errors.NewAuthError(op, err)
	}
	if resp.AccessToken == "" {
		return "", &errors.AuthError{Op: op, Message: "page access token not granted", Err: errors.ErrMissingToken}
	}
	return resp.AccessToken, nil
}

// Find returns the resource with id from resources.
func Find(resources []Resource, id string) (Resource, bool) {
	for _, r := range resources {
		if r.ID == id {
			return r, true
		}
	}
	return Resource{}, false
}
