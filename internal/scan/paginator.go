package scan

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/avezina/chatscan/internal/domain"
)

// Doer is the authenticated transport the engine pages through. Satisfied
// by *rcauth.Manager.
type Doer interface {
	Do(ctx context.Context, method, path string, out any) error
}

type pageNavigation struct {
	NextPageToken string `json:"nextPageToken"`
}

// page is the platform's common paginated envelope. An absent
// nextPageToken means no further pages; the token itself is opaque and
// forwarded verbatim.
type page[T any] struct {
	Records    []T            `json:"records"`
	Navigation pageNavigation `json:"navigation"`
}

type chatRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type postRecord struct {
	CreatorID    string    `json:"creatorId"`
	CreationTime time.Time `json:"creationTime"`
}

func pagePath(base string, recordCount int, pageToken string) string {
	path := fmt.Sprintf("%s?recordCount=%d", base, recordCount)
	if pageToken != "" {
		path += "&pageToken=" + url.QueryEscape(pageToken)
	}
	return path
}

// fetchAllPages follows the cursor until the server stops returning one
// and concatenates every record. One request per page, strictly
// sequential; a fresh call restarts from page one. logf runs before each
// fetch so progress is visible even when a call stalls.
func fetchAllPages[T any](ctx context.Context, client Doer, base string, recordCount int, logf func(domain.Severity, string, ...any)) ([]T, error) {
	var all []T
	pageToken := ""
	for pageNum := 1; ; pageNum++ {
		logf(domain.SeverityInfo, "fetching %s (page %d)", base, pageNum)

		var p page[T]
		if err := client.Do(ctx, http.MethodGet, pagePath(base, recordCount, pageToken), &p); err != nil {
			return nil, err
		}

		all = append(all, p.Records...)
		if p.Navigation.NextPageToken == "" {
			return all, nil
		}
		pageToken = p.Navigation.NextPageToken
	}
}
