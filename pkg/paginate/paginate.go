// Package paginate implements the fetch-all-pages loop shared by the GitLab
// gateway's list operations.
package paginate

// PerPage is the page size requested from the remote.
const PerPage = 100

// PageFunc fetches one page. It returns the items on that page and the
// server-reported next page number (0 when the server does not say).
type PageFunc[T any] func(page, perPage int) (items []T, nextPage int, err error)

// All drains every page starting at page 1. It stops on the first empty page,
// following the server's next-page cursor when one is reported. Any page
// error aborts the whole listing.
func All[T any](fetch PageFunc[T]) ([]T, error) {
	var out []T
	page := 1
	for {
		items, next, err := fetch(page, PerPage)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return out, nil
		}
		out = append(out, items...)
		if next > 0 {
			page = next
		} else {
			page++
		}
	}
}
