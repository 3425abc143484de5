package erp

import (
	"context"
	"fmt"
)

// maxPages stops a listing that never returns a short page
const maxPages = 10000

// Paginate fetches pages starting at 1 until a page shorter than pageSize arrives
// and returns all items in order
func Paginate[T any](ctx context.Context, pageSize int, fetch func(ctx context.Context, page int) ([]T, error)) ([]T, error) {
	var all []T
	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, err := fetch(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, items...)
		if pageSize <= 0 || len(items) < pageSize {
			return all, nil
		}
	}
	return nil, fmt.Errorf("erp: listing exceeded %d pages", maxPages)
}
