package api

import "context"

// ListAll drains a paged listing into a single slice, preserving
// server order page by page. Empty and absent next-page tokens both
// terminate the walk.
func ListAll[T any](ctx context.Context, fetch func(ctx context.Context, pageToken string) ([]T, string, error)) ([]T, error) {
	var all []T
	pageToken := ""
	for {
		items, next, err := fetch(ctx, pageToken)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if next == "" {
			return all, nil
		}
		pageToken = next
	}
}
