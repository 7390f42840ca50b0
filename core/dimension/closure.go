package dimension

import (
	"context"
	"fmt"

	"github.com/huangsam/grimoire/internal/contract"
)

// Closure returns root followed by every nested subproject in breadth-first
// order. Projects listed in exclude are skipped together with their
// subtrees, and a project reached twice is visited once. The registry is
// queried on every call.
func Closure(ctx context.Context, registry contract.ProjectRegistry, root string, exclude ...string) ([]string, error) {
	seen := make(map[string]struct{}, len(exclude)+1)
	for _, ex := range exclude {
		seen[ex] = struct{}{}
	}
	if _, skip := seen[root]; skip {
		return nil, nil
	}
	seen[root] = struct{}{}

	out := []string{root}
	for queue := []string{root}; len(queue) > 0; {
		cur := queue[0]
		queue = queue[1:]

		children, err := registry.Children(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("failed to list subprojects of %q: %w", cur, err)
		}
		for _, child := range children {
			if _, ok := seen[child]; ok {
				continue
			}
			seen[child] = struct{}{}
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out, nil
}
