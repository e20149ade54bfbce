package terminal

import (
	"fmt"
	"sort"
)

// FlattenEnv converts an environment map into the ordered "KEY=VALUE"
// block providers expect. Keys are sorted so the block is deterministic.
func FlattenEnv(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, env[k]))
	}

	return pairs
}
