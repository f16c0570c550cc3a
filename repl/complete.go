// Copyright © 2018 The ELPS authors

package repl

import "context"

// symbolCompleter implements readline.AutoCompleter by enumerating the
// globals and members an Inspector knows.
type symbolCompleter struct {
	ctx context.Context
	in  *Inspector
}

func (c *symbolCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	candidates, prefix := c.in.Complete(c.ctx, text)
	if len(candidates) == 0 {
		return nil, 0
	}

	// Build completions: each entry is the suffix to append.
	result := make([][]rune, 0, len(candidates))
	for _, name := range candidates {
		result = append(result, []rune(name[len(prefix):]))
	}
	return result, len([]rune(prefix))
}
