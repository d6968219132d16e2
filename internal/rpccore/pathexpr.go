// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package rpccore

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// pathExpr is the grammar for rpc_delve's dotted/indexed "guide" strings,
// e.g. ".configuration.rpc-file" or ".channels[0].short_channel_id".
type pathExpr struct {
	Segments []*pathSegment `("." @@)+`
}

type pathSegment struct {
	Name    string `@Ident`
	Indices []int  `("[" @Int "]")*`
}

var pathLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_\-]*`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[.\[\]]`},
})

var pathParser = participle.MustBuild[pathExpr](
	participle.Lexer(pathLexer),
	participle.UseLookahead(2),
)

var pathCache sync.Map // string -> []string (cached key segments)

// ParsePath compiles a guide string into the sequence of keys
// jsonparser.Get expects, translating "[N]" subscripts into jsonparser's
// bracketed array-index key form.
func ParsePath(guide string) ([]string, error) {
	if cached, ok := pathCache.Load(guide); ok {
		return cached.([]string), nil
	}

	expr, err := pathParser.ParseString("", guide)
	if err != nil {
		return nil, fmt.Errorf("malformed path guide %q: %w", guide, err)
	}

	var keys []string
	for _, seg := range expr.Segments {
		keys = append(keys, seg.Name)
		for _, idx := range seg.Indices {
			keys = append(keys, "["+strconv.Itoa(idx)+"]")
		}
	}

	pathCache.Store(guide, keys)
	return keys, nil
}
