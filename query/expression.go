// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package query

import (
	"fmt"
	"strconv"
	"strings"
)

const lineEnd = "\n"

// Kind selects the keyword family an Expression renders with
type Kind int

const (
	KindFilter Kind = iota
	KindStats
)

func (k Kind) String() string {
	switch k {
	case KindFilter:
		return "filter"
	case KindStats:
		return "stats"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type keywordFamily struct {
	base   string
	and    string
	or     string
	negate string
}

var keywordFamilies = map[Kind]keywordFamily{
	KindFilter: {
		base:   "Filter",
		and:    "And",
		or:     "Or",
		negate: "Negate",
	},
	KindStats: {
		base:   "Stats",
		and:    "StatsAnd",
		or:     "StatsOr",
		negate: "StatsNegate",
	},
}

// Combinator is the logical operator an Expression applies to preceding lines
type Combinator int

const (
	CombinatorNone Combinator = iota
	CombinatorAnd
	CombinatorOr
	CombinatorNegate
)

const (
	sigilAnd    = "&"
	sigilOr     = "|"
	sigilNegate = "!"
)

// Expression is a single filter or stats line, optionally a combinator folding
// the Count preceding lines of the same kind
type Expression struct {
	Kind       Kind
	Raw        string
	Combinator Combinator
	Count      int
}

// ParseExpression classifies s by its leading sigil. "&N" and "|N" produce And/Or
// combinators folding N lines, "!" produces Negate, and anything else is a plain
// condition such as "state = 0"
func ParseExpression(kind Kind, s string) (Expression, error) {
	e := Expression{
		Kind: kind,
		Raw:  s,
	}
	switch {
	case strings.HasPrefix(s, sigilAnd):
		e.Combinator = CombinatorAnd
	case strings.HasPrefix(s, sigilOr):
		e.Combinator = CombinatorOr
	case s == sigilNegate:
		e.Combinator = CombinatorNegate
		e.Raw = ""
		return e, nil
	default:
		return e, nil
	}
	suffix := strings.TrimSpace(s[1:])
	count, err := strconv.Atoi(suffix)
	if err != nil || count < 0 {
		return Expression{}, fmt.Errorf(
			"%w: %s entry %q: count must be a non-negative integer",
			ErrMalformedExpression,
			kind,
			s,
		)
	}
	e.Raw = ""
	e.Count = count
	return e, nil
}

// String renders the expression as a single newline-terminated protocol line
func (e Expression) String() string {
	family := keywordFamilies[e.Kind]
	switch e.Combinator {
	case CombinatorAnd:
		return family.and + ": " + strconv.Itoa(e.Count) + lineEnd
	case CombinatorOr:
		return family.or + ": " + strconv.Itoa(e.Count) + lineEnd
	case CombinatorNegate:
		return family.negate + ":" + lineEnd
	default:
		return family.base + ": " + e.Raw + lineEnd
	}
}

// fold updates the number of pending operands after applying e. A plain line
// pushes one operand, Negate replaces one, And/Or replace Count operands with one
func (e Expression) fold(depth int) (int, error) {
	switch e.Combinator {
	case CombinatorNone:
		return depth + 1, nil
	case CombinatorNegate:
		if depth < 1 {
			return depth, fmt.Errorf(
				"%w: %s negate with no preceding line",
				ErrInvalidFoldCount,
				e.Kind,
			)
		}
		return depth, nil
	default:
		if e.Count > depth {
			return depth, fmt.Errorf(
				"%w: %s combinator folds %d lines but only %d are available",
				ErrInvalidFoldCount,
				e.Kind,
				e.Count,
				depth,
			)
		}
		return depth - e.Count + 1, nil
	}
}
