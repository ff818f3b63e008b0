// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

// Package composite implements the Composite Evaluator (spec.md §4.5): a
// small boolean expression language over the latest per-plugin readings,
// evaluated with Kleene three-valued logic so a missing reading or
// attribute degrades to UNKNOWN rather than a false positive or negative.
package composite

// Tri is a three-valued boolean: True, False, or Unknown. The zero value is
// Unknown, so an uninitialised Tri never silently reads as true or false.
type Tri int

const (
	Unknown Tri = iota
	True
	False
)

func (t Tri) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "UNKNOWN"
	}
}

// And implements Kleene conjunction: AND(UNK,false)=false, AND(UNK,true)=UNK.
func And(a, b Tri) Tri {
	if a == False || b == False {
		return False
	}
	if a == Unknown || b == Unknown {
		return Unknown
	}
	return True
}

// Or implements Kleene disjunction: OR(UNK,true)=true, OR(UNK,false)=UNK.
func Or(a, b Tri) Tri {
	if a == True || b == True {
		return True
	}
	if a == Unknown || b == Unknown {
		return Unknown
	}
	return False
}

// Not implements Kleene negation: NOT(UNK)=UNK.
func Not(a Tri) Tri {
	switch a {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}
