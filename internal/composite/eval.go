// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package composite

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/azzuwayed/serversentry/internal/plugin"
)

// Source resolves a leaf reference against the current tick's Readings.
// Readings maps plugin id to its most recent Reading of the tick
// (spec.md §4.5 "Resolution").
type Source map[string]plugin.Reading

// resolve returns the attribute named attr for plugin id. The synthetic
// attribute name "value" resolves to the Reading's primary numeric value.
func (s Source) resolve(pluginID, attr string) (plugin.Attribute, bool) {
	r, ok := s[pluginID]
	if !ok {
		return plugin.Attribute{}, false
	}
	if attr == "value" {
		v, ok := r.Value()
		if !ok {
			return plugin.Attribute{}, false
		}
		return plugin.NumberAttr(v), true
	}
	return r.Attribute(attr)
}

// Eval evaluates node against src using Kleene three-valued logic
// (spec.md §4.5 "Resolution"): a missing plugin or attribute makes its
// leaf UNKNOWN, and UNKNOWN propagates per the Kleene AND/OR/NOT table.
func Eval(node *Node, src Source) Tri {
	switch node.Kind {
	case NodeLeaf:
		return evalLeaf(node.Leaf, src)
	case NodeNot:
		return Not(Eval(node.Children[0], src))
	case NodeAnd:
		result := Eval(node.Children[0], src)
		for _, child := range node.Children[1:] {
			result = And(result, Eval(child, src))
		}
		return result
	case NodeOr:
		result := Eval(node.Children[0], src)
		for _, child := range node.Children[1:] {
			result = Or(result, Eval(child, src))
		}
		return result
	default:
		return Unknown
	}
}

func evalLeaf(leaf Leaf, src Source) Tri {
	attr, ok := src.resolve(leaf.Plugin, leaf.Attribute)
	if !ok {
		return Unknown
	}

	if leaf.IsNumber {
		if !attr.IsNumber {
			return Unknown
		}
		return boolToTri(compareNumbers(attr.NumberValue, leaf.Op, leaf.Number))
	}

	// String comparison: only == and != are valid (enforced at parse time).
	var actual string
	if attr.IsNumber {
		actual = strconv.FormatFloat(attr.NumberValue, 'f', -1, 64)
	} else {
		actual = attr.StringValue
	}
	equal := actual == leaf.Scalar
	if leaf.Op == "!=" {
		equal = !equal
	}
	return boolToTri(equal)
}

func boolToTri(b bool) Tri {
	if b {
		return True
	}
	return False
}

func compareNumbers(actual float64, op string, scalar float64) bool {
	switch op {
	case ">":
		return actual > scalar
	case "<":
		return actual < scalar
	case ">=":
		return actual >= scalar
	case "<=":
		return actual <= scalar
	case "==":
		return actual == scalar
	case "!=":
		return actual != scalar
	default:
		return false
	}
}

// RenderTemplate substitutes "{<plugin>.<attribute>}" placeholders in tmpl
// with the resolved scalar, or the literal "UNKNOWN" when unresolved
// (spec.md §4.5 "Templating").
func RenderTemplate(tmpl string, src Source) string {
	var out strings.Builder
	i := 0
	for i < len(tmpl) {
		open := strings.IndexByte(tmpl[i:], '{')
		if open < 0 {
			out.WriteString(tmpl[i:])
			break
		}
		out.WriteString(tmpl[i : i+open])
		start := i + open
		close := strings.IndexByte(tmpl[start:], '}')
		if close < 0 {
			out.WriteString(tmpl[start:])
			break
		}
		ref := tmpl[start+1 : start+close]
		dot := strings.IndexByte(ref, '.')
		if dot < 0 {
			out.WriteString(tmpl[start : start+close+1])
		} else {
			attr, ok := src.resolve(ref[:dot], ref[dot+1:])
			if !ok {
				out.WriteString("UNKNOWN")
			} else if attr.IsNumber {
				out.WriteString(strconv.FormatFloat(attr.NumberValue, 'f', -1, 64))
			} else {
				out.WriteString(attr.StringValue)
			}
		}
		i = start + close + 1
	}
	return out.String()
}

// ReferencedPlugins walks node and returns the distinct plugin ids its
// leaves reference, for the invariant check "every referenced plugin
// exists" (spec.md §3 "Composite rule").
func ReferencedPlugins(node *Node) []string {
	seen := make(map[string]bool)
	var walk func(*Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.Kind == NodeLeaf {
			seen[n.Leaf.Plugin] = true
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(node)
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	return out
}

// Validate checks node's leaves against a registry of plugin -> known
// attribute names, per spec.md §3's invariant that every referenced
// plugin and attribute must be declared.
func Validate(node *Node, knownAttributes map[string]map[string]bool) error {
	var walk func(*Node) error
	walk = func(n *Node) error {
		if n == nil {
			return nil
		}
		if n.Kind == NodeLeaf {
			attrs, ok := knownAttributes[n.Leaf.Plugin]
			if !ok {
				return fmt.Errorf("composite: unknown plugin %q referenced", n.Leaf.Plugin)
			}
			if n.Leaf.Attribute != "value" && !attrs[n.Leaf.Attribute] {
				return fmt.Errorf("composite: plugin %q does not declare attribute %q", n.Leaf.Plugin, n.Leaf.Attribute)
			}
			return nil
		}
		for _, c := range n.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(node)
}
