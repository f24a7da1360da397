// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package schema

import (
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/cockroachdb/errors"
)

const xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"

// validator walks an instance document. Content models are matched
// greedily, which is exact for schemas obeying the unique particle
// attribution rule.
type validator struct {
	globals map[string]*elementDecl
}

// binding pairs a child element with the declaration it matched.
type binding struct {
	node *xmlquery.Node
	decl *elementDecl // nil for wildcard matches
	lax  bool
}

// matches reports whether n carries d's expanded name.
func (d *elementDecl) matches(n *xmlquery.Node) bool {
	return n.Data == d.name && n.NamespaceURI == d.ns
}

// qualifiedName renders name in the form used by validation messages.
func qualifiedName(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + ":" + name
}

// noMatch means a particle could not start at the current position.
type noMatch struct {
	expected []string
}

func (e *noMatch) Error() string { return "expected " + strings.Join(e.expected, ", ") }

func (v *validator) element(n *xmlquery.Node, d *elementDecl) error {
	if d.complex == nil {
		if d.simple == nil {
			// anyType
			return nil
		}
		if err := v.attributes(n, nil); err != nil {
			return err
		}
		if kids := childElements(n); len(kids) > 0 {
			return errors.Newf("The element '%s' cannot contain child element '%s' because it has a simple type.", n.Data, kids[0].Data)
		}
		return v.value(n, d, d.simple)
	}

	ct := d.complex
	if err := v.attributes(n, ct); err != nil {
		return err
	}
	if ct.textType != nil {
		if kids := childElements(n); len(kids) > 0 {
			return errors.Newf("The element '%s' cannot contain child element '%s'.", n.Data, kids[0].Data)
		}
		return v.value(n, d, ct.textType)
	}
	if !ct.mixed && strings.TrimSpace(textContent(n)) != "" {
		return errors.Newf("The element '%s' cannot contain text.", n.Data)
	}

	kids := childElements(n)
	var bound []binding
	if ct.content != nil {
		next, err := v.match(ct.content, kids, 0, &bound)
		if err != nil {
			var c *committed
			if errors.As(err, &c) {
				return v.contentError(n, kids, c.at, c.expected)
			}
			var nm *noMatch
			if errors.As(err, &nm) {
				return v.contentError(n, kids, next, nm.expected)
			}
			return err
		}
		if next < len(kids) {
			return v.contentError(n, kids, next, nil)
		}
	} else if len(kids) > 0 {
		return errors.Newf("The element '%s' cannot contain child element '%s' because its content must be empty.", n.Data, kids[0].Data)
	}

	for _, b := range bound {
		decl := b.decl
		if decl == nil && b.lax {
			if g, ok := v.globals[b.node.Data]; ok && g.matches(b.node) {
				decl = g
			}
		}
		if decl == nil {
			continue
		}
		if err := v.element(b.node, decl); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) contentError(n *xmlquery.Node, kids []*xmlquery.Node, at int, expected []string) error {
	list := ""
	if len(expected) > 0 {
		list = " List of possible elements expected: '" + strings.Join(expected, "', '") + "'."
	}
	if at >= len(kids) {
		return errors.Newf("The element '%s' has incomplete content.%s", n.Data, list)
	}
	return errors.Newf("The element '%s' has invalid child element '%s'.%s", n.Data, kids[at].Data, list)
}

// match consumes kids[i:] against p honouring its occurrence bounds and
// returns the index after the last consumed child. A *noMatch error
// means p's minimum could not be met from i.
func (v *validator) match(p *particle, kids []*xmlquery.Node, i int, bound *[]binding) (int, error) {
	count := 0
	j := i
	for p.maxOccurs == unbounded || count < p.maxOccurs {
		mark := len(*bound)
		next, err := v.matchOnce(p, kids, j, bound)
		if err != nil {
			*bound = (*bound)[:mark]
			var nm *noMatch
			if errors.As(err, &nm) && count >= p.minOccurs {
				return j, nil
			}
			return j, err
		}
		if next == j {
			// An emptiable group matched nothing; repeating it cannot help.
			return j, nil
		}
		j = next
		count++
	}
	return j, nil
}

func (v *validator) matchOnce(p *particle, kids []*xmlquery.Node, i int, bound *[]binding) (int, error) {
	switch {
	case p.wildcard != nil:
		if i < len(kids) && p.wildcard.allows(kids[i].NamespaceURI) {
			*bound = append(*bound, binding{node: kids[i], lax: p.wildcard.lax})
			return i + 1, nil
		}
		return i, &noMatch{expected: []string{"##any"}}
	case p.elem != nil:
		if i < len(kids) && p.elem.matches(kids[i]) {
			*bound = append(*bound, binding{node: kids[i], decl: p.elem})
			return i + 1, nil
		}
		return i, &noMatch{expected: []string{qualifiedName(p.elem.ns, p.elem.name)}}
	}

	g := p.grp
	switch g.kind {
	case groupChoice:
		var expected []string
		emptiable := false
		for idx := range g.items {
			item := &g.items[idx]
			mark := len(*bound)
			next, err := v.match(item, kids, i, bound)
			if err == nil && next > i {
				return next, nil
			}
			*bound = (*bound)[:mark]
			var nm *noMatch
			if err != nil && !errors.As(err, &nm) {
				return i, err
			}
			if err == nil {
				emptiable = true
			} else {
				expected = append(expected, nm.expected...)
			}
		}
		if emptiable {
			return i, nil
		}
		return i, &noMatch{expected: expected}

	case groupAll:
		seen := make([]bool, len(g.items))
		j := i
	scan:
		for j < len(kids) {
			for idx, item := range g.items {
				if !seen[idx] && item.elem.matches(kids[j]) {
					seen[idx] = true
					*bound = append(*bound, binding{node: kids[j], decl: item.elem})
					j++
					continue scan
				}
			}
			break
		}
		var missing []string
		for idx, item := range g.items {
			if !seen[idx] && item.minOccurs > 0 {
				missing = append(missing, qualifiedName(item.elem.ns, item.elem.name))
			}
		}
		if len(missing) > 0 {
			if j == i {
				return i, &noMatch{expected: missing}
			}
			return j, &committed{expected: missing, at: j}
		}
		return j, nil

	default:
		j := i
		for idx := range g.items {
			next, err := v.match(&g.items[idx], kids, j, bound)
			if err != nil {
				var nm *noMatch
				if errors.As(err, &nm) && j > i {
					return next, &committed{expected: nm.expected, at: next}
				}
				return next, err
			}
			j = next
		}
		return j, nil
	}
}

// committed is a content failure after a group already consumed input.
// Unlike *noMatch it is never read as "group absent".
type committed struct {
	expected []string
	at       int
}

func (e *committed) Error() string { return "expected " + strings.Join(e.expected, ", ") }

func (v *validator) attributes(n *xmlquery.Node, ct *complexType) error {
	declared := map[string]*attributeDecl{}
	if ct != nil {
		for i := range ct.attrs {
			declared[ct.attrs[i].name] = &ct.attrs[i]
		}
	}
	present := map[string]bool{}
	for _, a := range n.Attr {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") || a.NamespaceURI == xsiNamespace {
			continue
		}
		d, ok := declared[a.Name.Local]
		if !ok || a.Name.Space != "" {
			if ct != nil && ct.anyAttr {
				continue
			}
			return errors.Newf("The '%s' attribute is not declared.", a.Name.Local)
		}
		present[d.name] = true
		if d.fixed != nil && a.Value != *d.fixed {
			return errors.Newf("The value of the '%s' attribute does not equal its fixed value.", d.name)
		}
		if d.typ != nil {
			if err := d.typ.check("'"+d.name+"' attribute", a.Value); err != nil {
				return err
			}
		}
	}
	if ct != nil {
		for _, a := range ct.attrs {
			if a.required && !present[a.name] {
				return errors.Newf("The required attribute '%s' is missing.", a.name)
			}
		}
	}
	return nil
}

func (v *validator) value(n *xmlquery.Node, d *elementDecl, t *simpleType) error {
	text := textContent(n)
	if d.fixed != nil && strings.TrimSpace(text) != strings.TrimSpace(*d.fixed) {
		return errors.Newf("The value of the '%s' element does not equal its fixed value.", d.name)
	}
	return t.check("'"+n.Data+"' element", text)
}
