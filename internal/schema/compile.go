// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package schema

import (
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/cockroachdb/errors"
)

const xsdNamespace = "http://www.w3.org/2001/XMLSchema"

const unbounded = -1

type elementDecl struct {
	name  string
	ns    string
	fixed *string
	// Exactly one of complex and simple is set; both nil means anyType.
	complex *complexType
	simple  *simpleType
}

type complexType struct {
	content  *particle
	attrs    []attributeDecl
	anyAttr  bool
	mixed    bool
	textType *simpleType // simpleContent
}

type groupKind int

const (
	groupSequence groupKind = iota
	groupChoice
	groupAll
)

type group struct {
	kind  groupKind
	items []particle
}

// particle is an element, a nested group, or an xs:any wildcard, with
// its occurrence bounds.
type particle struct {
	minOccurs int
	maxOccurs int
	elem      *elementDecl
	grp       *group
	wildcard  *wildcard
}

// wildcard is an xs:any particle. Matched children are validated only
// under lax processing, and only when a global declaration exists.
type wildcard struct {
	lax bool
	// namespaces lists the allowed namespaces; other negates the target
	// namespace and nil namespaces with other unset means ##any.
	namespaces []string
	other      bool
	targetNS   string
}

func (w *wildcard) allows(ns string) bool {
	if w.other {
		return ns != "" && ns != w.targetNS
	}
	if w.namespaces == nil {
		return true
	}
	for _, allowed := range w.namespaces {
		if allowed == ns {
			return true
		}
	}
	return false
}

type attributeDecl struct {
	name     string
	required bool
	typ      *simpleType
	fixed    *string
}

// compiler turns xs:schema nodes into declarations. Named types and
// global elements are compiled on first reference and memoised.
type compiler struct {
	root        *xmlquery.Node
	xsdPrefixes map[string]bool
	xsdDefault  bool

	// targetNS is the namespace of global declarations; local elements
	// share it only when qualified.
	targetNS        string
	qualifiedLocals bool

	complexNodes map[string]*xmlquery.Node
	simpleNodes  map[string]*xmlquery.Node
	elementNodes map[string]*xmlquery.Node

	complexTypes map[string]*complexType
	simpleTypes  map[string]*simpleType
	elements     map[string]*elementDecl
	inProgress   map[string]bool
}

func newCompiler(root *xmlquery.Node) *compiler {
	c := &compiler{
		root:         root,
		xsdPrefixes:  map[string]bool{},
		complexNodes: map[string]*xmlquery.Node{},
		simpleNodes:  map[string]*xmlquery.Node{},
		elementNodes: map[string]*xmlquery.Node{},
		complexTypes: map[string]*complexType{},
		simpleTypes:  map[string]*simpleType{},
		elements:     map[string]*elementDecl{},
		inProgress:   map[string]bool{},
	}
	for _, a := range root.Attr {
		switch {
		case a.Name.Space == "xmlns" && a.Value == xsdNamespace:
			c.xsdPrefixes[a.Name.Local] = true
		case a.Name.Space == "" && a.Name.Local == "xmlns" && a.Value == xsdNamespace:
			c.xsdDefault = true
		}
	}
	if root.Prefix != "" {
		c.xsdPrefixes[root.Prefix] = true
	}
	return c
}

func (c *compiler) compile() (map[string]*elementDecl, error) {
	c.targetNS, _ = attr(c.root, "targetNamespace")
	switch v, _ := attr(c.root, "elementFormDefault"); v {
	case "", "unqualified":
	case "qualified":
		c.qualifiedLocals = true
	default:
		return nil, errors.Newf("invalid elementFormDefault %q", v)
	}
	if v, _ := attr(c.root, "attributeFormDefault"); v == "qualified" {
		return nil, errors.New("qualified attributes are not supported")
	}

	for _, n := range childElements(c.root) {
		name, _ := attr(n, "name")
		switch n.Data {
		case "element":
			c.elementNodes[name] = n
		case "complexType":
			c.complexNodes[name] = n
		case "simpleType":
			c.simpleNodes[name] = n
		case "annotation":
		case "import", "include", "redefine":
			return nil, errors.Newf("xs:%s is not supported; the schema must be self-contained", n.Data)
		default:
			return nil, errors.Newf("unsupported top-level construct xs:%s", n.Data)
		}
	}

	out := make(map[string]*elementDecl, len(c.elementNodes))
	for name := range c.elementNodes {
		d, err := c.globalElement(name)
		if err != nil {
			return nil, err
		}
		out[name] = d
	}
	return out, nil
}

func (c *compiler) globalElement(name string) (*elementDecl, error) {
	if d, ok := c.elements[name]; ok {
		return d, nil
	}
	n, ok := c.elementNodes[name]
	if !ok {
		return nil, errors.Newf("element '%s' is referenced but not declared", name)
	}
	d := &elementDecl{name: name, ns: c.targetNS}
	// Register before compiling the body so recursive structures resolve.
	c.elements[name] = d
	if err := c.elementBody(n, d); err != nil {
		return nil, err
	}
	return d, nil
}

// localElement compiles an element inside a content model.
func (c *compiler) localElement(n *xmlquery.Node) (particle, error) {
	minOccurs, maxOccurs, err := occurs(n)
	if err != nil {
		return particle{}, err
	}
	p := particle{minOccurs: minOccurs, maxOccurs: maxOccurs}
	if ref, ok := attr(n, "ref"); ok {
		p.elem, err = c.globalElement(localPart(ref))
		return p, err
	}
	name, ok := attr(n, "name")
	if !ok || name == "" {
		return particle{}, errors.New("xs:element requires a name or ref")
	}
	qualified := c.qualifiedLocals
	switch form, _ := attr(n, "form"); form {
	case "":
	case "qualified":
		qualified = true
	case "unqualified":
		qualified = false
	default:
		return particle{}, errors.Newf("element '%s': invalid form %q", name, form)
	}
	p.elem = &elementDecl{name: name}
	if qualified {
		p.elem.ns = c.targetNS
	}
	if err := c.elementBody(n, p.elem); err != nil {
		return particle{}, err
	}
	return p, nil
}

func (c *compiler) elementBody(n *xmlquery.Node, d *elementDecl) error {
	if v, ok := attr(n, "fixed"); ok {
		d.fixed = &v
	}
	if typ, ok := attr(n, "type"); ok {
		return c.resolveType(typ, d)
	}
	for _, child := range childElements(n) {
		switch child.Data {
		case "complexType":
			ct, err := c.complexBody(child)
			if err != nil {
				return errors.Wrapf(err, "element '%s'", d.name)
			}
			d.complex = ct
		case "simpleType":
			st, err := c.simpleBody(child)
			if err != nil {
				return errors.Wrapf(err, "element '%s'", d.name)
			}
			d.simple = st
		case "annotation", "unique", "key", "keyref":
		default:
			return errors.Newf("element '%s': unsupported construct xs:%s", d.name, child.Data)
		}
	}
	return nil
}

func (c *compiler) resolveType(qname string, d *elementDecl) error {
	if c.isXSD(qname) {
		local := localPart(qname)
		if local == "anyType" {
			return nil
		}
		st, err := builtinType(local)
		if err != nil {
			return errors.Wrapf(err, "element '%s'", d.name)
		}
		d.simple = st
		return nil
	}
	local := localPart(qname)
	if _, ok := c.complexNodes[local]; ok {
		ct, err := c.namedComplex(local)
		if err != nil {
			return err
		}
		d.complex = ct
		return nil
	}
	st, err := c.namedSimple(local)
	if err != nil {
		return errors.Wrapf(err, "element '%s'", d.name)
	}
	d.simple = st
	return nil
}

func (c *compiler) namedComplex(name string) (*complexType, error) {
	if ct, ok := c.complexTypes[name]; ok {
		return ct, nil
	}
	n, ok := c.complexNodes[name]
	if !ok {
		return nil, errors.Newf("complex type '%s' is not declared", name)
	}
	ct := &complexType{}
	c.complexTypes[name] = ct
	body, err := c.complexBody(n)
	if err != nil {
		return nil, errors.Wrapf(err, "complex type '%s'", name)
	}
	*ct = *body
	return ct, nil
}

func (c *compiler) complexBody(n *xmlquery.Node) (*complexType, error) {
	ct := &complexType{}
	if v, ok := attr(n, "mixed"); ok && v == "true" {
		ct.mixed = true
	}
	for _, child := range childElements(n) {
		switch child.Data {
		case "sequence", "choice", "all":
			g, err := c.group(child)
			if err != nil {
				return nil, err
			}
			ct.content = g
		case "attribute":
			a, err := c.attribute(child)
			if err != nil {
				return nil, err
			}
			ct.attrs = append(ct.attrs, a)
		case "anyAttribute":
			ct.anyAttr = true
		case "simpleContent":
			if err := c.simpleContent(child, ct); err != nil {
				return nil, err
			}
		case "complexContent":
			if err := c.complexContent(child, ct); err != nil {
				return nil, err
			}
		case "annotation":
		default:
			return nil, errors.Newf("unsupported construct xs:%s in complex type", child.Data)
		}
	}
	return ct, nil
}

func (c *compiler) simpleContent(n *xmlquery.Node, ct *complexType) error {
	ext := firstElement(n)
	if ext == nil || ext.Data != "extension" {
		return errors.New("xs:simpleContent supports only xs:extension")
	}
	base, _ := attr(ext, "base")
	st, err := c.simpleRef(base)
	if err != nil {
		return err
	}
	ct.textType = st
	for _, child := range childElements(ext) {
		switch child.Data {
		case "attribute":
			a, err := c.attribute(child)
			if err != nil {
				return err
			}
			ct.attrs = append(ct.attrs, a)
		case "anyAttribute":
			ct.anyAttr = true
		case "annotation":
		default:
			return errors.Newf("unsupported construct xs:%s in simple content", child.Data)
		}
	}
	return nil
}

// complexContent supports extension only: the base content model is
// followed by the extension's own.
func (c *compiler) complexContent(n *xmlquery.Node, ct *complexType) error {
	ext := firstElement(n)
	if ext == nil || ext.Data != "extension" {
		return errors.New("xs:complexContent supports only xs:extension")
	}
	base, _ := attr(ext, "base")
	baseType, err := c.namedComplex(localPart(base))
	if err != nil {
		return err
	}
	own, err := c.complexBody(ext)
	if err != nil {
		return err
	}
	ct.attrs = append(append(ct.attrs, baseType.attrs...), own.attrs...)
	ct.anyAttr = ct.anyAttr || baseType.anyAttr || own.anyAttr
	ct.mixed = ct.mixed || baseType.mixed
	switch {
	case baseType.content == nil:
		ct.content = own.content
	case own.content == nil:
		ct.content = baseType.content
	default:
		ct.content = &particle{
			minOccurs: 1, maxOccurs: 1,
			grp: &group{kind: groupSequence, items: []particle{*baseType.content, *own.content}},
		}
	}
	return nil
}

func (c *compiler) group(n *xmlquery.Node) (*particle, error) {
	minOccurs, maxOccurs, err := occurs(n)
	if err != nil {
		return nil, err
	}
	g := &group{}
	switch n.Data {
	case "sequence":
		g.kind = groupSequence
	case "choice":
		g.kind = groupChoice
	case "all":
		g.kind = groupAll
	}
	for _, child := range childElements(n) {
		switch child.Data {
		case "element":
			p, err := c.localElement(child)
			if err != nil {
				return nil, err
			}
			g.items = append(g.items, p)
		case "sequence", "choice":
			if g.kind == groupAll {
				return nil, errors.New("xs:all may only contain elements")
			}
			sub, err := c.group(child)
			if err != nil {
				return nil, err
			}
			g.items = append(g.items, *sub)
		case "any":
			if g.kind == groupAll {
				return nil, errors.New("xs:all may only contain elements")
			}
			w, err := c.anyWildcard(child)
			if err != nil {
				return nil, err
			}
			lo, hi, err := occurs(child)
			if err != nil {
				return nil, err
			}
			g.items = append(g.items, particle{minOccurs: lo, maxOccurs: hi, wildcard: w})
		case "annotation":
		default:
			return nil, errors.Newf("unsupported construct xs:%s in xs:%s", child.Data, n.Data)
		}
	}
	return &particle{minOccurs: minOccurs, maxOccurs: maxOccurs, grp: g}, nil
}

// anyWildcard compiles xs:any. Strict processing would need declarations
// from other schemas, so only lax and skip are accepted.
func (c *compiler) anyWildcard(n *xmlquery.Node) (*wildcard, error) {
	w := &wildcard{targetNS: c.targetNS}
	switch pc, _ := attr(n, "processContents"); pc {
	case "lax":
		w.lax = true
	case "skip":
	case "", "strict":
		return nil, errors.New("xs:any requires processContents=\"lax\" or \"skip\"")
	default:
		return nil, errors.Newf("xs:any: invalid processContents %q", pc)
	}
	switch ns, _ := attr(n, "namespace"); ns {
	case "", "##any":
	case "##other":
		w.other = true
	default:
		w.namespaces = []string{}
		for _, token := range strings.Fields(ns) {
			switch token {
			case "##targetNamespace":
				w.namespaces = append(w.namespaces, c.targetNS)
			case "##local":
				w.namespaces = append(w.namespaces, "")
			default:
				w.namespaces = append(w.namespaces, token)
			}
		}
	}
	return w, nil
}

func (c *compiler) attribute(n *xmlquery.Node) (attributeDecl, error) {
	name, ok := attr(n, "name")
	if !ok {
		return attributeDecl{}, errors.New("xs:attribute requires a name")
	}
	if form, _ := attr(n, "form"); form == "qualified" {
		return attributeDecl{}, errors.Newf("attribute '%s': qualified attributes are not supported", name)
	}
	a := attributeDecl{name: name}
	if use, _ := attr(n, "use"); use == "required" {
		a.required = true
	}
	if v, ok := attr(n, "fixed"); ok {
		a.fixed = &v
	}
	if typ, ok := attr(n, "type"); ok {
		st, err := c.simpleRef(typ)
		if err != nil {
			return attributeDecl{}, errors.Wrapf(err, "attribute '%s'", name)
		}
		a.typ = st
		return a, nil
	}
	if inline := firstElement(n); inline != nil && inline.Data == "simpleType" {
		st, err := c.simpleBody(inline)
		if err != nil {
			return attributeDecl{}, errors.Wrapf(err, "attribute '%s'", name)
		}
		a.typ = st
	}
	return a, nil
}

// simpleRef resolves a type name that must be simple.
func (c *compiler) simpleRef(qname string) (*simpleType, error) {
	if c.isXSD(qname) {
		return builtinType(localPart(qname))
	}
	return c.namedSimple(localPart(qname))
}

func (c *compiler) namedSimple(name string) (*simpleType, error) {
	if st, ok := c.simpleTypes[name]; ok {
		return st, nil
	}
	n, ok := c.simpleNodes[name]
	if !ok {
		return nil, errors.Newf("type '%s' is not declared", name)
	}
	if c.inProgress[name] {
		return nil, errors.Newf("simple type '%s' derives from itself", name)
	}
	c.inProgress[name] = true
	defer delete(c.inProgress, name)

	st, err := c.simpleBody(n)
	if err != nil {
		return nil, errors.Wrapf(err, "simple type '%s'", name)
	}
	st.name = name
	c.simpleTypes[name] = st
	return st, nil
}

func (c *compiler) simpleBody(n *xmlquery.Node) (*simpleType, error) {
	var restriction *xmlquery.Node
	for _, child := range childElements(n) {
		switch child.Data {
		case "restriction":
			restriction = child
		case "annotation":
		default:
			return nil, errors.Newf("unsupported construct xs:%s in simple type", child.Data)
		}
	}
	if restriction == nil {
		return nil, errors.New("simple type has no xs:restriction")
	}

	baseName, _ := attr(restriction, "base")
	base, err := c.simpleRef(baseName)
	if err != nil {
		return nil, err
	}
	st := base.derive()
	for _, facet := range childElements(restriction) {
		if facet.Data == "annotation" {
			continue
		}
		value, _ := attr(facet, "value")
		if err := st.addFacet(facet.Data, value); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (c *compiler) isXSD(qname string) bool {
	prefix, _, found := strings.Cut(qname, ":")
	if !found {
		return c.xsdDefault
	}
	return c.xsdPrefixes[prefix]
}

func localPart(qname string) string {
	if i := strings.LastIndex(qname, ":"); i >= 0 {
		return qname[i+1:]
	}
	return qname
}

func occurs(n *xmlquery.Node) (int, int, error) {
	minOccurs, maxOccurs := 1, 1
	if v, ok := attr(n, "minOccurs"); ok {
		m, err := strconv.Atoi(v)
		if err != nil || m < 0 {
			return 0, 0, errors.Newf("invalid minOccurs %q", v)
		}
		minOccurs = m
	}
	if v, ok := attr(n, "maxOccurs"); ok {
		if v == "unbounded" {
			maxOccurs = unbounded
		} else {
			m, err := strconv.Atoi(v)
			if err != nil || m < 0 {
				return 0, 0, errors.Newf("invalid maxOccurs %q", v)
			}
			maxOccurs = m
		}
	}
	if maxOccurs != unbounded && maxOccurs < minOccurs {
		return 0, 0, errors.Newf("maxOccurs %d is less than minOccurs %d", maxOccurs, minOccurs)
	}
	return minOccurs, maxOccurs, nil
}
