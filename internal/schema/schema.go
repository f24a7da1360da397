// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schema loads the party XSD and validates party.xml against it.
//
// Only structural validation is performed: element presence, order,
// cardinality, attributes, and simple-type values. Elements are matched
// by expanded name, so a schema with a targetNamespace only accepts
// documents in that namespace. The XSD must be self-contained;
// constructs outside the supported subset, including xs:import,
// xs:include, and strict wildcards, are rejected at load time.
package schema

import (
	"io"
	"os"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/cockroachdb/errors"

	"github.com/pdiddy/case-intake/internal/failure"
)

// ApplicationNoPath locates the application number in party.xml.
const ApplicationNoPath = "/party/applicationno"

// ErrEmptyIdentifier marks a document that passed validation but whose
// identifier is empty or whitespace.
var ErrEmptyIdentifier = errors.New("unable to get application number")

// Schema is a loaded XSD, ready to validate documents.
type Schema struct {
	elements map[string]*elementDecl
}

// Load reads and compiles the XSD at path. Any I/O, parse, or compile
// failure is a SchemaLoad error carrying the cause.
func Load(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, failure.Wrap(err, failure.SchemaLoad, "Unable to load schema '%s': %v", path, err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, failure.Wrap(err, failure.SchemaLoad, "Unable to load schema '%s': %v", path, err)
	}
	return s, nil
}

// Parse compiles an XSD from r.
func Parse(r io.Reader) (*Schema, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "parsing XSD")
	}
	root := firstElement(doc)
	if root == nil || root.Data != "schema" {
		return nil, errors.New("document root is not an xs:schema element")
	}

	c := newCompiler(root)
	elements, err := c.compile()
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, errors.New("schema declares no global elements")
	}
	return &Schema{elements: elements}, nil
}

// Validate checks a parsed document against the schema. The first
// violation found is returned as a Validation error.
func (s *Schema) Validate(doc *xmlquery.Node) error {
	root := firstElement(doc)
	if root == nil {
		return failure.New(failure.Validation, "Root element is missing.")
	}
	decl, ok := s.elements[root.Data]
	if !ok || !decl.matches(root) {
		return failure.New(failure.Validation, "The '%s' element is not declared.", qualifiedName(root.NamespaceURI, root.Data))
	}
	v := &validator{globals: s.elements}
	if err := v.element(root, decl); err != nil {
		return failure.Wrap(err, failure.Validation, "%s", err.Error())
	}
	return nil
}

// ValidateAndExtractIdentifier parses r, validates it against s, and
// returns the trimmed text at path. A missing element and an empty value
// are both Validation errors; the latter wraps ErrEmptyIdentifier.
func ValidateAndExtractIdentifier(r io.Reader, s *Schema, path string) (string, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return "", failure.Wrap(err, failure.Validation, "Unable to parse XML: %v", err)
	}
	if err := s.Validate(doc); err != nil {
		return "", err
	}

	node, err := xmlquery.Query(doc, path)
	if err != nil {
		return "", failure.Wrap(err, failure.Unexpected, "Invalid identifier path '%s': %v", path, err)
	}
	if node == nil {
		return "", failure.New(failure.Validation, "Element '%s' was not found.", path)
	}
	id := strings.TrimSpace(node.InnerText())
	if id == "" {
		return "", failure.Wrap(ErrEmptyIdentifier, failure.Validation, "%s", ErrEmptyIdentifier.Error())
	}
	return id, nil
}

func firstElement(n *xmlquery.Node) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

func childElements(n *xmlquery.Node) []*xmlquery.Node {
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

func attr(n *xmlquery.Node, local string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == local && a.Name.Space == "" {
			return a.Value, true
		}
	}
	return "", false
}

// textContent concatenates direct text and CDATA children.
func textContent(n *xmlquery.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.TextNode || c.Type == xmlquery.CharDataNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
