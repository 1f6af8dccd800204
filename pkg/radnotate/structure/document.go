package structure

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/radnotate/radnotate/pkg/radnotate/internalerr"
)

// Element is one node of a parsed annotation document. Name.Space carries the
// namespace URI when the source element was qualified.
type Element struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Text     string
	Children []*Element
}

// Document is a fully loaded annotation document with its root namespace
// resolved. Lookups match elements in the root's namespace, or unqualified
// elements when the root had none.
type Document struct {
	Root      *Element
	Namespace string // root namespace URI, empty when unqualified
	Path      string // source path, empty for in-memory documents
}

// Load reads and parses an annotation document from disk.
//
// A missing file yields ErrNotFound; unparsable XML yields ErrMalformedInput,
// wrapped with the source path.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, internalerr.ErrNotFound)
		}
		return nil, err
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// Parse reads an annotation document from a reader.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)

	root, err := decodeElement(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrMalformedInput, err)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", internalerr.ErrMalformedInput)
	}

	return &Document{Root: root, Namespace: root.Name.Space}, nil
}

// decodeElement consumes tokens until the first start element and builds the
// subtree beneath it.
func decodeElement(dec *xml.Decoder) (*Element, error) {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return buildElement(dec, start)
		}
	}
}

func buildElement(dec *xml.Decoder, start xml.StartElement) (*Element, error) {
	el := &Element{Name: start.Name, Attrs: start.Attr}
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := buildElement(dec, t)
			if err != nil {
				return nil, err
			}
			el.Children = append(el.Children, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			el.Text = strings.TrimSpace(text.String())
			return el, nil
		}
	}
}

// Find returns the first direct child whose local name matches and whose
// namespace matches the document's root namespace.
func (d *Document) Find(parent *Element, local string) *Element {
	for _, c := range parent.Children {
		if c.Name.Local == local && c.Name.Space == d.Namespace {
			return c
		}
	}
	return nil
}

// FindAll returns every direct child matching local name and namespace.
func (d *Document) FindAll(parent *Element, local string) []*Element {
	var out []*Element
	for _, c := range parent.Children {
		if c.Name.Local == local && c.Name.Space == d.Namespace {
			out = append(out, c)
		}
	}
	return out
}

// Descendants returns every element under parent (at any depth) matching
// local name and namespace, in document order.
func (d *Document) Descendants(parent *Element, local string) []*Element {
	var out []*Element
	var walk func(*Element)
	walk = func(e *Element) {
		for _, c := range e.Children {
			if c.Name.Local == local && c.Name.Space == d.Namespace {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(parent)
	return out
}

// Text returns the trimmed text of a direct child, or "" when the child is
// absent or empty.
func (d *Document) Text(parent *Element, local string) string {
	if c := d.Find(parent, local); c != nil {
		return c.Text
	}
	return ""
}

// RootLocal returns the root element's local name.
func (d *Document) RootLocal() string {
	return d.Root.Name.Local
}
