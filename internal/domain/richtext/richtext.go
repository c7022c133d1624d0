// Package richtext validates rich-text documents against the restricted
// editor subset: paragraphs, links, h3/h4 headings, bullet and numbered
// lists, and bold/italic text.
package richtext

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Node types accepted in a document.
const (
	NodeRoot      = "root"
	NodeParagraph = "paragraph"
	NodeText      = "text"
	NodeLink      = "link"
	NodeHeading   = "heading"
	NodeLinebreak = "linebreak"
	NodeList      = "list"
	NodeListItem  = "listitem"
)

// Text format bits.
const (
	FormatBold   = 1 << 0
	FormatItalic = 1 << 1

	allowedFormatMask = FormatBold | FormatItalic
)

var (
	allowedNodeTypes = map[string]struct{}{
		NodeRoot: {}, NodeParagraph: {}, NodeText: {}, NodeLink: {},
		NodeHeading: {}, NodeLinebreak: {}, NodeList: {}, NodeListItem: {},
	}
	allowedHeadingTags = map[string]struct{}{"h3": {}, "h4": {}}
	allowedListTypes   = map[string]struct{}{"bullet": {}, "number": {}}
)

// Sentinel errors matched by Violation via errors.Is.
var (
	ErrDisallowedNodeType   = errors.New("disallowed node type")
	ErrDisallowedHeadingTag = errors.New("disallowed heading tag")
	ErrDisallowedListType   = errors.New("disallowed list type")
	ErrDisallowedFormatting = errors.New("disallowed formatting")
)

// Document is the top-level rich-text value.
type Document struct {
	Root *Node `json:"root"`
}

// Node is a single element of the document tree. Unknown attributes are ignored.
type Node struct {
	Type     string `json:"type"`
	Tag      string `json:"tag,omitempty"`
	ListType string `json:"listType,omitempty"`
	Format   Format `json:"format,omitempty"`
	Text     string `json:"text,omitempty"`
	URL      string `json:"url,omitempty"`
	Children []Node `json:"children,omitempty"`
}

// Format is the text format bitmask. Element nodes use string alignment
// values ("left", "") in the same attribute; those decode to zero.
type Format int

// UnmarshalJSON accepts numbers and ignores string alignment values.
func (f *Format) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] == '"' || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("format must be an integer bitmask: %w", err)
	}
	*f = Format(n)
	return nil
}

// Violation is the first disallowed element found in a document.
type Violation struct {
	Kind  error
	Value string
	Path  string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s %q at %s", v.Kind, v.Value, v.Path)
}

// Unwrap exposes the sentinel kind.
func (v *Violation) Unwrap() error { return v.Kind }

// Validate walks the document depth-first in pre-order and returns the first
// violation. A nil document or one without a root is valid.
func Validate(doc *Document) error {
	if doc == nil || doc.Root == nil {
		return nil
	}
	return walk(doc.Root, NodeRoot)
}

func walk(n *Node, path string) error {
	if err := check(n, path); err != nil {
		return err
	}
	for i := range n.Children {
		if err := walk(&n.Children[i], path+".children["+strconv.Itoa(i)+"]"); err != nil {
			return err
		}
	}
	return nil
}

func check(n *Node, path string) error {
	if _, ok := allowedNodeTypes[n.Type]; !ok {
		return &Violation{Kind: ErrDisallowedNodeType, Value: n.Type, Path: path}
	}
	switch n.Type {
	case NodeHeading:
		if _, ok := allowedHeadingTags[n.Tag]; !ok {
			return &Violation{Kind: ErrDisallowedHeadingTag, Value: n.Tag, Path: path}
		}
	case NodeList:
		if n.ListType != "" {
			if _, ok := allowedListTypes[n.ListType]; !ok {
				return &Violation{Kind: ErrDisallowedListType, Value: n.ListType, Path: path}
			}
		}
	case NodeText:
		if int(n.Format)&^allowedFormatMask != 0 {
			return &Violation{Kind: ErrDisallowedFormatting, Value: strconv.Itoa(int(n.Format)), Path: path}
		}
	}
	return nil
}

// SanitizeField is the field-level hook for raw JSON values. Empty input and
// JSON null are returned unchanged; otherwise the value is decoded, validated
// and returned as given.
func SanitizeField(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return raw, nil
	}
	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode rich text: %w", err)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return raw, nil
}
