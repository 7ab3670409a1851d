// Package linkmodel defines the shared data model for links, anchors, and
// headings extracted from an Obsidian-flavored Markdown document. Every
// component downstream of the parser (validator, extractor) reads and
// enriches these same types rather than wrapping them.
package linkmodel

// LinkType distinguishes Markdown-style links from Obsidian wiki-links.
type LinkType string

const (
	LinkTypeMarkdown LinkType = "markdown"
	LinkTypeWiki     LinkType = "wiki"
)

// LinkScope distinguishes an anchor-only reference within the same document
// from one that points at another file.
type LinkScope string

const (
	ScopeInternal      LinkScope = "internal"
	ScopeCrossDocument LinkScope = "cross-document"
)

// AnchorType classifies the fragment a link or AnchorObject addresses.
type AnchorType string

const (
	AnchorTypeHeader AnchorType = "header"
	AnchorTypeBlock  AnchorType = "block"
)

// ValidationStatus is the discriminant of ValidationMetadata.
type ValidationStatus string

const (
	StatusValid   ValidationStatus = "valid"
	StatusWarning ValidationStatus = "warning"
	StatusError   ValidationStatus = "error"
)

// PathConversion is offered when a link's target was resolved through a
// different directory than the written path implies.
type PathConversion struct {
	Type        string `json:"type"`
	Original    string `json:"original"`
	Recommended string `json:"recommended"`
}

// ValidationMetadata is attached in place to a Link once CitationValidator
// has run. It is a discriminated union keyed by Status; Error/Suggestion/
// PathConversion are only meaningful for warning and error statuses.
type ValidationMetadata struct {
	Status         ValidationStatus `json:"status"`
	Error          string           `json:"error,omitempty"`
	Suggestion     string           `json:"suggestion,omitempty"`
	PathConversion *PathConversion  `json:"pathConversion,omitempty"`
}

// Path carries the raw, resolved-absolute, and resolved-relative forms of
// a link target path.
type Path struct {
	Raw      string `json:"raw"`
	Absolute string `json:"absolute,omitempty"`
	Relative string `json:"relative,omitempty"`
}

// SourcePath identifies the file a link was extracted from.
type SourcePath struct {
	Absolute string `json:"absolute"`
}

// ExtractionMarker is a %%…%% or <!-- … --> instruction trailing a link.
type ExtractionMarker struct {
	FullMatch string `json:"fullMatch"`
	InnerText string `json:"innerText"`
}

// Link is one outgoing reference found in a source document. It is the
// single object every component reads and enriches; the validator attaches
// Validation in place rather than wrapping or copying the value.
type Link struct {
	LinkType LinkType
	Scope    LinkScope

	// AnchorType is the empty string for a full-file link (target.anchor == nil).
	AnchorType AnchorType

	Source SourcePath
	Target struct {
		Path   Path
		Anchor string // the fragment after '#', un-normalized; "" means no anchor
	}

	Text      string
	FullMatch string
	Line      int // 1-indexed
	Column    int // 0-indexed

	ExtractionMarker *ExtractionMarker

	// Validation is nil until CitationValidator.ValidateFile runs.
	Validation *ValidationMetadata
}

// HasAnchor reports whether the link carries a target fragment at all.
func (l *Link) HasAnchor() bool {
	return l.Target.Anchor != ""
}

// Anchor is one addressable fragment within a parsed document: a header
// (matched by text) or a block reference (matched by id).
type Anchor struct {
	AnchorType   AnchorType
	ID           string // raw header text, or block id without '^'
	URLEncodedID string // headers only: colons stripped, whitespace -> %20
	RawText      string
	FullMatch    string
	Line         int
	Column       int
}

// Heading is one heading line found in a document.
type Heading struct {
	Level int // 1-6
	Text  string
	Raw   string
}
