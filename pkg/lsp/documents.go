package lsp

import (
	"net/url"
	"strings"
	"sync"

	"github.com/walteh/emmetls/pkg/engine"
	"github.com/walteh/emmetls/pkg/lsp/protocol"
	"github.com/walteh/emmetls/pkg/position"
	"github.com/walteh/emmetls/pkg/textbuf"
	"github.com/walteh/emmetls/pkg/tracker"
)

// Document is an open text document. The buffer caret is inferred from the
// edits and positions the client sends.
type Document struct {
	*textbuf.Buffer

	URI        protocol.DocumentURI
	LanguageID string
	Version    int32

	// Syntax is empty when abbreviations are disabled for the document.
	Syntax string
	Config *engine.Config

	caretKnown bool
}

func newDocument(item protocol.TextDocumentItem) *Document {
	return &Document{
		Buffer:     textbuf.New(item.Text),
		URI:        item.URI,
		LanguageID: item.LanguageID,
		Version:    item.Version,
	}
}

func (d *Document) EditorID() tracker.EditorID {
	return tracker.EditorID(normalizeURI(string(d.URI)))
}

// Path is the filesystem path of the document, or "" for other schemes.
func (d *Document) Path() string {
	return uriToPath(d.URI)
}

func (d *Document) Offset(p protocol.Position) int {
	return position.OffsetFromPlace(d.String(), position.Place{Line: int(p.Line), Character: int(p.Character)})
}

func (d *Document) Region(r protocol.Range) position.Region {
	return position.RegionFromRange(d.String(), toPositionRange(r))
}

func (d *Document) Range(r position.Region) protocol.Range {
	return toProtocolRange(position.RangeFromRegion(d.String(), r))
}

func toPositionRange(r protocol.Range) position.Range {
	return position.Range{
		Start: position.Place{Line: int(r.Start.Line), Character: int(r.Start.Character)},
		End:   position.Place{Line: int(r.End.Line), Character: int(r.End.Character)},
	}
}

func toProtocolRange(r position.Range) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: uint32(r.Start.Line), Character: uint32(r.Start.Character)},
		End:   protocol.Position{Line: uint32(r.End.Line), Character: uint32(r.End.Character)},
	}
}

// normalizeURI strips the file scheme so that the same file always maps to
// the same key.
func normalizeURI(uri string) string {
	uri = strings.TrimPrefix(uri, "file://")
	return strings.TrimPrefix(uri, "file:")
}

func uriToPath(uri protocol.DocumentURI) string {
	u, err := url.Parse(string(uri))
	if err != nil || (u.Scheme != "file" && u.Scheme != "") {
		return ""
	}
	return u.Path
}

// DocumentManager handles document operations
type DocumentManager struct {
	store *sync.Map // map[string]*Document
}

func NewDocumentManager() *DocumentManager {
	return &DocumentManager{store: &sync.Map{}}
}

func (m *DocumentManager) Get(uri protocol.DocumentURI) (*Document, bool) {
	v, ok := m.store.Load(normalizeURI(string(uri)))
	if !ok {
		return nil, false
	}
	return v.(*Document), true
}

func (m *DocumentManager) GetByID(id tracker.EditorID) (*Document, bool) {
	v, ok := m.store.Load(string(id))
	if !ok {
		return nil, false
	}
	return v.(*Document), true
}

func (m *DocumentManager) Store(doc *Document) {
	m.store.Store(normalizeURI(string(doc.URI)), doc)
}

func (m *DocumentManager) Delete(uri protocol.DocumentURI) {
	m.store.Delete(normalizeURI(string(uri)))
}

// Range calls fn for every open document until fn returns false.
func (m *DocumentManager) Range(fn func(*Document) bool) {
	m.store.Range(func(_, v any) bool {
		return fn(v.(*Document))
	})
}
