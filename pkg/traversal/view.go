package traversal

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/pkg/document"
)

// renderCache is a cache of rendered BlockViews that the caller passes to
// ViewBlock; every session handed the same cache shares it (a Manager does
// not hold one itself). Unlike Cursor.history, a render is a pure
// function of (block id, view mode, document version) so recency-based
// eviction is the right fit here.
type renderCache struct {
	cache *lru.Cache[renderCacheKey, BlockView]
}

type renderCacheKey struct {
	id      blockid.BlockId
	mode    ViewMode
	length  int
	version uint64
}

func newRenderCache(size int) *renderCache {
	c, _ := lru.New[renderCacheKey, BlockView](size)
	return &renderCache{cache: c}
}

// ViewBlock projects id through mode, using the shared render cache keyed
// on the document's current version so a stale render never survives a
// write (spec §4.5.2 view_block).
func (s *Session) ViewBlock(cache *renderCache, id blockid.BlockId, mode ViewMode, previewLength int) (BlockView, error) {
	if err := s.allow(); err != nil {
		return BlockView{}, err
	}
	if err := s.checkCapability(s.Config.Capabilities.CanTraverse, "can_traverse"); err != nil {
		return BlockView{}, err
	}

	doc := s.engine.Document()
	key := renderCacheKey{id: id, mode: mode, length: previewLength, version: doc.Version.Counter}
	if cache != nil {
		if v, ok := cache.cache.Get(key); ok {
			return v, nil
		}
	}

	b, ok := doc.GetBlock(id)
	if !ok {
		return BlockView{}, &BlockNotFoundError{Id: id}
	}

	view := renderBlockView(b, mode, previewLength)
	if cache != nil {
		cache.cache.Add(key, view)
	}
	return view, nil
}

func renderBlockView(b *document.Block, mode ViewMode, previewLength int) BlockView {
	view := BlockView{Id: b.Id, Kind: string(b.Content.Kind)}
	if mode == ViewIdsOnly {
		return view
	}

	view.Label = b.Metadata.Label
	view.Tags = b.Metadata.Tags
	if mode == ViewMetadata {
		return view
	}

	preview := contentPreview(b)
	if mode == ViewPreview {
		if previewLength > 0 && len(preview) > previewLength {
			preview = preview[:previewLength]
		}
		view.Preview = preview
		return view
	}

	// ViewFull
	view.Preview = preview
	full := *b
	view.Full = &full
	return view
}

// contentPreview returns a short human-readable summary of a block's
// content, used both by ViewPreview and as ViewFull's preview field.
func contentPreview(b *document.Block) string {
	switch b.Content.Kind {
	case "text":
		return b.Content.Text
	case "code":
		return b.Content.Source
	case "math":
		return b.Content.Expression
	case "table":
		if len(b.Content.Columns) > 0 {
			return b.Content.Columns[0]
		}
		return ""
	case "json":
		return string(b.Content.Value)
	case "media":
		return b.Content.MediaRef
	case "binary":
		return b.Content.Mime
	case "composite":
		return b.Metadata.Summary
	default:
		return b.Metadata.Summary
	}
}

// ViewNeighborhood reports the cursor's ancestors, children, siblings, and
// outgoing semantic edges (spec §4.5.2 view_neighborhood).
func (s *Session) ViewNeighborhood() (NeighborhoodView, error) {
	if err := s.allow(); err != nil {
		return NeighborhoodView{}, err
	}
	if err := s.checkCapability(s.Config.Capabilities.CanTraverse, "can_traverse"); err != nil {
		return NeighborhoodView{}, err
	}

	s.mu.Lock()
	cursor := s.cursor.Current
	dangling := s.cursor.dangling
	s.mu.Unlock()

	if dangling {
		return NeighborhoodView{}, &DocumentChangedError{}
	}

	doc := s.engine.Document()
	b, ok := doc.GetBlock(cursor)
	if !ok {
		return NeighborhoodView{}, &BlockNotFoundError{Id: cursor}
	}

	view := NeighborhoodView{Cursor: cursor, Children: doc.Children(cursor), Semantic: b.Edges}
	if parent, ok := doc.Parent(cursor); ok {
		view.Ancestors = append(view.Ancestors, parent)
		for cur := parent; ; {
			next, ok := doc.Parent(cur)
			if !ok {
				break
			}
			view.Ancestors = append(view.Ancestors, next)
			cur = next
		}
		for _, sib := range doc.Children(parent) {
			if sib != cursor {
				view.Siblings = append(view.Siblings, sib)
			}
		}
	}
	return view, nil
}
