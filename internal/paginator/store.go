package paginator

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Page is one unit of displayable content: a text body (possibly empty)
// and an optional embed. Pages are never mutated by the controller, only
// read.
type Page struct {
	// Content is the plain-text body of the page. May be empty when the
	// page is embed-only.
	Content string

	// Embed is the optional structured visual attachment for the page.
	Embed *discordgo.MessageEmbed
}

// IsEmpty reports whether the page carries neither text nor an embed.
func (p Page) IsEmpty() bool {
	return p.Content == "" && p.Embed == nil
}

// PageStore is an immutable, pre-built ordered sequence of pages for one
// session. The navigator is the sole index-bearing caller; it guarantees
// every access stays in bounds.
type PageStore struct {
	pages []Page
}

// NewPageStore builds a store from the given pages. The sequence is
// copied, so later mutation of the input slice does not affect the store.
// An empty sequence is rejected: a session cannot exist without at least
// one page.
func NewPageStore(pages []Page) (*PageStore, error) {
	if len(pages) == 0 {
		return nil, ErrInvalidInput("page sequence must contain at least one page", nil)
	}

	copied := make([]Page, len(pages))
	copy(copied, pages)

	return &PageStore{pages: copied}, nil
}

// PageCount returns the fixed number of pages in the store.
func (s *PageStore) PageCount() int {
	return len(s.pages)
}

// PageAt returns the page at index i. An out-of-range index is a
// programming error, not a recoverable runtime condition: the navigation
// state machine maintains the index invariant and is the only caller.
func (s *PageStore) PageAt(i int) Page {
	if i < 0 || i >= len(s.pages) {
		panic(fmt.Sprintf("paginator: page index %d out of range [0,%d)", i, len(s.pages)))
	}
	return s.pages[i]
}
