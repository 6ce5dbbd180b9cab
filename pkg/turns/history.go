package turns

// History is the ordered, append-only log of conversation items shared by all
// stages of one workflow run.
//
// A History is a value: Append never touches the receiver's backing array, so a
// snapshot handed to one agent call stays valid while later items are added.
// Blocks are copied on the way in and on the way out; a Block is immutable once
// appended.
type History struct {
	blocks  []Block
	version int64
}

// NewHistory creates a History seeded with the given blocks.
func NewHistory(seed ...Block) History {
	return Append(History{}, seed...)
}

// NewHistoryFromUserPrompt creates a History holding a single user text block.
func NewHistoryFromUserPrompt(text string) History {
	return NewHistory(NewUserTextBlock(text))
}

// Append returns a new History with items added at the end, in order.
// Appending nothing returns h unchanged. There is no deduplication and no size cap.
func Append(h History, items ...Block) History {
	if len(items) == 0 {
		return h
	}
	blocks := make([]Block, 0, len(h.blocks)+len(items))
	blocks = append(blocks, h.blocks...)
	for _, b := range items {
		blocks = append(blocks, b.Clone())
	}
	return History{
		blocks:  blocks,
		version: h.version + 1,
	}
}

// Len returns the number of items in the history.
func (h History) Len() int {
	return len(h.blocks)
}

// IsEmpty reports whether the history has no items.
func (h History) IsEmpty() bool {
	return len(h.blocks) == 0
}

// Version counts the non-empty appends that produced this history.
func (h History) Version() int64 {
	return h.version
}

// Blocks returns a copy of the items, in order.
func (h History) Blocks() []Block {
	if len(h.blocks) == 0 {
		return nil
	}
	out := make([]Block, len(h.blocks))
	for i, b := range h.blocks {
		out[i] = b.Clone()
	}
	return out
}

// At returns a copy of the i-th item.
func (h History) At(i int) Block {
	return h.blocks[i].Clone()
}

// Last returns a copy of the last item and false when the history is empty.
func (h History) Last() (Block, bool) {
	if len(h.blocks) == 0 {
		return Block{}, false
	}
	return h.blocks[len(h.blocks)-1].Clone(), true
}
