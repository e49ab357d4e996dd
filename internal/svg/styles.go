package svg

import (
	"sort"
	"sync"
)

// StyleRegistry holds stylesheet blocks shared by every document in the
// process. A block is registered once under its id; later registrations of the
// same id are ignored.
type StyleRegistry struct {
	mu     sync.Mutex
	blocks map[string]string
	order  []string
}

// Styles is the process-wide registry.
var Styles = NewStyleRegistry()

func NewStyleRegistry() *StyleRegistry {
	return &StyleRegistry{blocks: make(map[string]string)}
}

// Register stores css under id and reports whether this call added it.
func (r *StyleRegistry) Register(id, css string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blocks[id]; ok {
		return false
	}
	r.blocks[id] = css
	r.order = append(r.order, id)
	return true
}

func (r *StyleRegistry) Get(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	css, ok := r.blocks[id]
	return css, ok
}

// IDs returns the registered ids in registration order.
func (r *StyleRegistry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Reset drops every block. Called on shutdown.
func (r *StyleRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = make(map[string]string)
	r.order = nil
}

// StyleElement builds a <style> element holding the given registered blocks.
// Unknown ids are skipped.
func (r *StyleRegistry) StyleElement(ids ...string) *Element {
	r.mu.Lock()
	defer r.mu.Unlock()
	sorted := append([]string(nil), ids...)
	index := make(map[string]int, len(r.order))
	for i, id := range r.order {
		index[id] = i
	}
	sort.SliceStable(sorted, func(i, j int) bool { return index[sorted[i]] < index[sorted[j]] })
	el := New("style")
	el.SetAttr("type", "text/css")
	for _, id := range sorted {
		if css, ok := r.blocks[id]; ok {
			el.Raw += css
		}
	}
	return el
}
