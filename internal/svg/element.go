package svg

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Attr is a single name/value pair. Attributes and styles keep insertion order
// so rendered documents are stable.
type Attr struct {
	Name  string
	Value string
}

// Animation is a recorded transition of one attribute or style property.
// The element already carries the final value; the animation only describes
// how a renderer should get there.
type Animation struct {
	Attribute string
	From      string
	To        string
	Dur       time.Duration
	Begin     time.Duration
}

// Element is a node of the retained drawing tree. It is used for the SVG
// surface as well as for the HTML host, legend and tooltip nodes.
type Element struct {
	Tag string
	// Text is escaped on output. Raw is written verbatim after Text.
	Text string
	Raw  string

	attrs    []Attr
	styles   []Attr
	classes  []string
	children []*Element
	parent   *Element
	anims    []Animation
	exiting  bool
}

// New creates a detached element.
func New(tag string, classes ...string) *Element {
	e := &Element{Tag: tag}
	for _, c := range classes {
		e.AddClass(c)
	}
	return e
}

func setPair(list []Attr, name, value string) []Attr {
	for i := range list {
		if list[i].Name == name {
			list[i].Value = value
			return list
		}
	}
	return append(list, Attr{Name: name, Value: value})
}

func getPair(list []Attr, name string) (string, bool) {
	for _, a := range list {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func dropPair(list []Attr, name string) []Attr {
	for i := range list {
		if list[i].Name == name {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// SetAttr sets an attribute. The "class" attribute is managed through
// AddClass and friends.
func (e *Element) SetAttr(name, value string) *Element {
	if name == "class" {
		e.classes = nil
		for _, c := range strings.Fields(value) {
			e.AddClass(c)
		}
		return e
	}
	e.attrs = setPair(e.attrs, name, value)
	return e
}

// SetNum sets a numeric attribute.
func (e *Element) SetNum(name string, v float64) *Element {
	return e.SetAttr(name, Num(v))
}

func (e *Element) Attr(name string) (string, bool) {
	if name == "class" {
		return strings.Join(e.classes, " "), len(e.classes) > 0
	}
	return getPair(e.attrs, name)
}

// NumAttr parses a numeric attribute, returning NaN when absent or malformed.
func (e *Element) NumAttr(name string) float64 {
	v, ok := e.Attr(name)
	if !ok {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func (e *Element) RemoveAttr(name string) *Element {
	e.attrs = dropPair(e.attrs, name)
	return e
}

// SetStyle sets an inline style property; an empty value removes it.
func (e *Element) SetStyle(name, value string) *Element {
	if value == "" {
		e.styles = dropPair(e.styles, name)
		return e
	}
	e.styles = setPair(e.styles, name, value)
	return e
}

func (e *Element) Style(name string) string {
	v, _ := getPair(e.styles, name)
	return v
}

func (e *Element) AddClass(c string) *Element {
	if c == "" || e.HasClass(c) {
		return e
	}
	e.classes = append(e.classes, c)
	return e
}

func (e *Element) HasClass(c string) bool {
	for _, have := range e.classes {
		if have == c {
			return true
		}
	}
	return false
}

func (e *Element) Classes() []string {
	return append([]string(nil), e.classes...)
}

func (e *Element) Parent() *Element { return e.parent }

func (e *Element) Children() []*Element {
	return append([]*Element(nil), e.children...)
}

// Append adds child as the last child, detaching it from any previous parent.
func (e *Element) Append(child *Element) *Element {
	child.Remove()
	child.parent = e
	e.children = append(e.children, child)
	return child
}

// InsertBefore inserts child before ref. A nil or foreign ref appends.
func (e *Element) InsertBefore(child, ref *Element) *Element {
	child.Remove()
	for i, c := range e.children {
		if c == ref {
			child.parent = e
			e.children = append(e.children[:i], append([]*Element{child}, e.children[i:]...)...)
			return child
		}
	}
	return e.Append(child)
}

// Remove detaches the element from its parent.
func (e *Element) Remove() {
	p := e.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == e {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	e.parent = nil
}

// Raise moves the element to the end of its parent's children so it paints last.
func (e *Element) Raise() {
	p := e.parent
	if p == nil {
		return
	}
	p.Append(e)
}

// Clear removes every child.
func (e *Element) Clear() {
	for _, c := range e.children {
		c.parent = nil
	}
	e.children = nil
}

// Find walks the subtree depth first, excluding e itself.
func (e *Element) Find(match func(*Element) bool) []*Element {
	var out []*Element
	var walk func(n *Element)
	walk = func(n *Element) {
		for _, c := range n.children {
			if match(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(e)
	return out
}

// SelectClass returns every descendant carrying class c.
func (e *Element) SelectClass(c string) []*Element {
	return e.Find(func(n *Element) bool { return n.HasClass(c) })
}

// First returns the first descendant carrying class c, or nil.
func (e *Element) First(c string) *Element {
	if found := e.SelectClass(c); len(found) > 0 {
		return found[0]
	}
	return nil
}

// ByID returns the first descendant with the given id attribute.
func (e *Element) ByID(id string) *Element {
	found := e.Find(func(n *Element) bool {
		v, ok := n.Attr("id")
		return ok && v == id
	})
	if len(found) == 0 {
		return nil
	}
	return found[0]
}

// Animate records a transition, replacing any earlier one on the same
// attribute so repeated transitions overwrite rather than stack.
func (e *Element) Animate(a Animation) *Element {
	for i := range e.anims {
		if e.anims[i].Attribute == a.Attribute {
			e.anims[i] = a
			return e
		}
	}
	e.anims = append(e.anims, a)
	return e
}

func (e *Element) Animations() []Animation {
	return append([]Animation(nil), e.anims...)
}

// Animation returns the recorded transition for attribute, if any.
func (e *Element) Animation(attribute string) (Animation, bool) {
	for _, a := range e.anims {
		if a.Attribute == attribute {
			return a, true
		}
	}
	return Animation{}, false
}

// MarkExiting flags the element for removal at the next Settle.
func (e *Element) MarkExiting() { e.exiting = true }

func (e *Element) Exiting() bool { return e.exiting }

// Settle removes every exiting descendant and returns how many were removed.
func (e *Element) Settle() int {
	gone := e.Find(func(n *Element) bool { return n.exiting })
	for _, n := range gone {
		n.Remove()
	}
	return len(gone)
}

// Num formats a coordinate with at most three decimals.
func Num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NaN"
	}
	r := math.Round(v*1000) / 1000
	if r == 0 {
		r = 0 // normalise -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
