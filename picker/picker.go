// Package picker lets a user pick one catalog element for an ingredient line,
// then choose its unit and type a quantity.
package picker

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/GabrielGBraga/mise/models"
)

const (
	MinQueryLength = 2
	SearchLimit    = 10
)

var (
	ErrNoElement   = errors.New("no element selected")
	ErrUnknownUnit = errors.New("unit not offered by the selected element")
)

// Value is one ingredient line as the user edits it. Quantity is kept as typed.
type Value struct {
	Element  *models.Element
	Quantity string
	Unit     string
}

type Searcher interface {
	SearchElements(ctx context.Context, query string, limit int) ([]models.Element, error)
}

type Picker struct {
	searcher Searcher
	onChange func(Value)

	mu      sync.Mutex
	value   Value
	results []models.Element
	open    bool
	// gen is bumped by every search; only the newest one may write results.
	gen uint64
}

func New(searcher Searcher, onChange func(Value)) *Picker {
	if onChange == nil {
		onChange = func(Value) {}
	}
	return &Picker{searcher: searcher, onChange: onChange}
}

func (p *Picker) Value() Value {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

func (p *Picker) Results() []models.Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Element, len(p.results))
	copy(out, p.results)
	return out
}

func (p *Picker) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

func (p *Picker) Open() {
	p.mu.Lock()
	p.open = true
	p.mu.Unlock()
}

func (p *Picker) Close() {
	p.mu.Lock()
	p.open = false
	p.mu.Unlock()
}

// Search looks the query up in the catalog. Queries shorter than
// MinQueryLength clear the results without a request. Failures are logged
// and leave the results empty.
func (p *Picker) Search(ctx context.Context, query string) {
	query = strings.TrimSpace(query)

	p.mu.Lock()
	p.gen++
	gen := p.gen
	if len([]rune(query)) < MinQueryLength {
		p.results = nil
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	els, err := p.searcher.SearchElements(ctx, query, SearchLimit)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return
	}
	if err != nil {
		log.Printf("⚠️ element search %q: %v", query, err)
		p.results = nil
		return
	}
	p.results = els
}

// Select picks el, defaults the unit to its first one and closes the picker.
func (p *Picker) Select(el models.Element) {
	p.mu.Lock()
	chosen := el
	chosen.Units = append([]string(nil), el.Units...)
	p.value.Element = &chosen
	p.value.Unit = ""
	if len(chosen.Units) > 0 {
		p.value.Unit = chosen.Units[0]
	}
	p.open = false
	v := p.value
	p.mu.Unlock()
	p.onChange(v)
}

func (p *Picker) SetUnit(unit string) error {
	p.mu.Lock()
	if p.value.Element == nil {
		p.mu.Unlock()
		return ErrNoElement
	}
	found := false
	for _, u := range p.value.Element.Units {
		if u == unit {
			found = true
			break
		}
	}
	if !found {
		p.mu.Unlock()
		return ErrUnknownUnit
	}
	p.value.Unit = unit
	v := p.value
	p.mu.Unlock()
	p.onChange(v)
	return nil
}

func (p *Picker) SetQuantity(q string) {
	p.mu.Lock()
	p.value.Quantity = q
	v := p.value
	p.mu.Unlock()
	p.onChange(v)
}
