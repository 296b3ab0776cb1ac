package window

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Panel holds the named controls shown on the left of the window.
//
// Names follow "ui.<view>.<control>". Controls are read by viewports on the
// render goroutine and may be set from any goroutine (keyboard, config).
type Panel struct {
	mu      sync.Mutex
	vars    map[string]panelVar
	order   []string // Registration order, for drawing
	console bool
}

type panelVar interface {
	set(string) error
	text() string
}

// NewPanel returns an empty panel.
func NewPanel() *Panel {
	return &Panel{vars: make(map[string]panelVar)}
}

// Bool registers (or returns the existing) boolean control.
func (p *Panel) Bool(name string, def bool) *BoolVar {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v, ok := p.vars[name].(*BoolVar); ok {
		return v
	}
	v := &BoolVar{mu: &p.mu, value: def}
	p.register(name, v)
	return v
}

// Float registers (or returns the existing) slider in [lo, hi].
func (p *Panel) Float(name string, def, lo, hi float64) *FloatVar {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v, ok := p.vars[name].(*FloatVar); ok {
		return v
	}
	v := &FloatVar{mu: &p.mu, lo: lo, hi: hi}
	v.value = v.clamp(def)
	p.register(name, v)
	return v
}

// Button registers (or returns the existing) push button.
func (p *Panel) Button(name string) *ButtonVar {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v, ok := p.vars[name].(*ButtonVar); ok {
		return v
	}
	v := &ButtonVar{mu: &p.mu}
	p.register(name, v)
	return v
}

func (p *Panel) register(name string, v panelVar) {
	if _, ok := p.vars[name]; !ok {
		p.order = append(p.order, name)
	}
	p.vars[name] = v
}

// Set assigns a control from its text form ("true", "0.5", "press").
func (p *Panel) Set(name, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.vars[name]
	if !ok {
		return fmt.Errorf("panel: unknown control %q", name)
	}
	if err := v.set(value); err != nil {
		return fmt.Errorf("panel: set %s: %w", name, err)
	}
	return nil
}

// Names returns the registered control names, sorted.
func (p *Panel) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.vars))
	for name := range p.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lines returns "name = value" for every control in registration order.
func (p *Panel) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	lines := make([]string, 0, len(p.order))
	for _, name := range p.order {
		short := strings.TrimPrefix(name, "ui.")
		lines = append(lines, short+" = "+p.vars[name].text())
	}
	return lines
}

// ToggleConsole flips the console overlay flag.
func (p *Panel) ToggleConsole() {
	p.mu.Lock()
	p.console = !p.console
	p.mu.Unlock()
}

// ConsoleShown reports whether the console overlay is visible.
func (p *Panel) ConsoleShown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.console
}

// BoolVar is a checkbox control.
type BoolVar struct {
	mu    *sync.Mutex
	value bool
}

func (v *BoolVar) Get() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

func (v *BoolVar) Set(b bool) {
	v.mu.Lock()
	v.value = b
	v.mu.Unlock()
}

// Toggle flips the value and returns the new one.
func (v *BoolVar) Toggle() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value = !v.value
	return v.value
}

func (v *BoolVar) set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	v.value = b
	return nil
}

func (v *BoolVar) text() string { return strconv.FormatBool(v.value) }

// FloatVar is a slider control clamped to its range.
type FloatVar struct {
	mu     *sync.Mutex
	value  float64
	lo, hi float64
}

func (v *FloatVar) Get() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

// Set stores f clamped to the slider range.
func (v *FloatVar) Set(f float64) {
	v.mu.Lock()
	v.value = v.clamp(f)
	v.mu.Unlock()
}

// Range returns the slider bounds.
func (v *FloatVar) Range() (lo, hi float64) {
	return v.lo, v.hi
}

func (v *FloatVar) clamp(f float64) float64 {
	if f < v.lo {
		return v.lo
	}
	if f > v.hi {
		return v.hi
	}
	return f
}

func (v *FloatVar) set(s string) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	v.value = v.clamp(f)
	return nil
}

func (v *FloatVar) text() string { return strconv.FormatFloat(v.value, 'f', 2, 64) }

// ButtonVar is a push button; presses latch until read.
type ButtonVar struct {
	mu      *sync.Mutex
	pressed bool
}

// Press latches a press.
func (v *ButtonVar) Press() {
	v.mu.Lock()
	v.pressed = true
	v.mu.Unlock()
}

// Pushed reports and clears a latched press.
func (v *ButtonVar) Pushed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	p := v.pressed
	v.pressed = false
	return p
}

func (v *ButtonVar) set(string) error {
	v.pressed = true
	return nil
}

func (v *ButtonVar) text() string { return "[button]" }
