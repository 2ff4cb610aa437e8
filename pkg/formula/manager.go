package formula

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapsmt/pkg/core"
	"github.com/leapstack-labs/leapsmt/pkg/operator"
	"github.com/leapstack-labs/leapsmt/pkg/sorts"
)

// DefaultFreshTemplate is the name template used by FreshSymbol.
const DefaultFreshTemplate = "FV%d"

// SortOracle computes the sort of a node whose arguments are already typed.
// The environment installs the type-checker walker here.
type SortOracle func(n *Node) (*sorts.Sort, error)

// Renderer renders a node as text. The environment installs a printer pass.
type Renderer func(n *Node) string

// Manager owns the canonical node pool.
type Manager struct {
	mu      sync.RWMutex
	nodes   []*Node          // arena; nodes[id-1]
	index   map[string]*Node // structural key -> canonical node
	symbols map[string]*Node // symbol name -> node
	fresh   int

	sorts         *sorts.Registry
	ops           *operator.Registry
	oracle        SortOracle
	renderer      Renderer
	freshTemplate string
	owner         string
	logger        *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithSortOracle sets the function computing node sorts.
func WithSortOracle(o SortOracle) Option {
	return func(m *Manager) { m.oracle = o }
}

// WithRenderer sets the function used by Node.String.
func WithRenderer(r Renderer) Option {
	return func(m *Manager) { m.renderer = r }
}

// WithFreshTemplate sets the printf template for fresh symbol names.
// The template must contain exactly one %d verb.
func WithFreshTemplate(tmpl string) Option {
	return func(m *Manager) {
		if tmpl != "" {
			m.freshTemplate = tmpl
		}
	}
}

// WithOwner tags the manager with the id of its environment.
func WithOwner(owner string) Option {
	return func(m *Manager) { m.owner = owner }
}

// WithLogger sets the logger (nil uses a discard logger).
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates an empty pool over the given registries.
func NewManager(sortReg *sorts.Registry, ops *operator.Registry, opts ...Option) *Manager {
	m := &Manager{
		index:         make(map[string]*Node),
		symbols:       make(map[string]*Node),
		sorts:         sortReg,
		ops:           ops,
		freshTemplate: DefaultFreshTemplate,
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Sorts returns the sort registry used by the manager.
func (m *Manager) Sorts() *sorts.Registry { return m.sorts }

// Operators returns the operator registry used by the manager.
func (m *Manager) Operators() *operator.Registry { return m.ops }

// Owner returns the environment tag of the manager.
func (m *Manager) Owner() string { return m.owner }

// Size returns the number of canonical nodes.
func (m *Manager) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// Lookup returns the node with the given handle.
func (m *Manager) Lookup(id NodeID) (*Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !id.IsValid() || int(id) > len(m.nodes) {
		return nil, false
	}
	return m.nodes[id-1], true
}

// CreateNode returns the canonical node for (op, args, payload), building
// and type checking it if it does not exist yet. Nothing is interned when
// an error is returned.
func (m *Manager) CreateNode(op operator.Type, args []*Node, payload any) (*Node, error) {
	n, _, err := m.intern(op, args, payload)
	return n, err
}

// intern is CreateNode that also reports whether the node was new.
func (m *Manager) intern(op operator.Type, args []*Node, payload any) (*Node, bool, error) {
	if !m.ops.IsRegistered(op) {
		return nil, false, core.NewValueError("formula.CreateNode", "operator %s is not registered", op)
	}
	for i, a := range args {
		if a == nil {
			return nil, false, core.NewValueError("formula.CreateNode", "argument %d of %s is nil", i, m.ops.Name(op))
		}
		if a.owner != m {
			return nil, false, core.NewValueError("formula.CreateNode",
				"argument %d of %s belongs to another environment (%s)", i, m.ops.Name(op), a.owner.Owner())
		}
	}
	if op.IsLeaf() {
		if err := m.checkLeaf(op, args, payload); err != nil {
			return nil, false, err
		}
	}

	pkey, err := payloadKey(payload)
	if err != nil {
		return nil, false, err
	}
	key := structuralKey(op, args, pkey)

	m.mu.RLock()
	existing, ok := m.index[key]
	m.mu.RUnlock()
	if ok {
		n, err := m.reuse(existing, payload)
		return n, false, err
	}

	candidate := &Node{op: op, payload: copyPayload(payload), owner: m}
	if len(args) > 0 {
		candidate.args = make([]*Node, len(args))
		copy(candidate.args, args)
	}

	s, err := m.computeSort(candidate)
	if err != nil {
		return nil, false, err
	}
	candidate.sort = s

	// The lock was released while type checking; another caller may have
	// interned the same shape meanwhile.
	m.mu.Lock()
	if existing, ok := m.index[key]; ok {
		m.mu.Unlock()
		n, err := m.reuse(existing, payload)
		return n, false, err
	}
	candidate.id = NodeID(len(m.nodes) + 1)
	m.nodes = append(m.nodes, candidate)
	m.index[key] = candidate
	if op == operator.SYMBOL {
		m.symbols[candidate.SymbolName()] = candidate
	}
	m.mu.Unlock()

	if !op.IsBuiltin() {
		m.logger.Debug("interned custom node", "operator", m.ops.Name(op), "id", candidate.id, "sort", s.String())
	}
	return candidate, true, nil
}

func (m *Manager) reuse(existing *Node, payload any) (*Node, error) {
	if existing.op == operator.SYMBOL {
		want := payload.(Symbol).Sort
		if existing.sort != want {
			return nil, core.NewTypeError("SYMBOL",
				"symbol %s is already declared with sort %s, not %s", existing.SymbolName(), existing.sort, want)
		}
	}
	return existing, nil
}

func (m *Manager) computeSort(n *Node) (*sorts.Sort, error) {
	name := m.ops.Name(n.op)
	if m.oracle == nil {
		return nil, core.NewTypeError(name, "no sort oracle configured")
	}
	s, err := m.oracle(n)
	if err != nil {
		if errors.Is(err, core.ErrNotImplemented) {
			return nil, core.NewTypeError(name, "no type-checking rule registered for operator %s", name)
		}
		return nil, err
	}
	if s == nil {
		return nil, core.NewTypeError(name, "type checker returned no sort")
	}
	if s.Registry() != m.sorts {
		return nil, core.NewValueError("formula.CreateNode", "sort %s of %s belongs to another environment", s, name)
	}
	return s, nil
}

// checkLeaf rejects operands on leaf operators and payloads that do not
// match the leaf kind.
func (m *Manager) checkLeaf(op operator.Type, args []*Node, payload any) error {
	if len(args) != 0 {
		return core.NewValueError("formula.CreateNode", "%s takes no arguments, got %d", m.ops.Name(op), len(args))
	}
	var ok bool
	switch op {
	case operator.SYMBOL:
		return m.checkSymbolPayload(payload)
	case operator.BOOL_CONSTANT:
		_, ok = payload.(bool)
	case operator.INT_CONSTANT:
		_, ok = payload.(*big.Int)
	case operator.REAL_CONSTANT:
		_, ok = payload.(*big.Rat)
	}
	if !ok {
		return core.NewValueError("formula.CreateNode", "%s payload of type %T does not match the operator", m.ops.Name(op), payload)
	}
	return nil
}

func (m *Manager) checkSymbolPayload(payload any) error {
	sym, ok := payload.(Symbol)
	if !ok {
		return core.NewValueError("formula.CreateNode", "SYMBOL payload must be a formula.Symbol, got %T", payload)
	}
	if sym.Name == "" {
		return core.NewValueError("formula.CreateNode", "symbol name is empty")
	}
	if sym.Sort == nil {
		return core.NewValueError("formula.CreateNode", "symbol %s has no sort", sym.Name)
	}
	if sym.Sort.Registry() != m.sorts {
		return core.NewValueError("formula.CreateNode", "sort of symbol %s belongs to another environment", sym.Name)
	}
	return nil
}

// Symbol returns the symbol called name with sort t, creating it on first
// use. Redeclaring a name with another sort is a type error.
func (m *Manager) Symbol(name string, t sorts.Type) (*Node, error) {
	s, err := sorts.Concrete(t)
	if err != nil {
		return nil, err
	}
	return m.CreateNode(operator.SYMBOL, nil, Symbol{Name: name, Sort: s})
}

// FreshSymbol creates a symbol of sort t whose name is not used yet.
func (m *Manager) FreshSymbol(t sorts.Type) (*Node, error) {
	s, err := sorts.Concrete(t)
	if err != nil {
		return nil, err
	}
	for {
		m.mu.Lock()
		m.fresh++
		name := fmt.Sprintf(m.freshTemplate, m.fresh)
		_, taken := m.symbols[name]
		m.mu.Unlock()
		if taken {
			continue
		}
		// A concurrent Symbol call may claim the name before it is interned.
		n, created, err := m.intern(operator.SYMBOL, nil, Symbol{Name: name, Sort: s})
		if created {
			return n, nil
		}
		if _, claimed := m.GetSymbol(name); claimed || err == nil {
			continue
		}
		return nil, err
	}
}

// GetSymbol returns the symbol called name, if declared.
func (m *Manager) GetSymbol(name string) (*Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.symbols[name]
	return n, ok
}

func structuralKey(op operator.Type, args []*Node, pkey string) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(int(op)))
	sb.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(a.id), 10))
	}
	sb.WriteByte(')')
	sb.WriteString(pkey)
	return sb.String()
}

// payloadKey returns a stable key for a payload value.
func payloadKey(p any) (string, error) {
	switch v := p.(type) {
	case nil:
		return "", nil
	case Symbol:
		return "sym:" + v.Name, nil
	case bool:
		return "b:" + strconv.FormatBool(v), nil
	case *big.Int:
		if v == nil {
			return "", core.NewValueError("formula.CreateNode", "nil integer payload")
		}
		return "i:" + v.String(), nil
	case *big.Rat:
		if v == nil {
			return "", core.NewValueError("formula.CreateNode", "nil rational payload")
		}
		return "r:" + v.RatString(), nil
	case string:
		return "s:" + strconv.Quote(v), nil
	case int, int64, uint64:
		return fmt.Sprintf("%T:%d", v, v), nil
	case fmt.Stringer:
		return fmt.Sprintf("%T:%s", v, v.String()), nil
	default:
		return "", core.NewValueError("formula.CreateNode", "payload of type %T has no stable key", p)
	}
}

func copyPayload(p any) any {
	switch v := p.(type) {
	case *big.Int:
		return new(big.Int).Set(v)
	case *big.Rat:
		return new(big.Rat).Set(v)
	default:
		return p
	}
}
