package sorts

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapsmt/pkg/core"
)

// Names of the sorts every registry starts with.
const (
	BoolName  = "Bool"
	IntName   = "Int"
	RealName  = "Real"
	ArrayName = "Array"
)

// Registry declares constructors and memoizes applied sorts.
// All methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	ctors  map[string]*Constructor
	memo   map[string]*Sort // constructor name + argument ids -> canonical sort
	nextID int

	boolSort *Sort
	intSort  *Sort
	realSort *Sort
	array    *Constructor
}

// NewRegistry creates a registry holding the built-in sorts Bool, Int and
// Real and the Array constructor.
func NewRegistry() *Registry {
	r := &Registry{
		ctors: make(map[string]*Constructor),
		memo:  make(map[string]*Sort),
	}
	r.boolSort = r.mustBase(BoolName)
	r.intSort = r.mustBase(IntName)
	r.realSort = r.mustBase(RealName)
	array, err := r.Declare(ArrayName, 2)
	if err != nil {
		panic(err)
	}
	r.array = array
	return r
}

func (r *Registry) mustBase(name string) *Sort {
	s, err := r.Base(name)
	if err != nil {
		panic(err)
	}
	return s
}

// Bool returns the Boolean sort.
func (r *Registry) Bool() *Sort { return r.boolSort }

// Int returns the integer sort.
func (r *Registry) Int() *Sort { return r.intSort }

// Real returns the real sort.
func (r *Registry) Real() *Sort { return r.realSort }

// Array returns the binary Array constructor.
func (r *Registry) Array() *Constructor { return r.array }

// ArrayOf returns Array(index, elem).
func (r *Registry) ArrayOf(index, elem *Sort) (*Sort, error) {
	return r.Apply(r.array, index, elem)
}

// Declare registers a sort constructor. Declaring an existing name with the
// same arity returns the existing constructor; a different arity is a value
// error.
func (r *Registry) Declare(name string, arity int) (*Constructor, error) {
	if name == "" {
		return nil, valueErr("sorts.Declare", "empty constructor name")
	}
	if arity < 0 {
		return nil, valueErr("sorts.Declare", "negative arity %d for %s", arity, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.ctors[name]; ok {
		if c.arity != arity {
			return nil, valueErr("sorts.Declare",
				"sort %s already declared with arity %d, cannot redeclare with arity %d", name, c.arity, arity)
		}
		return c, nil
	}
	c := &Constructor{name: name, arity: arity, reg: r}
	r.ctors[name] = c
	return c, nil
}

// Lookup returns the constructor declared under name.
func (r *Registry) Lookup(name string) (*Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.ctors[name]
	return c, ok
}

// Constructors returns all declared constructors sorted by name.
func (r *Registry) Constructors() []*Constructor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Constructor, 0, len(r.ctors))
	for _, c := range r.ctors {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Size returns the number of canonical sorts created so far.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.memo)
}

// Base returns the canonical arity-0 sort called name, declaring it if
// needed.
func (r *Registry) Base(name string) (*Sort, error) {
	c, err := r.Declare(name, 0)
	if err != nil {
		return nil, err
	}
	return r.Apply(c)
}

// Apply returns the canonical sort c(args...). Arguments must be canonical
// sorts of this registry, so nested sorts are built bottom-up.
func (r *Registry) Apply(c *Constructor, args ...*Sort) (*Sort, error) {
	if c == nil {
		return nil, valueErr("sorts.Apply", "nil constructor")
	}
	if c.reg != r {
		return nil, valueErr("sorts.Apply", "constructor %s belongs to another registry", c.name)
	}
	if len(args) != c.arity {
		return nil, valueErr("sorts.Apply",
			"%s expects %d sort arguments, got %d", c.name, c.arity, len(args))
	}
	for i, a := range args {
		if a == nil {
			return nil, valueErr("sorts.Apply", "argument %d of %s is nil", i, c.name)
		}
		if a.ctor.reg != r {
			return nil, valueErr("sorts.Apply", "argument %s of %s belongs to another registry", a, c.name)
		}
	}

	key := memoKey(c, args)

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.memo[key]; ok {
		return s, nil
	}
	r.nextID++
	s := &Sort{id: r.nextID, ctor: c}
	if len(args) > 0 {
		s.args = make([]*Sort, len(args))
		copy(s.args, args)
	}
	r.memo[key] = s
	return s, nil
}

func memoKey(c *Constructor, args []*Sort) string {
	var sb strings.Builder
	sb.WriteString(c.name)
	for _, a := range args {
		sb.WriteByte('|')
		sb.WriteString(strconv.Itoa(a.id))
	}
	return sb.String()
}

func valueErr(op, format string, args ...any) error {
	return core.NewValueError(op, format, args...)
}
