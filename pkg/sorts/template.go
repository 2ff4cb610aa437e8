package sorts

// ExpandFunc computes the sort a template stands for once its parameters are
// known. It must return a canonical sort of the template's registry.
type ExpandFunc func(args ...*Sort) (*Sort, error)

// Template is a partial sort: a sort schema with free sort parameters,
// e.g. Set(T) = Array(T, Bool). It is not itself a sort.
type Template struct {
	name   string
	arity  int
	expand ExpandFunc
	reg    *Registry
}

func (*Template) isType() {}

// Name returns the template name.
func (t *Template) Name() string { return t.name }

// Arity returns the number of sort parameters.
func (t *Template) Arity() int { return t.arity }

func (t *Template) String() string { return t.name }

// Define registers a template. Names are not checked for uniqueness;
// templates are usually local to the caller.
func (r *Registry) Define(name string, arity int, expand ExpandFunc) (*Template, error) {
	if arity < 0 {
		return nil, valueErr("sorts.Define", "negative arity %d for template %s", arity, name)
	}
	if expand == nil {
		return nil, valueErr("sorts.Define", "template %s has no expansion function", name)
	}
	return &Template{name: name, arity: arity, expand: expand, reg: r}, nil
}

// Instantiate expands the template with exactly Arity sorts.
func (t *Template) Instantiate(args ...*Sort) (*Sort, error) {
	if len(args) != t.arity {
		return nil, valueErr("sorts.Instantiate",
			"template %s expects %d sorts, got %d", t.name, t.arity, len(args))
	}
	for i, a := range args {
		if a == nil {
			return nil, valueErr("sorts.Instantiate", "argument %d of template %s is nil", i, t.name)
		}
	}
	s, err := t.expand(args...)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, valueErr("sorts.Instantiate", "template %s expanded to nil", t.name)
	}
	if s.ctor.reg != t.reg {
		return nil, valueErr("sorts.Instantiate", "template %s expanded to a sort of another registry", t.name)
	}
	return s, nil
}
