// # internal/lower/vocabulary.go

// Package lower turns parsed declarations into database items: it interprets
// attributes, evaluates cfg conditions, flattens use trees into scope tables
// and wraps macro definitions.
package lower

// Vocabulary is the table of attribute and derive names the lowering pass
// interprets itself. It is built once and threaded through; anything not in
// it is kept as an uninterpreted extra attribute.
type Vocabulary struct {
	builtinAttrs   map[string]struct{}
	builtinDerives map[string]struct{}
}

func NewVocabulary() *Vocabulary {
	attrs := []string{
		"cfg", "cfg_attr", "path", "macro_use", "macro_export", "doc",
		"derive", "deprecated", "must_use", "allow", "warn", "deny",
		"inline", "cold", "non_exhaustive", "repr",
	}
	derives := []string{
		"Clone", "Copy", "Debug", "Default", "Eq", "PartialEq",
		"Ord", "PartialOrd", "Hash",
	}
	v := &Vocabulary{
		builtinAttrs:   make(map[string]struct{}, len(attrs)),
		builtinDerives: make(map[string]struct{}, len(derives)),
	}
	for _, a := range attrs {
		v.builtinAttrs[a] = struct{}{}
	}
	for _, d := range derives {
		v.builtinDerives[d] = struct{}{}
	}
	return v
}

func (v *Vocabulary) KnownAttr(name string) bool {
	_, ok := v.builtinAttrs[name]
	return ok
}

func (v *Vocabulary) BuiltinDerive(name string) bool {
	_, ok := v.builtinDerives[name]
	return ok
}
