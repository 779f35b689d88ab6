package config

import "slices"

// Compose layers over on top of base for a single variable.
//
// Two prepends concatenate with the overlay's entries first, two appends
// with the base entries first. Any other combination replaces base.
func Compose(base, over Directive) Directive {
	switch {
	case base.Kind == Prepend && over.Kind == Prepend:
		return PrependOf(slices.Concat(over.List, base.List)...)
	case base.Kind == Append && over.Kind == Append:
		return AppendOf(slices.Concat(base.List, over.List)...)
	default:
		return over
	}
}

// Overlay returns a new layer holding base with each of overs composed on
// top, in order. Keys not named by an overlay are kept as they are.
func Overlay(base Layer, overs ...Layer) Layer {
	out := make(Layer, len(base))
	for name, d := range base {
		out[name] = d
	}
	for _, over := range overs {
		for name, d := range over {
			if prev, ok := out[name]; ok {
				out[name] = Compose(prev, d)
			} else {
				out[name] = d
			}
		}
	}
	return out
}
