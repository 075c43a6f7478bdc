// Package config defines the format-agnostic node tree model and the
// compositor context that parameterizes one evaluation.
//
// The `config.Model` is the single source of truth for the `builder` and
// `executor` packages. Concrete loaders, such as for HCL, are provided in
// separate packages.
package config
