package builder

import "errors"

var (
	// ErrUnknownKind is returned for a node kind without an operation.
	ErrUnknownKind = errors.New("unknown node kind")
	// ErrUnknownInput is returned when an input references a missing node.
	ErrUnknownInput = errors.New("unknown input")
	// ErrInputCount is returned when a node has the wrong number of inputs.
	ErrInputCount = errors.New("wrong number of inputs")
	// ErrOutputAsInput is returned when an output node feeds another node.
	ErrOutputAsInput = errors.New("output node used as input")
	// ErrNoOutputs is returned for a tree without output nodes.
	ErrNoOutputs = errors.New("node tree has no output nodes")
)
