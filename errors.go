package streetnodes

import (
	"github.com/pkg/errors"
)

var (
	// ErrMissingReference is returned when a dual node points to a primal edge which does not exist
	// or when a network structure is not aligned with the node table. Always fatal.
	ErrMissingReference = errors.New("missing reference")
	// ErrSchemaCollision is returned when two metric passes would write the same column. Always fatal.
	ErrSchemaCollision = errors.New("schema collision")
	// ErrNonPositiveWeight is returned when primal edge has zero (or negative) length
	ErrNonPositiveWeight = errors.New("non-positive weight")
	// ErrInvalidDistance is returned for zero or negative distance thresholds
	ErrInvalidDistance = errors.New("invalid distance threshold")
	// ErrNarrowingOverflow is returned when 64-bit integer does not fit into 32 bits
	ErrNarrowingOverflow = errors.New("value does not fit into 32 bits")
	// ErrUnsupportedFormat is returned for file extensions which are not handled
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrInvalidConfig is returned by Config.Validate
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrColumnLength is returned when column length differs from the number of rows in table
	ErrColumnLength = errors.New("column length mismatch")
	// ErrUnsupportedStructure is returned when analyzer gets network structure built by someone else
	ErrUnsupportedStructure = errors.New("unsupported network structure")
	// ErrUnreachable is returned when there is no path between two network nodes
	ErrUnreachable = errors.New("unreachable node")
)
