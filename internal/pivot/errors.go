package pivot

import "errors"

var (
	// ErrJoinKeyMissing reports a join key column absent from one side.
	ErrJoinKeyMissing = errors.New("join key not found")
	// ErrAggregationType reports a non-numeric value under a numeric operator.
	ErrAggregationType = errors.New("non-numeric value in aggregation")
	// ErrGrouping reports group keys that cannot be grouped or ordered.
	ErrGrouping = errors.New("grouping failed")
	// ErrUnknownRole reports an invalid field role.
	ErrUnknownRole = errors.New("unknown role")
	// ErrUnknownColumn reports a column that no loaded table has.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrUnknownTable reports a table name that is not loaded.
	ErrUnknownTable = errors.New("unknown table")
	// ErrInvalidTable reports a table that cannot be stored.
	ErrInvalidTable = errors.New("invalid table")
)
