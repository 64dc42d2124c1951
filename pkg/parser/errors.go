package parser

// Common error messages
const (
	ErrEmptyStatement     = "empty statement"
	ErrUnknownCommand     = "unknown command %q"
	ErrUnexpectedToken    = "unexpected %s, expected %s"
	ErrExpectedName       = "expected %s name, got %s"
	ErrExpectedLiteral    = "expected a literal value, got %s"
	ErrUnterminatedString = "unterminated string literal"
	ErrTrailingInput      = "unexpected %q after end of statement"
	ErrOrUnsupported      = "OR is not supported; combine conditions with AND"
	ErrValueCount         = "%d values for %d columns"
	ErrDuplicateColumn    = "duplicate column %q"
	ErrBadLimit           = "LIMIT and OFFSET take a non-negative integer"
	ErrStarMixed          = "* cannot be combined with other select items"
	ErrColumnConstraint   = "unexpected %s in definition of column %q"
)
