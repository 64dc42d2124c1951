package functions

import (
	"context"
	"crypto/md5"  //nolint:gosec // offered as a checksum, not for security
	"crypto/sha1" //nolint:gosec // offered as a checksum, not for security
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/apd"
	"github.com/leapstack-labs/gsql/pkg/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// now is the clock behind now(); tests replace it.
var now = time.Now

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func builtins() []*Function {
	return []*Function{
		// string
		NewScalar("upper", 1, 1, "Convert text to upper case", fnUpper),
		NewScalar("lower", 1, 1, "Convert text to lower case", fnLower),
		NewScalar("length", 1, 1, "Number of characters in text", fnLength),
		NewScalar("substring", 2, 3, "Substring from a 1-based start: substring(s, start[, len])", fnSubstring),
		NewScalar("concat", 1, Variadic, "Concatenate values as text", fnConcat),
		NewScalar("trim", 1, 1, "Strip leading and trailing whitespace", fnTrim),

		// numeric
		NewScalar("abs", 1, 1, "Absolute value", fnAbs),
		NewScalar("round", 1, 2, "Round half-up to n digits: round(x[, n])", fnRound),
		NewScalar("sqrt", 1, 1, "Square root", fnSqrt),
		NewScalar("power", 2, 2, "x raised to y", fnPower),
		NewScalar("mod", 2, 2, "Remainder of x / y", fnMod),

		// hash
		NewScalar("hash", 1, 2, "Hex digest: hash(value[, sha256|sha1|md5])", fnHash),

		// temporal
		NewScalar("now", 0, 0, "Current UTC time as RFC 3339 text", fnNow),
		NewScalar("date_format", 2, 2, "Format a timestamp with %Y %m %d %H %M %S", fnDateFormat),

		// validation
		NewScalar("is_email", 1, 1, "Whether text looks like an e-mail address", fnIsEmail),
		NewScalar("is_number", 1, 1, "Whether the value is numeric", fnIsNumber),
		NewScalar("is_date", 1, 1, "Whether the value is a timestamp", fnIsDate),

		// aggregates
		NewAggregate("count", "Number of non-NULL values", aggCount),
		NewAggregate("sum", "Sum of values", aggSum),
		NewAggregate("min", "Smallest value", aggMin),
		NewAggregate("max", "Largest value", aggMax),
		NewAggregate("mean", "Arithmetic mean", aggMean),
		NewAggregate("avg", "Arithmetic mean", aggMean),
		NewAggregate("variance", "Population variance", aggVariance),
		NewAggregate("stddev", "Population standard deviation", aggStddev),
	}
}

// ---------- String ----------

func fnUpper(_ context.Context, args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	return cases.Upper(language.Und).String(text(args[0])), nil
}

func fnLower(_ context.Context, args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	return cases.Lower(language.Und).String(text(args[0])), nil
}

func fnLength(_ context.Context, args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	return int64(utf8.RuneCountInString(text(args[0]))), nil
}

func fnSubstring(_ context.Context, args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	runes := []rune(text(args[0]))
	start, err := integer(args[1], "start")
	if err != nil {
		return nil, err
	}
	if start < 1 {
		start = 1
	}
	from := int(start - 1)
	if from >= len(runes) {
		return "", nil
	}
	to := len(runes)
	if len(args) == 3 {
		n, err := integer(args[2], "length")
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("length must not be negative")
		}
		if from+int(n) < to {
			to = from + int(n)
		}
	}
	return string(runes[from:to]), nil
}

func fnConcat(_ context.Context, args []any) (any, error) {
	var b strings.Builder
	for _, a := range args {
		if a != nil {
			b.WriteString(text(a))
		}
	}
	return b.String(), nil
}

func fnTrim(_ context.Context, args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	return strings.TrimSpace(text(args[0])), nil
}

// ---------- Numeric ----------

func fnAbs(_ context.Context, args []any) (any, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case int64:
		if v < 0 {
			return -v, nil
		}
		return v, nil
	}
	f, err := number(args[0])
	if err != nil {
		return nil, err
	}
	return math.Abs(f), nil
}

// fnRound rounds half away from zero on the decimal representation, so
// round(2.675, 2) is 2.68 rather than the binary-float 2.67.
func fnRound(_ context.Context, args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	f, err := number(args[0])
	if err != nil {
		return nil, err
	}
	var digits int64
	if len(args) == 2 {
		if digits, err = integer(args[1], "digits"); err != nil {
			return nil, err
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f, nil
	}

	d := new(apd.Decimal)
	if _, err := d.SetFloat64(f); err != nil {
		return nil, fmt.Errorf("failed to convert %v: %w", f, err)
	}
	dc := apd.BaseContext.WithPrecision(34)
	dc.Rounding = apd.RoundHalfUp
	res := new(apd.Decimal)
	if _, err := dc.Quantize(res, d, int32(-digits)); err != nil {
		return nil, fmt.Errorf("failed to round %v: %w", f, err)
	}
	if digits <= 0 {
		return res.Int64()
	}
	return res.Float64()
}

func fnSqrt(_ context.Context, args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	f, err := number(args[0])
	if err != nil {
		return nil, err
	}
	if f < 0 {
		return nil, fmt.Errorf("square root of negative number %v", f)
	}
	return math.Sqrt(f), nil
}

func fnPower(_ context.Context, args []any) (any, error) {
	if args[0] == nil || args[1] == nil {
		return nil, nil
	}
	x, err := number(args[0])
	if err != nil {
		return nil, err
	}
	y, err := number(args[1])
	if err != nil {
		return nil, err
	}
	return math.Pow(x, y), nil
}

func fnMod(_ context.Context, args []any) (any, error) {
	if args[0] == nil || args[1] == nil {
		return nil, nil
	}
	a, aInt := args[0].(int64)
	b, bInt := args[1].(int64)
	if aInt && bInt {
		if b == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return a % b, nil
	}
	x, err := number(args[0])
	if err != nil {
		return nil, err
	}
	y, err := number(args[1])
	if err != nil {
		return nil, err
	}
	if y == 0 {
		return nil, fmt.Errorf("division by zero")
	}
	return math.Mod(x, y), nil
}

// ---------- Hash ----------

func fnHash(_ context.Context, args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	algo := "sha256"
	if len(args) == 2 && args[1] != nil {
		algo = strings.ToLower(text(args[1]))
	}

	var h hash.Hash
	switch algo {
	case "sha256":
		h = sha256.New()
	case "sha1":
		h = sha1.New() //nolint:gosec // checksum
	case "md5":
		h = md5.New() //nolint:gosec // checksum
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q (use sha256, sha1 or md5)", algo)
	}
	h.Write([]byte(text(args[0])))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ---------- Temporal ----------

func fnNow(_ context.Context, _ []any) (any, error) {
	return now().UTC().Format(time.RFC3339), nil
}

func fnDateFormat(_ context.Context, args []any) (any, error) {
	if args[0] == nil {
		return nil, nil
	}
	t, ok := timestamp(args[0])
	if !ok {
		return nil, fmt.Errorf("cannot read %q as a timestamp", text(args[0]))
	}
	return formatDate(t, text(args[1])), nil
}

// formatDate substitutes %Y %m %d %H %M %S and %%; other text is copied.
func formatDate(t time.Time, layout string) string {
	var b strings.Builder
	for i := 0; i < len(layout); i++ {
		c := layout[i]
		if c != '%' || i+1 == len(layout) {
			b.WriteByte(c)
			continue
		}
		i++
		switch layout[i] {
		case 'Y':
			fmt.Fprintf(&b, "%04d", t.Year())
		case 'm':
			fmt.Fprintf(&b, "%02d", int(t.Month()))
		case 'd':
			fmt.Fprintf(&b, "%02d", t.Day())
		case 'H':
			fmt.Fprintf(&b, "%02d", t.Hour())
		case 'M':
			fmt.Fprintf(&b, "%02d", t.Minute())
		case 'S':
			fmt.Fprintf(&b, "%02d", t.Second())
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(layout[i])
		}
	}
	return b.String()
}

// ---------- Validation ----------

func fnIsEmail(_ context.Context, args []any) (any, error) {
	s, ok := args[0].(string)
	return ok && emailRe.MatchString(s), nil
}

func fnIsNumber(_ context.Context, args []any) (any, error) {
	switch args[0].(type) {
	case int64, int, float64:
		return true, nil
	case string:
		_, ok := core.ToFloat(args[0])
		return ok, nil
	}
	return false, nil
}

func fnIsDate(_ context.Context, args []any) (any, error) {
	_, ok := timestamp(args[0])
	return ok, nil
}

// ---------- Coercion helpers ----------

func text(v any) string {
	if v == nil {
		return ""
	}
	return core.FormatValue(v)
}

func number(v any) (float64, error) {
	if _, isBool := v.(bool); isBool {
		return 0, fmt.Errorf("expected a number, got boolean")
	}
	f, ok := core.ToFloat(v)
	if !ok {
		return 0, fmt.Errorf("expected a number, got %q", text(v))
	}
	return f, nil
}

func integer(v any, what string) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	}
	f, err := number(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s must be an integer, got %v", what, f)
	}
	return int64(f), nil
}

func timestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		return core.ParseTimestamp(t)
	}
	return time.Time{}, false
}
