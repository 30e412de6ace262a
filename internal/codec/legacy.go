package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strings"

	"github.com/holiman/uint256"

	"smartsession/internal/domain"
)

var digitsOnly = regexp.MustCompile(`^\d+$`)

// Legacy is the JSON format with decimal-string big integers.
type Legacy struct{}

// Encode renders value as JSON, writing every big integer as its decimal
// digit string.
func (Legacy) Encode(value any) (string, error) {
	b, err := json.Marshal(stringifyIntegers(value))
	if err != nil {
		return "", fmt.Errorf("codec: encode: %w", err)
	}
	return string(b), nil
}

// Decode parses text and promotes digit-only strings to *big.Int. Plain JSON
// numbers are kept as json.Number so no precision is lost to float64.
func (Legacy) Decode(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecodeFailure, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON value", domain.ErrDecodeFailure)
	}
	return promoteDigits(v), nil
}

func stringifyIntegers(v any) any {
	switch x := v.(type) {
	case *big.Int:
		if x == nil {
			return nil
		}
		return x.String()
	case big.Int:
		return x.String()
	case *uint256.Int:
		if x == nil {
			return nil
		}
		return x.Dec()
	case uint256.Int:
		return x.Dec()
	case domain.PermissionDescriptor:
		return stringifyIntegers(x.Value)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = stringifyIntegers(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = stringifyIntegers(e)
		}
		return out
	default:
		return v
	}
}

func promoteDigits(v any) any {
	switch x := v.(type) {
	case string:
		if !digitsOnly.MatchString(x) {
			return x
		}
		n, ok := new(big.Int).SetString(x, 10)
		if !ok {
			return x
		}
		return n
	case map[string]any:
		for k, e := range x {
			x[k] = promoteDigits(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = promoteDigits(e)
		}
		return x
	default:
		return v
	}
}

var _ domain.Codec = Legacy{}
