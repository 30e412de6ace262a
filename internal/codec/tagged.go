package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"

	"smartsession/internal/domain"
)

// TaggedPrefix marks a record written by Tagged.
const TaggedPrefix = "cbor:"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// Core deterministic encoding, but big integers always keep their
	// bignum tag so the decoder can tell them from small ones.
	encOptions := cbor.CoreDetEncOptions()
	encOptions.BigIntConvert = cbor.BigIntConvertNone
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Tagged is the CBOR format with explicitly typed big integers.
type Tagged struct{}

// Encode writes value as prefixed base64 CBOR.
func (Tagged) Encode(value any) (string, error) {
	b, err := encMode.Marshal(toCBOR(value))
	if err != nil {
		return "", fmt.Errorf("codec: encode: %w", err)
	}
	return TaggedPrefix + base64.StdEncoding.EncodeToString(b), nil
}

// Decode reads a prefixed CBOR record. Integers written as big integers come
// back as *big.Int; plain integers come back as json.Number, as the legacy
// decoder returns them.
func (Tagged) Decode(text string) (any, error) {
	payload, ok := strings.CutPrefix(text, TaggedPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q prefix", domain.ErrDecodeFailure, TaggedPrefix)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecodeFailure, err)
	}
	var v any
	if err := decMode.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecodeFailure, err)
	}
	return fromCBOR(v), nil
}

func toCBOR(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if n, ok := new(big.Int).SetString(x.String(), 10); ok {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case *uint256.Int:
		if x == nil {
			return nil
		}
		return x.ToBig()
	case uint256.Int:
		return x.ToBig()
	case big.Int:
		return new(big.Int).Set(&x)
	case domain.PermissionDescriptor:
		return toCBOR(x.Value)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = toCBOR(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = toCBOR(e)
		}
		return out
	default:
		return v
	}
}

func fromCBOR(v any) any {
	switch x := v.(type) {
	case uint64:
		return json.Number(strconv.FormatUint(x, 10))
	case int64:
		return json.Number(strconv.FormatInt(x, 10))
	case big.Int:
		return new(big.Int).Set(&x)
	case map[string]any:
		for k, e := range x {
			x[k] = fromCBOR(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = fromCBOR(e)
		}
		return x
	default:
		return v
	}
}

var _ domain.Codec = Tagged{}
