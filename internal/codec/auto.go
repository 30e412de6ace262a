package codec

import (
	"fmt"
	"strings"

	"smartsession/internal/domain"
)

// Format names accepted by New.
const (
	FormatLegacy = "legacy"
	FormatTagged = "tagged"
)

// Auto decodes records in either format and encodes with Write.
type Auto struct {
	Write domain.Codec
}

// New returns an Auto codec that writes the named format. An empty name
// selects the legacy format.
func New(format string) (*Auto, error) {
	switch format {
	case "", FormatLegacy:
		return &Auto{Write: Legacy{}}, nil
	case FormatTagged:
		return &Auto{Write: Tagged{}}, nil
	default:
		return nil, fmt.Errorf("codec: unknown format %q", format)
	}
}

// Encode delegates to the configured writer.
func (a *Auto) Encode(value any) (string, error) {
	return a.Write.Encode(value)
}

// Decode picks the format from the record's prefix.
func (a *Auto) Decode(text string) (any, error) {
	if strings.HasPrefix(text, TaggedPrefix) {
		return Tagged{}.Decode(text)
	}
	return Legacy{}.Decode(text)
}

var _ domain.Codec = (*Auto)(nil)
