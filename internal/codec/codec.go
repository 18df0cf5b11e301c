package codec

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"neurosim/internal/domain"
)

// ErrMalformed is wrapped by Parse when the input cannot be decoded
var ErrMalformed = errors.New("malformed network document")

// Importer interface for importing network data from various formats
type Importer interface {
	Parse(r io.Reader) (*domain.NetworkFragment, error)
	Format() string
}

// Exporter interface for exporting network data to various formats
type Exporter interface {
	Export(fragment *domain.NetworkFragment, w io.Writer) error
	Format() string
}

// Codec reads and writes one format
type Codec interface {
	Importer
	Exporter
	ContentType() string
}

// ForFormat returns the codec for a format name ("json", "yaml" or "yml")
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}
