package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"neurosim/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// ContentType returns the MIME type for HTTP responses
func (c *JSONCodec) ContentType() string {
	return "application/json"
}

// Parse imports network data from JSON
func (c *JSONCodec) Parse(r io.Reader) (*domain.NetworkFragment, error) {
	fragment := domain.NewNetworkFragment()
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(fragment); err != nil {
		return nil, fmt.Errorf("%w: JSON: %v", ErrMalformed, err)
	}

	return fragment, nil
}

// Export exports network data to JSON
func (c *JSONCodec) Export(fragment *domain.NetworkFragment, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(fragment); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
