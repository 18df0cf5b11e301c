package codec

import (
	"errors"
	"fmt"
	"io"

	"neurosim/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// ContentType returns the MIME type for HTTP responses
func (c *YAMLCodec) ContentType() string {
	return "application/yaml"
}

// yamlFragment represents the YAML structure for network data
type yamlFragment struct {
	Neurons     []yamlNeuron     `yaml:"neurons"`
	Connections []yamlConnection `yaml:"connections"`
}

type yamlNeuron struct {
	ID        string   `yaml:"id"`
	Threshold float64  `yaml:"threshold,omitempty"`
	X         *float64 `yaml:"x,omitempty"`
	Y         *float64 `yaml:"y,omitempty"`
}

type yamlConnection struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Parse imports network data from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*domain.NetworkFragment, error) {
	var yf yamlFragment
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&yf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: YAML: %v", ErrMalformed, err)
	}

	fragment := domain.NewNetworkFragment()
	for _, yn := range yf.Neurons {
		fragment.AddNeuron(domain.NeuronRecord{
			ID:        yn.ID,
			Threshold: yn.Threshold,
			Position:  domain.NewPosition(yn.X, yn.Y),
		})
	}
	for _, yc := range yf.Connections {
		fragment.AddConnection(domain.Connection{FromID: yc.From, ToID: yc.To})
	}

	return fragment, nil
}

// Export exports network data to YAML
func (c *YAMLCodec) Export(fragment *domain.NetworkFragment, w io.Writer) error {
	yf := yamlFragment{
		Neurons:     make([]yamlNeuron, 0, len(fragment.Neurons)),
		Connections: make([]yamlConnection, 0, len(fragment.Connections)),
	}

	for _, rec := range fragment.Neurons {
		yn := yamlNeuron{ID: rec.ID, Threshold: rec.Threshold}
		if rec.Position != nil {
			x, y := rec.Position.X, rec.Position.Y
			yn.X, yn.Y = &x, &y
		}
		yf.Neurons = append(yf.Neurons, yn)
	}
	for _, conn := range fragment.Connections {
		yf.Connections = append(yf.Connections, yamlConnection{From: conn.FromID, To: conn.ToID})
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(yf); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return encoder.Close()
}
