package cache

// Key types reported to observability hooks.
const (
	KeyTypeNormalize   = "normalize"
	KeyTypeDenormalize = "denormalize"
)

// Keyer builds cache keys for pipeline outputs. schemaID identifies the
// schema configs and root schema; inputHash is the [Hash] of the input
// document.
type Keyer interface {
	NormalizeKey(schemaID, inputHash string) string
	DenormalizeKey(schemaID, inputHash string) string
}

// DefaultKeyer hashes key components into "<type>:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// NormalizeKey returns the key of a normalize output.
func (DefaultKeyer) NormalizeKey(schemaID, inputHash string) string {
	return hashKey(KeyTypeNormalize, schemaID, inputHash)
}

// DenormalizeKey returns the key of a denormalize output.
func (DefaultKeyer) DenormalizeKey(schemaID, inputHash string) string {
	return hashKey(KeyTypeDenormalize, schemaID, inputHash)
}
