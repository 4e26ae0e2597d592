package provider

import (
	"encoding/hex"

	"codeberg.org/mutker/sysfeed/internal/codec"
	"codeberg.org/mutker/sysfeed/internal/errors"
	"github.com/zeebo/blake3"
)

// fingerprintKey separates config fingerprints from any other BLAKE3 use.
var fingerprintKey = [32]byte{
	's', 'y', 's', 'f', 'e', 'e', 'd', '.', 'p', 'r', 'o', 'v', 'i', 'd', 'e', 'r',
	'.', 'c', 'o', 'n', 'f', 'i', 'g', 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

type fingerprintInput struct {
	Kind   Kind   `cbor:"kind"`
	Config Config `cbor:"config"`
}

// Fingerprint derives a stable identifier from cfg: the keyed BLAKE3 hash
// of its canonical CBOR encoding, hex encoded. Equal configs always map to
// the same fingerprint regardless of how they were decoded.
func Fingerprint(cfg Config) (string, error) {
	errFactory := errors.New()

	if cfg == nil {
		return "", errFactory.WithMessage(errors.ErrMissingConfig, "provider configuration is empty")
	}

	data, err := codec.Marshal(fingerprintInput{Kind: cfg.Kind(), Config: cfg})
	if err != nil {
		return "", errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	hasher, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		return "", errFactory.Wrap(errors.ErrInternal, err)
	}
	_, _ = hasher.Write(data)

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
