// Copyright (c) 2025 The multisigwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

var (
	// ErrEmptyPath is returned when a derivation path string contains no
	// segments at all.
	ErrEmptyPath = errors.New("derivation path is empty")

	// ErrMalformedPath is returned when a derivation path string cannot
	// be parsed into its numeric segments.
	ErrMalformedPath = errors.New("malformed derivation path")

	// ErrUnhardenedPathSegment is returned when a path segment above the
	// address index is not marked hardened. Hardened derivation is
	// required above the leaf so that a leaked child public key together
	// with the parent private key cannot compromise sibling signers.
	ErrUnhardenedPathSegment = errors.New("derivation path segment must " +
		"be hardened")
)

// DerivationPath is the in-memory representation of a hierarchical
// deterministic derivation path. Each element holds the child index for one
// derivation step, with hardened steps offset by hdkeychain.HardenedKeyStart.
type DerivationPath []uint32

// ParseDerivationPath converts a derivation path in its human readable form,
// e.g. m/48'/0'/0'/2'/0, into the binary representation used for the actual
// derivation. An apostrophe suffix marks a hardened segment.
func ParseDerivationPath(strPath string) (DerivationPath, error) {
	if strings.TrimSpace(strPath) == "" {
		return nil, ErrEmptyPath
	}

	segments := strings.Split(strPath, "/")

	// A leading "m" names the master key and carries no index.
	if strings.TrimSpace(segments[0]) == "m" {
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return nil, ErrEmptyPath
	}

	path := make(DerivationPath, 0, len(segments))
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)

		var offset uint32
		if strings.HasSuffix(segment, "'") ||
			strings.HasSuffix(segment, "h") {

			offset = hdkeychain.HardenedKeyStart
			segment = strings.TrimSpace(segment[:len(segment)-1])
		}

		index, err := strconv.ParseUint(segment, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid segment %q",
				ErrMalformedPath, segment)
		}
		if uint32(index) >= hdkeychain.HardenedKeyStart {
			return nil, fmt.Errorf("%w: segment %q out of range",
				ErrMalformedPath, segment)
		}

		path = append(path, offset+uint32(index))
	}

	return path, nil
}

// Validate checks that the path is well formed for signer derivation: every
// segment above the leaf must be hardened. The leaf itself, the address
// index, may be unhardened following the BIP48 convention.
func (path DerivationPath) Validate() error {
	if len(path) == 0 {
		return ErrEmptyPath
	}

	for i, segment := range path[:len(path)-1] {
		if segment < hdkeychain.HardenedKeyStart {
			return fmt.Errorf("%w: segment %d of path %v",
				ErrUnhardenedPathSegment, i, path)
		}
	}

	return nil
}

// String converts the binary path back to its canonical human readable
// representation.
func (path DerivationPath) String() string {
	if len(path) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("m")
	for _, segment := range path {
		hardened := segment >= hdkeychain.HardenedKeyStart
		if hardened {
			segment -= hdkeychain.HardenedKeyStart
		}
		fmt.Fprintf(&b, "/%d", segment)
		if hardened {
			b.WriteString("'")
		}
	}

	return b.String()
}
