// Copyright (c) 2025 The multisigwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

var (
	// ErrInvalidThreshold is returned when a policy is created with a
	// threshold that is not a positive integer no greater than the number
	// of public keys.
	ErrInvalidThreshold = errors.New("invalid signing threshold")

	// ErrEmptyKeySet is returned when a policy is created without any
	// public keys.
	ErrEmptyKeySet = errors.New("public key set is empty")

	// ErrInvalidPublicKey is returned when a supplied public key is not a
	// valid point on the secp256k1 curve.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrDuplicateKey is returned when the same public key appears more
	// than once in a policy's key set.
	ErrDuplicateKey = errors.New("duplicate public key")

	// ErrTooManyKeys is returned when a policy is created with more keys
	// than OP_CHECKMULTISIG can evaluate.
	ErrTooManyKeys = errors.New("too many public keys for checkmultisig")

	// ErrAddressDerivation is returned when the locking script cannot be
	// encoded as an address. The script is always well formed at that
	// point, so this indicates a broken invariant rather than bad input.
	ErrAddressDerivation = errors.New("cannot derive address from script")
)

// Policy describes an m-of-n multisig spending condition. The key set is
// held in canonical byte-lexicographic order of the compressed
// serializations, so two policies built from the same keys are identical no
// matter what order the keys were supplied in. A Policy is immutable once
// created.
type Policy struct {
	m    int
	keys []*btcec.PublicKey
}

// NewPolicy validates the threshold and key set and returns the policy with
// its keys in canonical order. Key order at the call site does not matter.
func NewPolicy(m int, pubKeys []*btcec.PublicKey) (*Policy, error) {
	if len(pubKeys) == 0 {
		return nil, ErrEmptyKeySet
	}
	if len(pubKeys) > txscript.MaxPubKeysPerMultiSig {
		return nil, fmt.Errorf("%w: %d keys, limit %d", ErrTooManyKeys,
			len(pubKeys), txscript.MaxPubKeysPerMultiSig)
	}
	if m < 1 || m > len(pubKeys) {
		return nil, fmt.Errorf("%w: %d-of-%d", ErrInvalidThreshold, m,
			len(pubKeys))
	}

	keys := make([]*btcec.PublicKey, len(pubKeys))
	for i, key := range pubKeys {
		if key == nil {
			return nil, fmt.Errorf("%w: key %d is nil",
				ErrInvalidPublicKey, i)
		}
		keys[i] = key
	}

	// Canonical ordering. Compressed serializations are fixed width, so
	// plain byte comparison is a total order over the key set.
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(
			keys[i].SerializeCompressed(),
			keys[j].SerializeCompressed(),
		) < 0
	})

	for i := 1; i < len(keys); i++ {
		if keys[i].IsEqual(keys[i-1]) {
			return nil, fmt.Errorf("%w: %x", ErrDuplicateKey,
				keys[i].SerializeCompressed())
		}
	}

	return &Policy{m: m, keys: keys}, nil
}

// ParsePolicy is like NewPolicy but accepts the keys in their 33-byte
// compressed serialization, rejecting any value that does not parse to a
// curve point.
func ParsePolicy(m int, rawKeys [][]byte) (*Policy, error) {
	if len(rawKeys) == 0 {
		return nil, ErrEmptyKeySet
	}

	keys := make([]*btcec.PublicKey, len(rawKeys))
	for i, raw := range rawKeys {
		key, err := btcec.ParsePubKey(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: key %d: %v",
				ErrInvalidPublicKey, i, err)
		}
		keys[i] = key
	}

	return NewPolicy(m, keys)
}

// Threshold returns the number of distinct signatures required to spend.
func (p *Policy) Threshold() int {
	return p.m
}

// SignerCount returns the total number of signers in the policy.
func (p *Policy) SignerCount() int {
	return len(p.keys)
}

// Keys returns the policy's public keys in canonical order. The returned
// slice is a copy and may be modified by the caller.
func (p *Policy) Keys() []*btcec.PublicKey {
	keys := make([]*btcec.PublicKey, len(p.keys))
	copy(keys, p.keys)
	return keys
}

// ContainsKey reports whether the given public key is a member of the
// policy's key set.
func (p *Policy) ContainsKey(pubKey *btcec.PublicKey) bool {
	if pubKey == nil {
		return false
	}
	for _, key := range p.keys {
		if key.IsEqual(pubKey) {
			return true
		}
	}
	return false
}

// Script builds the multisig locking script for the policy: the threshold,
// each key in canonical order, the key count and OP_CHECKMULTISIG. The same
// policy always yields the same bytes.
func (p *Policy) Script() ([]byte, error) {
	builder := txscript.NewScriptBuilder()
	builder.AddInt64(int64(p.m))
	for _, key := range p.keys {
		builder.AddData(key.SerializeCompressed())
	}
	builder.AddInt64(int64(len(p.keys)))
	builder.AddOp(txscript.OP_CHECKMULTISIG)

	return builder.Script()
}

// String returns a short human readable description of the policy.
func (p *Policy) String() string {
	return fmt.Sprintf("%d-of-%d", p.m, len(p.keys))
}

// deriveAddresses returns the script-hash and witness-script-hash encodings
// of the locking script for the given network.
func deriveAddresses(script []byte, chainParams *chaincfg.Params) (
	*btcutil.AddressScriptHash, *btcutil.AddressWitnessScriptHash, error) {

	p2shAddr, err := btcutil.NewAddressScriptHash(script, chainParams)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrAddressDerivation, err)
	}

	witnessProg := sha256.Sum256(script)
	p2wshAddr, err := btcutil.NewAddressWitnessScriptHash(
		witnessProg[:], chainParams,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrAddressDerivation, err)
	}

	return p2shAddr, p2wshAddr, nil
}
