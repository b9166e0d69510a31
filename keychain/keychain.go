// Copyright (c) 2025 The multisigwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package keychain derives and recovers the deterministic signer keys used
// by the multisig wallet. Each signer key lives at a fixed BIP48-style
// account path so that any signer can be reproduced from nothing but its
// backup mnemonic and index.
package keychain

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"
)

const (
	// Purpose is the BIP48 purpose field used for multisig account
	// derivation.
	Purpose uint32 = 48

	// scriptTypeP2WSH is the BIP48 script-type field committing the
	// account to script-hash based multisig spendable via P2WSH.
	scriptTypeP2WSH uint32 = 2

	// defaultAccount is the account field used for signer derivation.
	// Multiple accounts per mnemonic are not exposed.
	defaultAccount uint32 = 0

	// entropyBits is the entropy drawn for a fresh backup mnemonic,
	// producing a 24 word phrase.
	entropyBits = 256
)

var (
	// ErrInvalidMnemonic is returned when a backup mnemonic fails its
	// checksum and therefore cannot have been produced by Generate.
	ErrInvalidMnemonic = errors.New("invalid backup mnemonic")

	// ErrInvalidSignerIndex is returned when a signer index is outside
	// the configured signer count.
	ErrInvalidSignerIndex = errors.New("signer index out of range")

	// ErrNoSigners is returned when a key ring is created for zero
	// signers.
	ErrNoSigners = errors.New("signer count must be positive")
)

// SignerKey is the key material for a single multisig signer. PrivKey and
// Mnemonic are only populated when the key was derived locally; a key
// reconstructed from public material alone carries just the public key.
type SignerKey struct {
	// PubKey is the signer's compressed secp256k1 public key.
	PubKey *btcec.PublicKey

	// PrivKey is the signer's private key. Nil for watch-only keys.
	PrivKey *btcec.PrivateKey

	// Mnemonic is the backup phrase the key material was derived from.
	// Empty for watch-only keys.
	Mnemonic string

	// Path is the full derivation path of the key below the master key.
	Path DerivationPath
}

// NewWatchOnlySignerKey parses a 33-byte compressed public key into a
// SignerKey without private material, as used when assembling a policy from
// co-signer keys that were generated elsewhere.
func NewWatchOnlySignerKey(pubKeyBytes []byte) (*SignerKey, error) {
	pubKey, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}

	return &SignerKey{PubKey: pubKey}, nil
}

// KeyRing derives signer keys for a fixed signer count on a given network.
// It holds no mutable state, so a single KeyRing may be shared freely
// between goroutines.
type KeyRing struct {
	chainParams *chaincfg.Params
	signerCount uint32
}

// NewKeyRing creates a key ring able to derive and recover keys for
// signerCount signers on the network described by chainParams.
func NewKeyRing(chainParams *chaincfg.Params,
	signerCount uint32) (*KeyRing, error) {

	if signerCount == 0 {
		return nil, ErrNoSigners
	}

	return &KeyRing{
		chainParams: chainParams,
		signerCount: signerCount,
	}, nil
}

// SignerPath returns the derivation path used for the signer at the given
// index: m/48'/coin'/0'/2'/index'. Every step is hardened so that no signer
// key can be linked to or derived from a sibling's public material.
func (k *KeyRing) SignerPath(index uint32) DerivationPath {
	h := uint32(hdkeychain.HardenedKeyStart)

	return DerivationPath{
		h + Purpose,
		h + k.chainParams.HDCoinType,
		h + defaultAccount,
		h + scriptTypeP2WSH,
		h + index,
	}
}

// Generate draws fresh entropy, encodes it as a backup mnemonic and derives
// the signer key for the given index from it. The returned key carries both
// public and private material together with the mnemonic needed to recover
// it later.
func (k *KeyRing) Generate(index uint32) (*SignerKey, error) {
	if index >= k.signerCount {
		return nil, fmt.Errorf("%w: %d (signer count %d)",
			ErrInvalidSignerIndex, index, k.signerCount)
	}

	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return nil, err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, err
	}

	return k.deriveSignerKey(mnemonic, index)
}

// Recover re-derives the signer key for the given index from its backup
// mnemonic. The result is bit-for-bit identical to the key originally
// returned by Generate for that mnemonic and index.
func (k *KeyRing) Recover(mnemonic string, index uint32) (*SignerKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	if index >= k.signerCount {
		return nil, fmt.Errorf("%w: %d (signer count %d)",
			ErrInvalidSignerIndex, index, k.signerCount)
	}

	return k.deriveSignerKey(mnemonic, index)
}

// AccountExtendedPubKey returns the neutered extended key at the account
// level, m/48'/coin'/0'/2', for the given mnemonic. Coordinators can hand
// this to a watch-only host that audits addresses without ever seeing
// private material.
func (k *KeyRing) AccountExtendedPubKey(
	mnemonic string) (*hdkeychain.ExtendedKey, error) {

	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	accountPath := k.SignerPath(0)
	accountPath = accountPath[:len(accountPath)-1]

	node, err := k.deriveNode(mnemonic, accountPath)
	if err != nil {
		return nil, err
	}

	return node.Neuter()
}

// deriveSignerKey walks the signer path for index below the master key of
// the mnemonic's seed and extracts the resulting key pair.
func (k *KeyRing) deriveSignerKey(mnemonic string,
	index uint32) (*SignerKey, error) {

	path := k.SignerPath(index)
	if err := path.Validate(); err != nil {
		return nil, err
	}

	node, err := k.deriveNode(mnemonic, path)
	if err != nil {
		return nil, err
	}

	privKey, err := node.ECPrivKey()
	if err != nil {
		return nil, err
	}
	pubKey, err := node.ECPubKey()
	if err != nil {
		return nil, err
	}

	log.Debugf("Derived signer key %d at path %v", index, path)

	return &SignerKey{
		PubKey:   pubKey,
		PrivKey:  privKey,
		Mnemonic: mnemonic,
		Path:     path,
	}, nil
}

// deriveNode stretches the mnemonic into a seed and walks the given path
// from the resulting master key.
func (k *KeyRing) deriveNode(mnemonic string,
	path DerivationPath) (*hdkeychain.ExtendedKey, error) {

	seed := bip39.NewSeed(mnemonic, "")

	node, err := hdkeychain.NewMaster(seed, k.chainParams)
	if err != nil {
		return nil, err
	}

	for _, step := range path {
		node, err = node.Derive(step)
		if err != nil {
			return nil, err
		}
	}

	return node, nil
}
