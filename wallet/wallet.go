// Copyright (c) 2025 The multisigwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wallet implements an m-of-n multisig wallet engine. It builds the
// canonical multisig locking script and its P2SH/P2WSH addresses for a fixed
// signer set, assembles unsigned spending drafts against supplied unspent
// outputs, collects partial signatures until the spending threshold is met
// and finalizes the draft into its broadcast-ready wire encoding.
//
// The wallet never touches the network or any persistent storage; callers
// supply the unspent outputs and take care of broadcasting the finalized
// transaction bytes.
package wallet

import (
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Wallet owns a single multisig policy together with its locking script and
// addresses, all computed once at construction and immutable afterwards. The
// only mutable state is the signer session: the set of signers that have
// already contributed a signature through this instance. The session is
// wallet scoped rather than draft scoped, so a signer is refused on any
// draft until ResetSigners is called.
type Wallet struct {
	chainParams *chaincfg.Params

	policy       *Policy
	redeemScript []byte

	p2shAddr  *btcutil.AddressScriptHash
	p2wshAddr *btcutil.AddressWitnessScriptHash

	// p2shScript and p2wshScript are the two pkScript forms an output
	// locked to this wallet may carry.
	p2shScript  []byte
	p2wshScript []byte

	// usedSigners tracks the signers that have already contributed in
	// this instance's session, keyed by compressed public key bytes.
	// Guarded by usedSignersMtx so that two concurrent submissions by the
	// same signer cannot both succeed.
	usedSignersMtx sync.Mutex
	usedSigners    fn.Set[string]
}

// NewWallet builds an m-of-n wallet from the compressed public keys of its
// signers. Key order does not matter; the policy sorts them into canonical
// order so every signer derives the same script and addresses from the same
// key set.
func NewWallet(m int, rawPubKeys [][]byte,
	chainParams *chaincfg.Params) (*Wallet, error) {

	policy, err := ParsePolicy(m, rawPubKeys)
	if err != nil {
		return nil, err
	}

	return newWallet(policy, chainParams)
}

// NewWalletFromPolicy builds a wallet for an already validated policy.
func NewWalletFromPolicy(policy *Policy,
	chainParams *chaincfg.Params) (*Wallet, error) {

	return newWallet(policy, chainParams)
}

func newWallet(policy *Policy, chainParams *chaincfg.Params) (*Wallet,
	error) {

	script, err := policy.Script()
	if err != nil {
		// The policy was validated, so the builder cannot overflow.
		return nil, err
	}

	p2shAddr, p2wshAddr, err := deriveAddresses(script, chainParams)
	if err != nil {
		return nil, err
	}

	p2shScript, err := txscript.PayToAddrScript(p2shAddr)
	if err != nil {
		return nil, err
	}
	p2wshScript, err := txscript.PayToAddrScript(p2wshAddr)
	if err != nil {
		return nil, err
	}

	log.Infof("Created %v wallet: p2sh=%v, p2wsh=%v", policy,
		p2shAddr, p2wshAddr)

	return &Wallet{
		chainParams:  chainParams,
		policy:       policy,
		redeemScript: script,
		p2shAddr:     p2shAddr,
		p2wshAddr:    p2wshAddr,
		p2shScript:   p2shScript,
		p2wshScript:  p2wshScript,
		usedSigners:  fn.NewSet[string](),
	}, nil
}

// Policy returns the wallet's multisig policy.
func (w *Wallet) Policy() *Policy {
	return w.policy
}

// ChainParams returns the network parameters the wallet was created for.
func (w *Wallet) ChainParams() *chaincfg.Params {
	return w.chainParams
}

// RedeemScript returns a copy of the wallet's multisig locking script.
func (w *Wallet) RedeemScript() []byte {
	script := make([]byte, len(w.redeemScript))
	copy(script, w.redeemScript)
	return script
}

// Addresses returns the script-hash and witness-script-hash addresses of
// the wallet's locking script.
func (w *Wallet) Addresses() (*btcutil.AddressScriptHash,
	*btcutil.AddressWitnessScriptHash) {

	return w.p2shAddr, w.p2wshAddr
}

// ResetSigners clears the wallet's signer session so that the same signers
// may contribute to a new, independent transaction. Signatures already
// recorded in any draft are untouched.
func (w *Wallet) ResetSigners() {
	w.usedSignersMtx.Lock()
	defer w.usedSignersMtx.Unlock()

	log.Debugf("Resetting signer session, %d signers used",
		len(w.usedSigners))

	w.usedSigners = fn.NewSet[string]()
}
