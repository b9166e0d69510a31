// Copyright (c) 2025 The multisigwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

var (
	// ErrNoInputs is returned when a draft is created without any
	// spendable inputs.
	ErrNoInputs = errors.New("transaction has no inputs")

	// ErrNoOutputs is returned when a draft is created without any
	// outputs.
	ErrNoOutputs = errors.New("transaction has no outputs")

	// ErrNegativeFee is returned when a draft is created with a negative
	// fee.
	ErrNegativeFee = errors.New("fee cannot be negative")

	// ErrInsufficientFunds is returned when the inputs do not cover the
	// outputs plus the fee.
	ErrInsufficientFunds = errors.New("insufficient input value")

	// ErrInvalidDestination is returned when an output address cannot be
	// decoded for the wallet's network.
	ErrInvalidDestination = errors.New("invalid destination address")

	// ErrNonPositiveAmount is returned when an output amount is zero or
	// negative.
	ErrNonPositiveAmount = errors.New("output amount must be positive")

	// ErrNotMine is returned when a supplied unspent output is not locked
	// to the wallet's multisig script in either its p2sh or p2wsh form.
	ErrNotMine = errors.New("the passed output does not belong to the " +
		"wallet")

	// ErrMissingPrevTx is returned when a legacy (p2sh) output is
	// supplied without the full previous transaction it was created by.
	ErrMissingPrevTx = errors.New("legacy input requires the full " +
		"previous transaction")

	// ErrPrevTxMismatch is returned when the supplied previous
	// transaction does not actually contain the referenced output.
	ErrPrevTxMismatch = errors.New("previous transaction does not match " +
		"outpoint")
)

// Utxo describes an unspent output locked to the wallet's multisig script.
// PrevTx carries the serialized transaction that created the output and is
// required for outputs in the p2sh form; p2wsh outputs only need the amount
// and committed script.
type Utxo struct {
	// OutPoint identifies the output being spent.
	OutPoint wire.OutPoint

	// Value is the amount held by the output.
	Value btcutil.Amount

	// PkScript is the script the output is locked with.
	PkScript []byte

	// PrevTx is the full serialized previous transaction. May be nil for
	// witness outputs.
	PrevTx []byte
}

// Recipient is a desired output of a spending transaction.
type Recipient struct {
	// Address is the destination address in its string encoding.
	Address string

	// Amount is the value to send.
	Amount btcutil.Amount
}

// CreateTransaction assembles an unsigned spending draft paying the given
// recipients from the given unspent outputs, leaving fee satoshis to the
// miner. Every input must be locked to this wallet's script; the legacy or
// witness form of each input is resolved here, once, and drives how the
// input is later signed and unlocked. All validation happens eagerly before
// the skeleton is built.
func (w *Wallet) CreateTransaction(utxos []Utxo, recipients []Recipient,
	fee btcutil.Amount) (*Draft, error) {

	if len(utxos) == 0 {
		return nil, ErrNoInputs
	}
	if len(recipients) == 0 {
		return nil, ErrNoOutputs
	}
	if fee < 0 {
		return nil, fmt.Errorf("%w: %v", ErrNegativeFee, fee)
	}

	tx := wire.NewMsgTx(wire.TxVersion)

	var inputTotal btcutil.Amount
	inputs := make([]*draftInput, 0, len(utxos))
	for i, utxo := range utxos {
		input, err := w.resolveInput(utxo)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}

		inputTotal += utxo.Value
		inputs = append(inputs, input)
		tx.AddTxIn(wire.NewTxIn(&input.utxo.OutPoint, nil, nil))
	}

	var outputTotal btcutil.Amount
	for i, recipient := range recipients {
		if recipient.Amount <= 0 {
			return nil, fmt.Errorf("%w: output %d pays %v",
				ErrNonPositiveAmount, i, recipient.Amount)
		}

		addr, err := btcutil.DecodeAddress(
			recipient.Address, w.chainParams,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v",
				ErrInvalidDestination, recipient.Address, err)
		}
		if !addr.IsForNet(w.chainParams) {
			return nil, fmt.Errorf("%w: %q is not a %s address",
				ErrInvalidDestination, recipient.Address,
				w.chainParams.Name)
		}

		pkScript, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v",
				ErrInvalidDestination, recipient.Address, err)
		}

		outputTotal += recipient.Amount
		tx.AddTxOut(wire.NewTxOut(int64(recipient.Amount), pkScript))
	}

	if inputTotal < outputTotal+fee {
		return nil, fmt.Errorf("%w: have %v, need %v",
			ErrInsufficientFunds, inputTotal, outputTotal+fee)
	}

	log.Debugf("Assembled draft: %d inputs (%v), %d outputs (%v), fee %v",
		len(inputs), inputTotal, len(recipients), outputTotal, fee)

	return &Draft{
		tx:        tx,
		inputs:    inputs,
		threshold: w.policy.Threshold(),
	}, nil
}

// resolveInput checks that the unspent output is locked to the wallet and
// tags it with its legacy or witness form.
func (w *Wallet) resolveInput(utxo Utxo) (*draftInput, error) {
	switch {
	case bytes.Equal(utxo.PkScript, w.p2wshScript):
		return &draftInput{
			kind: InputWitness,
			utxo: utxo,
		}, nil

	case bytes.Equal(utxo.PkScript, w.p2shScript):
		if len(utxo.PrevTx) == 0 {
			return nil, ErrMissingPrevTx
		}

		prevTx := &wire.MsgTx{}
		err := prevTx.Deserialize(bytes.NewReader(utxo.PrevTx))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingPrevTx, err)
		}

		if prevTx.TxHash() != utxo.OutPoint.Hash {
			return nil, fmt.Errorf("%w: tx %v, outpoint %v",
				ErrPrevTxMismatch, prevTx.TxHash(),
				utxo.OutPoint)
		}
		if int(utxo.OutPoint.Index) >= len(prevTx.TxOut) {
			return nil, fmt.Errorf("%w: output index %d out of "+
				"range", ErrPrevTxMismatch, utxo.OutPoint.Index)
		}

		return &draftInput{
			kind:   InputLegacy,
			utxo:   utxo,
			prevTx: prevTx,
		}, nil

	default:
		return nil, ErrNotMine
	}
}
