// Copyright (c) 2025 The multisigwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

// DraftState describes how far a transaction draft has progressed through
// the signing protocol. A draft starts Empty, accumulates partial signatures
// until every input meets the policy threshold, and ends Finalized once the
// broadcast-ready encoding has been produced. Finalized is terminal.
type DraftState uint8

const (
	// DraftEmpty indicates no input has any recorded signature.
	DraftEmpty DraftState = iota

	// DraftPartiallySigned indicates at least one signature has been
	// recorded but some input is still below the policy threshold.
	DraftPartiallySigned

	// DraftSignable indicates every input has at least threshold many
	// distinct signatures and the draft can be finalized.
	DraftSignable

	// DraftFinalized indicates the draft has been assembled into its
	// final wire encoding. No further signatures are accepted.
	DraftFinalized
)

// String returns the string representation of a DraftState.
func (s DraftState) String() string {
	switch s {
	case DraftEmpty:
		return "empty"

	case DraftPartiallySigned:
		return "partially signed"

	case DraftSignable:
		return "signable"

	case DraftFinalized:
		return "finalized"

	default:
		return "unknown draft state"
	}
}

// State derives the draft's current protocol state from its contents.
func (d *Draft) State() DraftState {
	if d.final != nil {
		return DraftFinalized
	}

	total := 0
	signable := true
	for _, input := range d.inputs {
		total += len(input.sigs)
		if len(input.sigs) < d.threshold {
			signable = false
		}
	}

	switch {
	case total == 0:
		return DraftEmpty

	case signable:
		return DraftSignable

	default:
		return DraftPartiallySigned
	}
}
