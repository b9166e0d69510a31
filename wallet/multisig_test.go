// Copyright (c) 2025 The multisigwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"
)

// testPubKeys generates n distinct public keys.
func testPubKeys(t *testing.T, n int) []*btcec.PublicKey {
	t.Helper()

	keys := make([]*btcec.PublicKey, n)
	for i := 0; i < n; i++ {
		privKey, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		keys[i] = privKey.PubKey()
	}

	return keys
}

// TestNewPolicyValidation verifies that policy construction rejects bad
// thresholds and key sets with the expected errors.
func TestNewPolicyValidation(t *testing.T) {
	t.Parallel()

	keys := testPubKeys(t, 3)

	testCases := []struct {
		name string
		m    int
		keys []*btcec.PublicKey
		err  error
	}{{
		name: "zero threshold",
		m:    0,
		keys: keys,
		err:  ErrInvalidThreshold,
	}, {
		name: "negative threshold",
		m:    -1,
		keys: keys,
		err:  ErrInvalidThreshold,
	}, {
		name: "threshold above key count",
		m:    4,
		keys: keys,
		err:  ErrInvalidThreshold,
	}, {
		name: "empty key set",
		m:    1,
		keys: nil,
		err:  ErrEmptyKeySet,
	}, {
		name: "nil key",
		m:    1,
		keys: []*btcec.PublicKey{keys[0], nil},
		err:  ErrInvalidPublicKey,
	}, {
		name: "duplicate key",
		m:    2,
		keys: []*btcec.PublicKey{keys[0], keys[1], keys[0]},
		err:  ErrDuplicateKey,
	}, {
		name: "too many keys",
		m:    1,
		keys: testPubKeys(t, txscript.MaxPubKeysPerMultiSig+1),
		err:  ErrTooManyKeys,
	}, {
		name: "valid 2-of-3",
		m:    2,
		keys: keys,
		err:  nil,
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			policy, err := NewPolicy(tc.m, tc.keys)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.m, policy.Threshold())
			require.Equal(t, len(tc.keys), policy.SignerCount())
		})
	}
}

// TestParsePolicyInvalidKey verifies that raw bytes which are not a curve
// point are rejected.
func TestParsePolicyInvalidKey(t *testing.T) {
	t.Parallel()

	valid := testPubKeys(t, 1)[0].SerializeCompressed()

	_, err := ParsePolicy(1, [][]byte{valid, make([]byte, 33)})
	require.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = ParsePolicy(1, [][]byte{{0x02, 0x01}})
	require.ErrorIs(t, err, ErrInvalidPublicKey)
}

// TestPolicyScriptPermutationInvariant verifies that the locking script is
// identical no matter what order the keys are supplied in, which is what
// lets independent signers derive the same address without coordinating.
func TestPolicyScriptPermutationInvariant(t *testing.T) {
	t.Parallel()

	keys := testPubKeys(t, 3)

	permutations := [][]*btcec.PublicKey{
		{keys[0], keys[1], keys[2]},
		{keys[0], keys[2], keys[1]},
		{keys[1], keys[0], keys[2]},
		{keys[1], keys[2], keys[0]},
		{keys[2], keys[0], keys[1]},
		{keys[2], keys[1], keys[0]},
	}

	reference, err := NewPolicy(2, permutations[0])
	require.NoError(t, err)
	refScript, err := reference.Script()
	require.NoError(t, err)

	for _, perm := range permutations[1:] {
		policy, err := NewPolicy(2, perm)
		require.NoError(t, err)

		script, err := policy.Script()
		require.NoError(t, err)
		require.Equal(t, refScript, script)
	}
}

// TestPolicyScriptStructure verifies the opcode layout of the generated
// script: threshold, keys, key count, OP_CHECKMULTISIG.
func TestPolicyScriptStructure(t *testing.T) {
	t.Parallel()

	policy, err := NewPolicy(2, testPubKeys(t, 3))
	require.NoError(t, err)

	script, err := policy.Script()
	require.NoError(t, err)

	require.Equal(t, byte(txscript.OP_2), script[0])
	require.Equal(t, byte(txscript.OP_3), script[len(script)-2])
	require.Equal(
		t, byte(txscript.OP_CHECKMULTISIG), script[len(script)-1],
	)

	// 1 + 3*(1+33) + 1 + 1 opcodes and pushes in total.
	require.Len(t, script, 105)
}

// TestDeriveAddresses verifies that both address encodings of the locking
// script round-trip through the address parser for the target network.
func TestDeriveAddresses(t *testing.T) {
	t.Parallel()

	w, _ := newTestWallet(t, 2, 3)

	p2sh, p2wsh := w.Addresses()

	decoded, err := btcutil.DecodeAddress(
		p2sh.EncodeAddress(), testChainParams,
	)
	require.NoError(t, err)
	require.True(t, decoded.IsForNet(testChainParams))

	decoded, err = btcutil.DecodeAddress(
		p2wsh.EncodeAddress(), testChainParams,
	)
	require.NoError(t, err)
	require.True(t, decoded.IsForNet(testChainParams))

	// Both encodings commit to the same script.
	script := w.RedeemScript()
	require.Equal(t, btcutil.Hash160(script), p2sh.ScriptAddress())
}
