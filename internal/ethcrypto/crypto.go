// Copyright 2024 The corenet Authors
// This file is part of the corenet library.
//
// The corenet library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The corenet library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the corenet library. If not, see <http://www.gnu.org/licenses/>.

// Package ethcrypto carries the two cryptographic primitives the rest of the
// module builds node identity and hashing on: secp256k1 keys (backing the
// 64-byte NodeId) and Keccak-256 hashing (backing address/hash derivation).
package ethcrypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/sha3"

	"github.com/ethnode/corenet/common"
)

// Keccak256 returns the Keccak-256 digest of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	return h.Sum(nil)
}

// Keccak256Hash is Keccak256 wrapped as a common.Hash.
func Keccak256Hash(data ...[]byte) common.Hash {
	return common.BytesToHash(Keccak256(data...))
}

// GenerateKey creates a new random secp256k1 private key, using btcec on
// top of the standard elliptic curve machinery.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(btcec.S256(), rand.Reader)
}

// HexToECDSA parses a hex-encoded secp256k1 private key, useful for
// constructing a deterministic funded test account.
func HexToECDSA(hexkey string) (*ecdsa.PrivateKey, error) {
	b, err := hex.DecodeString(hexkey)
	if err != nil {
		return nil, fmt.Errorf("ethcrypto: invalid hex key: %w", err)
	}
	return toECDSA(b)
}

func toECDSA(d []byte) (*ecdsa.PrivateKey, error) {
	priv := new(ecdsa.PrivateKey)
	priv.PublicKey.Curve = btcec.S256()
	if 8*len(d) != priv.Params().BitSize {
		return nil, fmt.Errorf("ethcrypto: invalid key length, need %d bits", priv.Params().BitSize)
	}
	priv.D = new(big.Int).SetBytes(d)
	priv.PublicKey.X, priv.PublicKey.Y = priv.Curve.ScalarBaseMult(d)
	if priv.PublicKey.X == nil {
		return nil, fmt.Errorf("ethcrypto: invalid private key")
	}
	return priv, nil
}

// PubkeyToAddress derives the 20-byte address from an ECDSA public key, as
// Keccak256(pubkey.X || pubkey.Y)[12:].
func PubkeyToAddress(pub ecdsa.PublicKey) common.Address {
	raw := elliptic.Marshal(pub.Curve, pub.X, pub.Y)[1:] // strip 0x04 prefix
	return common.BytesToAddress(Keccak256(raw)[12:])
}

// NodeIDFromPubkey derives the 64-byte NodeId (uncompressed pubkey minus the
// 0x04 prefix byte) used to identify a peer on the devp2p network.
func NodeIDFromPubkey(pub *ecdsa.PublicKey) [64]byte {
	var id [64]byte
	raw := elliptic.Marshal(pub.Curve, pub.X, pub.Y)[1:]
	copy(id[:], raw)
	return id
}
