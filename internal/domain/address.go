// internal/domain/address.go
package domain

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Address identifies a participant: founder, contributor, trader or platform owner.
type Address = solana.PublicKey

// LaunchID is the token mint address of a launch.
type LaunchID = solana.PublicKey

var (
	// ProgramID anchors every address the launchpad derives.
	ProgramID = solana.MustPublicKeyFromBase58("7WdWfWNgceJEdMbu5xbbYbZboJYByzsC6SNMT2pTozJA")

	// IncineratorAddress holds burned liquidity positions. Nothing can move funds out of it.
	IncineratorAddress = solana.MustPublicKeyFromBase58("1nc1nerator11111111111111111111111111111111")
)

const (
	seedMint    = "mint"
	seedEscrow  = "launch-escrow"
	seedCustody = "custody"
)

// DeriveLaunchID derives the mint address for a new launch. The nonce makes
// repeated launches of the same symbol by the same founder distinct.
func DeriveLaunchID(founder Address, symbol string, nonce uint64) (LaunchID, error) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], nonce)

	id, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedMint), founder.Bytes(), []byte(symbol), n[:]},
		ProgramID,
	)
	if err != nil {
		return LaunchID{}, fmt.Errorf("derive launch id: %w", err)
	}
	return id, nil
}

// EscrowAddress returns the account that holds a launch's unallocated tokens,
// raised funds, curve reserve and accrued fees.
func EscrowAddress(id LaunchID) Address {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedEscrow), id.Bytes()},
		ProgramID,
	)
	if err != nil {
		// FindProgramAddress only fails when no bump in [0,255] yields an off-curve
		// point, which does not happen for two 32-byte seeds.
		panic(fmt.Sprintf("derive escrow for %s: %v", id, err))
	}
	return addr
}

// CustodyAddress holds raised funds moved under community control until release.
func CustodyAddress(id LaunchID) Address {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedCustody), id.Bytes()},
		ProgramID,
	)
	if err != nil {
		panic(fmt.Sprintf("derive custody for %s: %v", id, err))
	}
	return addr
}

// ParseAddress validates a base58 address supplied by a client.
func ParseAddress(s string) (Address, error) {
	addr, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return Address{}, Validation(CodeBadAddress, "invalid address %q: %v", s, err)
	}
	return addr, nil
}
