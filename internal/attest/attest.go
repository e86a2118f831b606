// Package attest binds a verified order to a signing identity: a canonical
// SHA3-256 hash of the signal and proof, signed with Ed25519 (§4.7).
package attest

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/sha3"

	"axiomguard/internal/types"
)

// ErrVerificationFailed is returned when a recomputed attestation message
// does not match the signature on file — any bit-flip in signal, proof, or
// verified_at must fail here (§8 round-trip property).
var ErrVerificationFailed = errors.New("attest: verification failed")

// Signer signs and verifies attestations for a single Ed25519 key pair.
type Signer struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
}

// NewSigner wraps an existing Ed25519 key pair.
func NewSigner(private ed25519.PrivateKey, public ed25519.PublicKey) *Signer {
	return &Signer{private: private, public: public}
}

// GenerateSigner creates a fresh Ed25519 key pair. seed, when non-nil, must
// be exactly ed25519.SeedSize bytes and makes key generation deterministic
// (the tests use a fixed 32-byte seed).
func GenerateSigner(seed []byte) (*Signer, error) {
	if seed != nil {
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("attest: seed must be %d bytes", ed25519.SeedSize)
		}
		private := ed25519.NewKeyFromSeed(seed)
		return &Signer{private: private, public: private.Public().(ed25519.PublicKey)}, nil
	}
	public, private, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("attest: generate key: %w", err)
	}
	return &Signer{private: private, public: public}, nil
}

// PublicKey returns the signer's verifying key.
func (s *Signer) PublicKey() ed25519.PublicKey { return s.public }

// OrderHash computes SHA3-256(canonical_bytes(signal || proof_summary)),
// per §4.7 step 1. Field order and decimal-to-string conversion are fixed
// so two calls with equal inputs always produce identical bytes.
func OrderHash(signal types.TradeSignal, proof types.Proof) [32]byte {
	var sb strings.Builder

	sb.WriteString(string(signal.Symbol))
	sb.WriteByte('|')
	sb.WriteString(string(signal.Venue))
	sb.WriteByte('|')
	sb.WriteString(string(signal.Side))
	sb.WriteByte('|')
	sb.WriteString(string(signal.OrderType))
	sb.WriteByte('|')
	sb.WriteString(signal.Quantity.String())
	sb.WriteByte('|')
	if signal.LimitPrice != nil {
		sb.WriteString(signal.LimitPrice.String())
	}
	sb.WriteByte('|')
	if signal.StopPrice != nil {
		sb.WriteString(signal.StopPrice.String())
	}
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatInt(signal.Timestamp.UTC().UnixMilli(), 10))
	sb.WriteByte('|')
	sb.WriteString(signal.ContradictionScore.String())
	sb.WriteByte('|')
	sb.WriteString(signal.EntropyCount.String())
	sb.WriteByte('|')

	sb.WriteString(strconv.FormatBool(proof.Satisfiable))
	sb.WriteByte('|')
	axioms := append([]types.AxiomID(nil), proof.AxiomsSatisfied...)
	sort.Slice(axioms, func(i, j int) bool { return axioms[i] < axioms[j] })
	for i, a := range axioms {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(string(a))
	}

	return sha3.Sum256([]byte(sb.String()))
}

// proofSignatureField is the canonical summary string used as the middle
// segment of the attestation message (§4.7 step 2): satisfiable plus the
// sorted axiom set, joined deterministically.
func proofSignatureField(proof types.Proof) string {
	axioms := append([]types.AxiomID(nil), proof.AxiomsSatisfied...)
	sort.Slice(axioms, func(i, j int) bool { return axioms[i] < axioms[j] })
	names := make([]string, len(axioms))
	for i, a := range axioms {
		names[i] = string(a)
	}
	return strconv.FormatBool(proof.Satisfiable) + ":" + strings.Join(names, ",")
}

// message builds order_hash ":" proof_signature_field ":" verified_at_epoch_seconds.
func message(orderHash [32]byte, proof types.Proof, verifiedAt int64) []byte {
	hashHex := fmt.Sprintf("%x", orderHash)
	return []byte(hashHex + ":" + proofSignatureField(proof) + ":" + strconv.FormatInt(verifiedAt, 10))
}

// Sign produces an Attestation binding the given VerifiedOrder's signal and
// proof to this signer's key, using order.VerifiedAt as the attestation
// timestamp.
func (s *Signer) Sign(order types.VerifiedOrder) types.Attestation {
	orderHash := OrderHash(order.Signal, order.Proof)
	verifiedAtSec := order.VerifiedAt.UTC().Unix()
	msg := message(orderHash, order.Proof, verifiedAtSec)

	sig := ed25519.Sign(s.private, msg)

	return types.Attestation{
		SignatureBytes:    sig,
		VerifyingKeyBytes: append([]byte(nil), s.public...),
		PayloadHash:       orderHash,
		Timestamp:         order.VerifiedAt,
	}
}

// Verify recomputes the attestation message byte-for-byte from signal,
// proof, and verifiedAt and checks it against the stored signature and
// verifying key. Any drift in any field fails with ErrVerificationFailed.
func Verify(signal types.TradeSignal, proof types.Proof, verifiedAt int64, att types.Attestation) error {
	orderHash := OrderHash(signal, proof)
	if orderHash != att.PayloadHash {
		return ErrVerificationFailed
	}
	msg := message(orderHash, proof, verifiedAt)
	if !ed25519.Verify(ed25519.PublicKey(att.VerifyingKeyBytes), msg, att.SignatureBytes) {
		return ErrVerificationFailed
	}
	return nil
}
