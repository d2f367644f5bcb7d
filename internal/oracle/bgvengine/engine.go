// Package bgvengine implements the ciphertext-domain capability set on the
// lattigo BGV scheme. Payload strings are packed one byte per plaintext slot;
// counters live in slot zero so the blind-increment unit is an encryption of
// [1, 0, 0, ...].
package bgvengine

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/bgv"

	"velum/pkg/domain"
)

// defaultLiteral targets 128-bit security. The plaintext modulus 65537 is
// congruent to 1 mod 2N, enabling full slot packing, and leaves ample
// headroom over byte values under repeated addition.
var defaultLiteral = bgv.ParametersLiteral{
	LogN:             13,
	LogQ:             []int{54, 54, 54},
	LogP:             []int{55},
	PlaintextModulus: 0x10001,
}

// Engine is the public-key side: encrypt and homomorphically add. It never
// holds the secret key.
type Engine struct {
	params    bgv.Parameters
	encoder   *bgv.Encoder
	encryptor *rlwe.Encryptor
	evaluator *bgv.Evaluator
}

// Decryptor is the secret-key side, held only by the oracle runtime.
type Decryptor struct {
	params    bgv.Parameters
	encoder   *bgv.Encoder
	decryptor *rlwe.Decryptor
}

// NewSuite generates a fresh key pair and returns the public-side Engine
// together with the private-side Decryptor. Deployments with an external
// oracle construct only the Engine from distributed public material; the
// in-process runtime uses both halves.
func NewSuite() (*Engine, *Decryptor, error) {
	params, err := bgv.NewParametersFromLiteral(defaultLiteral)
	if err != nil {
		return nil, nil, fmt.Errorf("bgv parameters: %w", err)
	}

	kgen := rlwe.NewKeyGenerator(params)
	sk := kgen.GenSecretKeyNew()
	pk := kgen.GenPublicKeyNew(sk)

	engine := &Engine{
		params:    params,
		encoder:   bgv.NewEncoder(params),
		encryptor: rlwe.NewEncryptor(params, pk),
		evaluator: bgv.NewEvaluator(params, nil),
	}
	decryptor := &Decryptor{
		params:    params,
		encoder:   bgv.NewEncoder(params),
		decryptor: rlwe.NewDecryptor(params, sk),
	}
	return engine, decryptor, nil
}

// EncryptZero returns a fresh encryption of the all-zero slot vector.
func (e *Engine) EncryptZero() (domain.Ciphertext, error) {
	return e.encryptSlots([]uint64{0})
}

// EncryptOne returns a fresh encryption of one in slot zero, the
// blind-increment unit.
func (e *Engine) EncryptOne() (domain.Ciphertext, error) {
	return e.encryptSlots([]uint64{1})
}

// EncryptString packs s one byte per slot and encrypts it. Used by tests and
// by dev tooling standing in for the client-side encryptor.
func (e *Engine) EncryptString(s string) (domain.Ciphertext, error) {
	raw := []byte(s)
	if len(raw) >= e.params.MaxSlots() {
		return nil, fmt.Errorf("plaintext of %d bytes exceeds %d slots", len(raw), e.params.MaxSlots())
	}
	slots := make([]uint64, len(raw))
	for i, b := range raw {
		slots[i] = uint64(b)
	}
	return e.encryptSlots(slots)
}

// AddCiphertexts homomorphically adds two ciphertexts slot-wise.
func (e *Engine) AddCiphertexts(a, b domain.Ciphertext) (domain.Ciphertext, error) {
	ctA, err := unmarshalCiphertext(a)
	if err != nil {
		return nil, fmt.Errorf("left operand: %w", err)
	}
	ctB, err := unmarshalCiphertext(b)
	if err != nil {
		return nil, fmt.Errorf("right operand: %w", err)
	}
	sum, err := e.evaluator.AddNew(ctA, ctB)
	if err != nil {
		return nil, fmt.Errorf("homomorphic add: %w", err)
	}
	return marshalCiphertext(sum)
}

// IsInitialized reports whether the handle deserializes to a ciphertext
// under the engine's parameters.
func (e *Engine) IsInitialized(ct domain.Ciphertext) bool {
	if ct.IsZero() {
		return false
	}
	_, err := unmarshalCiphertext(ct)
	return err == nil
}

func (e *Engine) encryptSlots(values []uint64) (domain.Ciphertext, error) {
	pt := bgv.NewPlaintext(e.params, e.params.MaxLevel())
	if err := e.encoder.Encode(values, pt); err != nil {
		return nil, fmt.Errorf("encode slots: %w", err)
	}
	ct, err := e.encryptor.EncryptNew(pt)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return marshalCiphertext(ct)
}

// DecryptSlots decrypts a handle to its raw slot vector.
func (d *Decryptor) DecryptSlots(ct domain.Ciphertext) ([]uint64, error) {
	parsed, err := unmarshalCiphertext(ct)
	if err != nil {
		return nil, err
	}
	pt := d.decryptor.DecryptNew(parsed)
	values := make([]uint64, d.params.MaxSlots())
	if err := d.encoder.Decode(pt, values); err != nil {
		return nil, fmt.Errorf("decode slots: %w", err)
	}
	return values, nil
}

// DecryptString decodes leading slots as bytes up to the first zero slot.
// Slots of blind-summed inputs may exceed byte range; they fold mod 256 and
// callers treat the result as opaque.
func (d *Decryptor) DecryptString(ct domain.Ciphertext) (string, error) {
	slots, err := d.DecryptSlots(ct)
	if err != nil {
		return "", err
	}
	raw := make([]byte, 0, 64)
	for _, v := range slots {
		if v == 0 {
			break
		}
		raw = append(raw, byte(v%256))
	}
	return string(raw), nil
}

// DecryptCount reads the counter value from slot zero.
func (d *Decryptor) DecryptCount(ct domain.Ciphertext) (uint64, error) {
	slots, err := d.DecryptSlots(ct)
	if err != nil {
		return 0, err
	}
	return slots[0], nil
}

func marshalCiphertext(ct *rlwe.Ciphertext) (domain.Ciphertext, error) {
	raw, err := ct.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal ciphertext: %w", err)
	}
	return raw, nil
}

func unmarshalCiphertext(handle domain.Ciphertext) (*rlwe.Ciphertext, error) {
	ct := new(rlwe.Ciphertext)
	if err := ct.UnmarshalBinary(handle); err != nil {
		return nil, fmt.Errorf("unmarshal ciphertext: %w", err)
	}
	return ct, nil
}
