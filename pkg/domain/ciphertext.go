package domain

// Ciphertext is an opaque serialized ciphertext handle produced by the
// confidential-computation engine. The service stores and forwards handles;
// it never interprets the bytes. JSON encoding is standard base64 via the
// underlying byte slice.
type Ciphertext []byte

// IsZero reports whether the handle is absent. An absent handle is distinct
// from an encryption of zero, which is a real ciphertext.
func (c Ciphertext) IsZero() bool {
	return len(c) == 0
}

// Clone returns an independent copy of the handle. Stores clone on read and
// write so callers cannot alias interior state.
func (c Ciphertext) Clone() Ciphertext {
	if c == nil {
		return nil
	}
	out := make(Ciphertext, len(c))
	copy(out, c)
	return out
}
