package codec

// Codec encodes/decodes values V to []byte for storage.
// Round-tripping Decode(Encode(v)) must yield a value equal to v;
// byte-for-byte canonical output across versions is not required.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
