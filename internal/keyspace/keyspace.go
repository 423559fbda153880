// Package keyspace builds the composite keys partstore uses internally.
//
// Inside one physical store, token and data records share a keyspace; a
// one-byte kind tag keeps a key reused across record kinds addressing two
// independent values. Cache and flight keys are length-prefixed composites
// of (partition, key) so a binary key can never alias an adjacent
// partition name.
package keyspace

import "encoding/binary"

// Record kind tags. One byte, prepended to every stored key.
const (
	KindToken byte = 't'
	KindData  byte = 'd'
)

// Token returns the stored form of key for a token record.
func Token(key []byte) []byte { return tagged(KindToken, key) }

// Data returns the stored form of key for a data record.
func Data(key []byte) []byte { return tagged(KindData, key) }

func tagged(kind byte, key []byte) []byte {
	out := make([]byte, 0, 1+len(key))
	out = append(out, kind)
	return append(out, key...)
}

// Cache returns the cache key for (partition, key). The partition is
// uvarint-length-prefixed, so ("ab", "c") and ("a", "bc") never collide.
func Cache(partition string, key []byte) string {
	out := make([]byte, 0, binary.MaxVarintLen64+len(partition)+len(key))
	out = binary.AppendUvarint(out, uint64(len(partition)))
	out = append(out, partition...)
	out = append(out, key...)
	return string(out)
}

// Flight returns the singleflight key for a (kind, partition, key) load.
func Flight(kind byte, partition string, key []byte) string {
	out := make([]byte, 0, 1+binary.MaxVarintLen64+len(partition)+len(key))
	out = append(out, kind)
	out = binary.AppendUvarint(out, uint64(len(partition)))
	out = append(out, partition...)
	out = append(out, key...)
	return string(out)
}
