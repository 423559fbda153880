package codec

import "google.golang.org/protobuf/proto"

// Proto serializes protobuf messages with google.golang.org/protobuf.
type Proto[M proto.Message] struct {
	new func() M // constructor for a concrete message (e.g., func() *mypb.Token { return &mypb.Token{} })
}

func NewProto[M proto.Message](ctor func() M) Proto[M] {
	return Proto[M]{new: ctor}
}

func (c Proto[M]) Encode(v M) ([]byte, error) {
	return proto.Marshal(v)
}
func (c Proto[M]) Decode(b []byte) (M, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}
