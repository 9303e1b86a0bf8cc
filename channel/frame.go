package channel

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// _recordField is the field number every framed record is written under.
const _recordField protowire.Number = 1

// appendFrame appends p as one length-delimited record.
func appendFrame(buf *bytes.Buffer, p []byte) {
	var hdr [2 * binary.MaxVarintLen64]byte // tag and length varints
	b := protowire.AppendTag(hdr[:0], _recordField, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(len(p)))
	buf.Write(b)
	buf.Write(p)
}

// ReadFrames splits a framed capture into the records written by Output, in
// order. A truncated trailing record is reported as an error together with
// the records decoded before it.
func ReadFrames(r io.Reader) ([][]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read capture: %w", err)
	}

	var records [][]byte
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return records, fmt.Errorf("record %d tag: %w", len(records), protowire.ParseError(n))
		}
		data = data[n:]
		if num != _recordField || typ != protowire.BytesType {
			return records, fmt.Errorf("record %d: unexpected field %d type %d", len(records), num, typ)
		}

		v, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return records, fmt.Errorf("record %d body: %w", len(records), protowire.ParseError(n))
		}
		records = append(records, v)
		data = data[n:]
	}
	return records, nil
}
