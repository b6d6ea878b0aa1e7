// Copyright 2023 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package batch describes an in-memory serialized column batch handed to the
// compiler by local data ingestion. The payload bytes are opaque to the
// compiler; the descriptor around them (schema, row count, null bitmaps,
// distinct-count sketches) is what planning reads.
package batch

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/fnv"
	"io"

	hll "github.com/axiomhq/hyperloglog"
	"github.com/pierrec/lz4"

	"github.com/matrixorigin/framequery/pkg/common/moerr"
	"github.com/matrixorigin/framequery/pkg/container/nulls"
	"github.com/matrixorigin/framequery/pkg/container/types"
)

// Batch is one immutable local data source.
type Batch struct {
	// Payload holds the serialized column data. Opaque here; decoded only by
	// the ingestion layer that produced it.
	Payload []byte

	Attrs []string
	Types []types.Type
	Rows  int64

	// Nulls[i] marks the null rows of column i. May contain nils.
	Nulls []*nulls.Nulls

	// Ndv[i] is an optional distinct-count sketch for column i, filled by the
	// ingestion layer while encoding the payload. May contain nils.
	Ndv []*hll.Sketch
}

func New(attrs []string, typs []types.Type, rows int64) *Batch {
	return &Batch{
		Attrs: attrs,
		Types: typs,
		Rows:  rows,
		Nulls: make([]*nulls.Nulls, len(attrs)),
		Ndv:   make([]*hll.Sketch, len(attrs)),
	}
}

// Build assembles an ingested batch from the pieces the encoder observed
// while serializing the payload: per-column encoded keys feed the distinct
// sketches, nullRows the null bitmaps. keys and nullRows may be nil when the
// producer tracked nothing; otherwise their length must match attrs.
func Build(ctx context.Context, attrs []string, typs []types.Type, rows int64,
	payload []byte, keys [][][]byte, nullRows [][]uint64) (*Batch, error) {
	if len(attrs) != len(typs) {
		return nil, moerr.NewInvalidInput(ctx, "batch has %d attrs but %d types", len(attrs), len(typs))
	}
	if keys != nil && len(keys) != len(attrs) {
		return nil, moerr.NewInvalidInput(ctx, "batch has %d attrs but keys for %d columns", len(attrs), len(keys))
	}
	if nullRows != nil && len(nullRows) != len(attrs) {
		return nil, moerr.NewInvalidInput(ctx, "batch has %d attrs but null rows for %d columns", len(attrs), len(nullRows))
	}
	b := New(attrs, typs, rows)
	b.Payload = payload
	for col := range keys {
		for _, key := range keys[col] {
			b.InsertKey(col, key)
		}
	}
	for col := range nullRows {
		if len(nullRows[col]) > 0 {
			b.AddNulls(col, nullRows[col]...)
		}
	}
	return b, nil
}

func (b *Batch) VectorCount() int {
	return len(b.Attrs)
}

// AddNulls marks rows of column col null.
func (b *Batch) AddNulls(col int, rows ...uint64) {
	if b.Nulls[col] == nil {
		b.Nulls[col] = nulls.New()
	}
	nulls.Add(b.Nulls[col], rows...)
}

func (b *Batch) NullCount(col int) uint64 {
	return nulls.Size(b.Nulls[col])
}

// InsertKey feeds one encoded value of column col into its distinct sketch.
func (b *Batch) InsertKey(col int, key []byte) {
	if b.Ndv[col] == nil {
		b.Ndv[col] = hll.New()
	}
	b.Ndv[col].Insert(key)
}

// ApproxNdv estimates the distinct value count of column col. Returns 0 when
// ingestion supplied no sketch.
func (b *Batch) ApproxNdv(col int) uint64 {
	if b.Ndv[col] == nil {
		return 0
	}
	return b.Ndv[col].Estimate()
}

// Fingerprint hashes the batch identity: payload plus schema plus row count.
// Used by the node layer for structural hashing.
func (b *Batch) Fingerprint() uint64 {
	h := fnv.New64a()
	h.Write(b.Payload)
	for i, attr := range b.Attrs {
		io.WriteString(h, attr)
		io.WriteString(h, b.Types[i].String())
	}
	var buf [8]byte
	rows := uint64(b.Rows)
	for i := 0; i < 8; i++ {
		buf[i] = byte(rows >> (8 * i))
	}
	h.Write(buf[:])
	return h.Sum64()
}

// CompressPayload returns the lz4-compressed payload bytes.
func (b *Batch) CompressPayload(ctx context.Context) ([]byte, error) {
	var out bytes.Buffer
	zw := lz4.NewWriter(&out)
	if _, err := zw.Write(b.Payload); err != nil {
		return nil, moerr.NewInternalError(ctx, "compress batch payload: %v", err)
	}
	if err := zw.Close(); err != nil {
		return nil, moerr.NewInternalError(ctx, "compress batch payload: %v", err)
	}
	return out.Bytes(), nil
}

// DecompressPayload inverts CompressPayload.
func DecompressPayload(ctx context.Context, data []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, moerr.NewInternalError(ctx, "decompress batch payload: %v", err)
	}
	return out, nil
}

func writeChunk(buf *bytes.Buffer, data []byte) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(data)))
	buf.Write(n[:])
	buf.Write(data)
}

func readChunk(ctx context.Context, r *bytes.Reader) ([]byte, error) {
	var n [4]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return nil, moerr.NewInvalidInput(ctx, "truncated batch frame")
	}
	data := make([]byte, binary.LittleEndian.Uint32(n[:]))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, moerr.NewInvalidInput(ctx, "truncated batch frame")
	}
	return data, nil
}

// Encode renders the batch in its transfer form: row count, schema, null
// bitmaps, distinct sketches, then the lz4-compressed payload. Decode inverts
// it. This is the frame a batch crosses the session boundary in.
func (b *Batch) Encode(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	var hdr [12]byte
	binary.LittleEndian.PutUint64(hdr[:8], uint64(b.Rows))
	binary.LittleEndian.PutUint32(hdr[8:], uint32(len(b.Attrs)))
	buf.Write(hdr[:])

	var typ [10]byte
	for i, attr := range b.Attrs {
		writeChunk(&buf, []byte(attr))
		t := b.Types[i]
		typ[0] = byte(t.Oid)
		typ[1] = byte(t.Elem)
		binary.LittleEndian.PutUint32(typ[2:6], uint32(t.Width))
		binary.LittleEndian.PutUint32(typ[6:10], uint32(t.Scale))
		buf.Write(typ[:])
	}
	for i := range b.Attrs {
		if !nulls.Any(b.Nulls[i]) {
			writeChunk(&buf, nil)
			continue
		}
		data, err := b.Nulls[i].Np.MarshalBinary()
		if err != nil {
			return nil, moerr.NewInternalError(ctx, "encode batch nulls: %v", err)
		}
		writeChunk(&buf, data)
	}
	for i := range b.Attrs {
		if b.Ndv[i] == nil {
			writeChunk(&buf, nil)
			continue
		}
		data, err := b.Ndv[i].MarshalBinary()
		if err != nil {
			return nil, moerr.NewInternalError(ctx, "encode batch sketch: %v", err)
		}
		writeChunk(&buf, data)
	}
	compressed, err := b.CompressPayload(ctx)
	if err != nil {
		return nil, err
	}
	writeChunk(&buf, compressed)
	return buf.Bytes(), nil
}

// Decode parses the transfer form produced by Encode.
func Decode(ctx context.Context, data []byte) (*Batch, error) {
	r := bytes.NewReader(data)
	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, moerr.NewInvalidInput(ctx, "truncated batch frame")
	}
	rows := int64(binary.LittleEndian.Uint64(hdr[:8]))
	ncols := int(binary.LittleEndian.Uint32(hdr[8:]))

	attrs := make([]string, ncols)
	typs := make([]types.Type, ncols)
	for i := 0; i < ncols; i++ {
		attr, err := readChunk(ctx, r)
		if err != nil {
			return nil, err
		}
		attrs[i] = string(attr)
		var typ [10]byte
		if _, err := io.ReadFull(r, typ[:]); err != nil {
			return nil, moerr.NewInvalidInput(ctx, "truncated batch frame")
		}
		typs[i] = types.Type{
			Oid:   types.T(typ[0]),
			Elem:  types.T(typ[1]),
			Width: int32(binary.LittleEndian.Uint32(typ[2:6])),
			Scale: int32(binary.LittleEndian.Uint32(typ[6:10])),
		}
	}
	b := New(attrs, typs, rows)
	for i := 0; i < ncols; i++ {
		chunk, err := readChunk(ctx, r)
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			continue
		}
		b.Nulls[i] = nulls.New()
		if err := b.Nulls[i].Np.UnmarshalBinary(chunk); err != nil {
			return nil, moerr.NewInvalidInput(ctx, "decode batch nulls: %v", err)
		}
	}
	for i := 0; i < ncols; i++ {
		chunk, err := readChunk(ctx, r)
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			continue
		}
		b.Ndv[i] = hll.New()
		if err := b.Ndv[i].UnmarshalBinary(chunk); err != nil {
			return nil, moerr.NewInvalidInput(ctx, "decode batch sketch: %v", err)
		}
	}
	compressed, err := readChunk(ctx, r)
	if err != nil {
		return nil, err
	}
	if b.Payload, err = DecompressPayload(ctx, compressed); err != nil {
		return nil, err
	}
	return b, nil
}
