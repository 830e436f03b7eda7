// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"encoding/json"
	"fmt"

	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/tubescribe/core"
)

// MarshalVectors encodes vectors as a dimension, a count and then every
// component in order.
func MarshalVectors(dim int, vectors [][]float32) []byte {
	size := varint.PositiveInt.Size(dim) + varint.PositiveInt.Size(len(vectors))
	for _, v := range vectors {
		for _, f := range v {
			size += raw.Float32.Size(f)
		}
	}

	buf := make([]byte, size)
	n := varint.PositiveInt.Marshal(dim, buf)
	n += varint.PositiveInt.Marshal(len(vectors), buf[n:])
	for _, v := range vectors {
		for _, f := range v {
			n += raw.Float32.Marshal(f, buf[n:])
		}
	}
	return buf
}

// UnmarshalVectors decodes data produced by MarshalVectors.
func UnmarshalVectors(data []byte) (int, [][]float32, error) {
	dim, n, err := varint.PositiveInt.Unmarshal(data)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: dimension: %v", ErrSerializationFailed, err)
	}
	count, m, err := varint.PositiveInt.Unmarshal(data[n:])
	if err != nil {
		return 0, nil, fmt.Errorf("%w: count: %v", ErrSerializationFailed, err)
	}
	n += m
	if dim < 0 || count < 0 {
		return 0, nil, fmt.Errorf("%w: negative header", ErrSerializationFailed)
	}
	if count > 0 && dim == 0 {
		return 0, nil, fmt.Errorf("%w: %d vectors without a dimension", ErrSerializationFailed, count)
	}
	if count > 0 && count > (len(data)-n)/4/dim {
		return 0, nil, fmt.Errorf("%w: want %d vectors of %d, have %d bytes", ErrTruncatedData, count, dim, len(data)-n)
	}

	vectors := make([][]float32, count)
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			f, m, err := raw.Float32.Unmarshal(data[n:])
			if err != nil {
				return 0, nil, fmt.Errorf("%w: vector %d: %v", ErrTruncatedData, i, err)
			}
			v[j] = f
			n += m
		}
		vectors[i] = v
	}
	return dim, vectors, nil
}

// MarshalChunks encodes the chunk list as JSON.
func MarshalChunks(chunks []core.Chunk) ([]byte, error) {
	if chunks == nil {
		chunks = []core.Chunk{}
	}
	data, err := json.Marshal(chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalChunks decodes data produced by MarshalChunks.
func UnmarshalChunks(data []byte) ([]core.Chunk, error) {
	var chunks []core.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return chunks, nil
}

// EncodeSnapshot returns the vector blob and chunk metadata for s.
func EncodeSnapshot(s *Snapshot) ([]byte, []byte, error) {
	meta, err := MarshalChunks(s.Chunks)
	if err != nil {
		return nil, nil, err
	}
	return MarshalVectors(s.Dimension, s.Vectors), meta, nil
}

// DecodeSnapshot rebuilds a snapshot from its vector blob and chunk metadata.
// Halves that disagree on the number of entries fail with ErrSerializationFailed.
func DecodeSnapshot(vectorData, metaData []byte) (*Snapshot, error) {
	dim, vectors, err := UnmarshalVectors(vectorData)
	if err != nil {
		return nil, err
	}
	chunks, err := UnmarshalChunks(metaData)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: %d vectors, %d chunks", ErrSerializationFailed, len(vectors), len(chunks))
	}
	return &Snapshot{Dimension: dim, Vectors: vectors, Chunks: chunks}, nil
}
