package object

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Encode compresses data with zstd for on-disk storage.
func Encode(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

// Decode decompresses a stored object payload. A malformed or truncated
// stream fails with ErrCorruptObject; partial output is never returned.
func Decode(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", ErrCorruptObject, err)
	}
	return out, nil
}
