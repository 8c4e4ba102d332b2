package record

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-car"
	carutil "github.com/ipld/go-car/util"
	"github.com/multiformats/go-multihash"
)

var ErrRootNotFound = errors.New("root block not found in archive")

var blockPrefix = cid.Prefix{
	Version:  1,
	Codec:    cid.DagCBOR,
	MhType:   multihash.SHA2_256,
	MhLength: -1,
}

// CID returns the content identifier of the encoded record.
func (r Record) CID() (cid.Cid, error) {
	data, err := r.Encode()
	if err != nil {
		return cid.Undef, err
	}
	return blockPrefix.Sum(data)
}

// WriteCAR writes the record as a single-root CARv1 archive and returns the
// root CID.
func WriteCAR(w io.Writer, r Record) (cid.Cid, error) {
	data, err := r.Encode()
	if err != nil {
		return cid.Undef, err
	}

	root, err := blockPrefix.Sum(data)
	if err != nil {
		return cid.Undef, fmt.Errorf("failed to hash record: %w", err)
	}

	header := &car.CarHeader{Roots: []cid.Cid{root}, Version: 1}
	if err := car.WriteHeader(header, w); err != nil {
		return cid.Undef, fmt.Errorf("failed to write CAR header: %w", err)
	}
	if err := carutil.LdWrite(w, root.Bytes(), data); err != nil {
		return cid.Undef, fmt.Errorf("failed to write CAR block: %w", err)
	}
	return root, nil
}

// ReadCAR reads an archive produced by WriteCAR. The root block must be
// present and its bytes must hash to the root CID.
func ReadCAR(rd io.Reader) (Record, cid.Cid, error) {
	reader, err := car.NewCarReader(rd)
	if err != nil {
		return Record{}, cid.Undef, fmt.Errorf("failed to create CAR reader: %w", err)
	}
	if len(reader.Header.Roots) != 1 {
		return Record{}, cid.Undef, fmt.Errorf("%w: expected 1 root, got %d", ErrMalformedRecord, len(reader.Header.Roots))
	}
	root := reader.Header.Roots[0]

	for {
		block, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Record{}, cid.Undef, fmt.Errorf("failed to read block: %w", err)
		}
		if !block.Cid().Equals(root) {
			continue
		}

		sum, err := root.Prefix().Sum(block.RawData())
		if err != nil {
			return Record{}, cid.Undef, fmt.Errorf("failed to hash block: %w", err)
		}
		if !sum.Equals(root) {
			return Record{}, cid.Undef, fmt.Errorf("%w: root block hash mismatch", ErrMalformedRecord)
		}

		r, err := Decode(block.RawData())
		if err != nil {
			return Record{}, cid.Undef, err
		}
		return r, root, nil
	}

	return Record{}, cid.Undef, ErrRootNotFound
}

// MarshalCAR is WriteCAR into a byte slice.
func MarshalCAR(r Record) ([]byte, cid.Cid, error) {
	var buf bytes.Buffer
	root, err := WriteCAR(&buf, r)
	if err != nil {
		return nil, cid.Undef, err
	}
	return buf.Bytes(), root, nil
}
