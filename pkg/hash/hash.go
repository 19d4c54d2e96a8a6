// Copyright 2016 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package hash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

type Sig [sha256.Size]byte

func Hash(pieces ...[]byte) Sig {
	h := sha256.New()
	for _, data := range pieces {
		h.Write(data)
	}
	var sig Sig
	copy(sig[:], h.Sum(nil))
	return sig
}

// List hashes an ordered list of strings.
// Every element is length-prefixed, so ["ab"] and ["a", "b"] get different sigs,
// and so do permutations of the same elements.
func List(elems []string) Sig {
	h := sha256.New()
	var size [binary.MaxVarintLen64]byte
	for _, elem := range elems {
		n := binary.PutUvarint(size[:], uint64(len(elem)))
		h.Write(size[:n])
		h.Write([]byte(elem))
	}
	var sig Sig
	copy(sig[:], h.Sum(nil))
	return sig
}

func (sig Sig) String() string {
	return hex.EncodeToString(sig[:])
}

// Short returns the first 16 hex chars, enough to name scratch files.
func (sig Sig) Short() string {
	return sig.String()[:16]
}

func (sig Sig) IsZero() bool {
	return sig == Sig{}
}

func FromString(str string) (Sig, error) {
	bin, err := hex.DecodeString(str)
	if err != nil {
		return Sig{}, fmt.Errorf("failed to decode sig '%v': %w", str, err)
	}
	if len(bin) != len(Sig{}) {
		return Sig{}, fmt.Errorf("failed to decode sig '%v': bad len", str)
	}
	var sig Sig
	copy(sig[:], bin)
	return sig, nil
}
