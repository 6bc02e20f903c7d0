/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package wallet

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/sha3"
)

var ErrInvalidAddress = errors.New("not a 20 byte hex address")

// Normalize validates a hex account address and returns its EIP-55 checksummed form
func Normalize(address string) (string, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X")
	if len(raw) != 40 {
		return "", ErrInvalidAddress
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return "", ErrInvalidAddress
	}
	return checksum(strings.ToLower(raw)), nil
}

// checksum uppercases every letter whose matching nibble of keccak256(lowercase address) is 8 or more
func checksum(lower string) string {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(lower))
	digest := hasher.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out)
}

// IsChecksummed reports whether address already carries a valid EIP-55 checksum
func IsChecksummed(address string) bool {
	normalized, err := Normalize(address)
	return err == nil && normalized == address
}

// Same reports whether two addresses name the same account, ignoring case
func Same(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(strings.TrimPrefix(strings.ToLower(a), "0x"), strings.TrimPrefix(strings.ToLower(b), "0x"))
}

// Short renders an address as 0x1234...abcd
func Short(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
