/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package wallet

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

// Vectors published with EIP-55
var checksummed = []string{
	"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
	"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
	"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
}

func TestNormalizeProducesChecksum(t *testing.T) {
	for _, expected := range checksummed {
		for _, input := range []string{expected, "0x" + lower(expected[2:]), upper(expected[2:])} {
			got, err := Normalize(input)
			if err != nil {
				t.Fatalf("Unexpected error for %s: %v", input, err)
			}
			if got != expected {
				t.Errorf("Wrong checksum. GOT[%s], EXPECTED[%s]", got, expected)
			}
		}
		assert.Equal(t, IsChecksummed(expected), true)
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "0x", "0xABC", "0xZZAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed00"} {
		if _, err := Normalize(input); err != ErrInvalidAddress {
			t.Errorf("Expected ErrInvalidAddress for %q, GOT[%v]", input, err)
		}
	}
	assert.Equal(t, IsChecksummed("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"), false)
}

func TestSame(t *testing.T) {
	assert.Equal(t, Same("0xABC", "0xabc"), true)
	assert.Equal(t, Same("0xabc", "abc"), true)
	assert.Equal(t, Same("0xabc", "0xabd"), false)
	assert.Equal(t, Same("", ""), false)
}

func TestShort(t *testing.T) {
	assert.Equal(t, Short("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"), "0x5aAe...eAed")
	assert.Equal(t, Short("0xABC"), "0xABC")
}

func lower(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'A' && c <= 'F' {
			out[i] = c - 'A' + 'a'
		}
	}
	return string(out)
}

func upper(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'a' && c <= 'f' {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out)
}
