package common

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

//EncodeToString returns the lowercase hex representation of b with the 0x
//prefix
func EncodeToString(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

//DecodeFromString converts a hex string, with or without the 0x prefix, to a
//byte slice
func DecodeFromString(s string) ([]byte, error) {
	return hex.DecodeString(trimHexPrefix(s))
}

//EncodeQuantity returns the 0x-prefixed hex form of n without leading zeros
func EncodeQuantity(n uint64) string {
	return "0x" + strconv.FormatUint(n, 16)
}

//DecodeQuantity parses a 0x-prefixed hex quantity
func DecodeQuantity(s string) (uint64, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return 0, fmt.Errorf("quantity %q: missing 0x prefix", s)
	}
	return strconv.ParseUint(s[2:], 16, 64)
}

func trimHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}
