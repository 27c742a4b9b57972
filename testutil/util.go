// Package testutil contains the common test utilities.
package testutil

import (
	"math/big"
	"net"
	"strconv"
	"testing"
)

// Gwei converts a gwei amount to wei, truncating below 1 wei.
func Gwei(g float64) *big.Int {
	wei, _ := new(big.Float).Mul(big.NewFloat(g), big.NewFloat(1e9)).Int(nil)
	return wei
}

// FreePort returns a TCP port on localhost that was free at the time of the
// call.
func FreePort(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return strconv.Itoa(l.Addr().(*net.TCPAddr).Port)
}
