// Command gensecret prints random key to seal the stored session with.
//
//	fuowallet --storage-key "$(gensecret)" signin
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/nkiryanov/fuowallet/internal/storage/sealed"
)

func main() {
	b := make([]byte, sealed.KeySize)

	_, err := rand.Read(b)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error while generating storage key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hex.EncodeToString(b))
}
