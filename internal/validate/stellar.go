package validate

import (
	"encoding/base32"
	"errors"
)

const (
	// Length of encoded Stellar account id (G...)
	StellarKeyLength = 56

	versionAccountID = 6 << 3
)

var (
	errKeyLength   = errors.New("key must be 56 characters long")
	errKeyEncoding = errors.New("key is not valid base32")
	errKeyVersion  = errors.New("key is not an account public key")
	errKeyChecksum = errors.New("key checksum mismatch")
)

// StellarPublicKey checks account public key: version byte, ed25519 key and CRC16 checksum
func StellarPublicKey(key string) error {
	if len(key) != StellarKeyLength {
		return errKeyLength
	}

	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(key)
	if err != nil {
		return errKeyEncoding
	}

	// version(1) + ed25519 key(32) + crc16(2)
	if len(raw) != 35 {
		return errKeyLength
	}
	if raw[0] != versionAccountID {
		return errKeyVersion
	}

	payload, sum := raw[:33], raw[33:]
	crc := crc16XModem(payload)
	if sum[0] != byte(crc) || sum[1] != byte(crc>>8) {
		return errKeyChecksum
	}

	return nil
}

func crc16XModem(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
