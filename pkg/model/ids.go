package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewDocumentID generates a new unique document ID: <unix_ms>-<rand8hex>
func NewDocumentID() DocumentID {
	return DocumentID(newTimeOrderedID())
}

// NewPackageID generates a new unique package ID: <unix_ms>-<rand8hex>
func NewPackageID() PackageID {
	return PackageID(newTimeOrderedID())
}

func newTimeOrderedID() string {
	ts := time.Now().UnixMilli()
	var randBytes [4]byte
	if _, err := rand.Read(randBytes[:]); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return fmt.Sprintf("%013d-%s", ts, hex.EncodeToString(randBytes[:]))
}
