package utils

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/gosimple/slug"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	referenceAlphabet  = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	slugSuffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// GenerateBookingReference returns a short, unambiguous code like "WT-7K3M9Q2A".
func GenerateBookingReference() string {
	id, err := gonanoid.Generate(referenceAlphabet, 8)
	if err != nil {
		return ""
	}
	return "WT-" + id
}

// GenerateVendorSlug turns a display name into a public handle, e.g. "domaine-des-trois-chenes-x7k2p".
func GenerateVendorSlug(name string) string {
	base := slug.Make(name)
	if base == "" {
		base = "vendor"
	}
	if len(base) > 48 {
		base = strings.TrimRight(base[:48], "-")
	}
	suffix, err := gonanoid.Generate(slugSuffixAlphabet, 5)
	if err != nil {
		return base
	}
	return base + "-" + suffix
}

// GenerateRandomString generates a cryptographically secure URL-safe string
func GenerateRandomString(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		id, _ := gonanoid.Generate("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz", length)
		return id
	}
	return strings.TrimRight(base64.URLEncoding.EncodeToString(bytes), "=")[:length]
}
