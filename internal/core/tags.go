package core

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	TagTransfer    = "transfer"
	TagDPSTransfer = "dps_transfer"
	TagPurchase    = "purchase"

	transferIDPrefix = "transfer:"
)

// TransferTags returns the tag set shared by both legs of a transfer.
func TransferTags(marker string, transferID uuid.UUID) []string {
	return []string{marker, transferIDPrefix + transferID.String()}
}

// IsTransferTags reports whether tags contain any transfer marker.
func IsTransferTags(tags []string) bool {
	for _, t := range tags {
		if t == TagTransfer || t == TagDPSTransfer || strings.HasPrefix(t, transferIDPrefix) {
			return true
		}
	}
	return false
}

// TransferIDFromTags extracts the correlation id embedded in transfer tags.
func TransferIDFromTags(tags []string) (uuid.UUID, bool) {
	for _, t := range tags {
		if rest, ok := strings.CutPrefix(t, transferIDPrefix); ok {
			id, err := uuid.Parse(rest)
			if err == nil {
				return id, true
			}
		}
	}
	return uuid.Nil, false
}

const refAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewTransactionRef generates a human readable id like TX-20250114-K3M9QZ.
func NewTransactionRef(at time.Time) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		copy(buf, uuid.New().String())
	}
	for i, b := range buf {
		buf[i] = refAlphabet[int(b)%len(refAlphabet)]
	}
	return "TX-" + at.UTC().Format("20060102") + "-" + string(buf)
}
