package domain

import (
	"fmt"
	"strconv"
	"time"
)

const (
	barcodePrefixLen  = 6
	barcodeCounterLen = 5
	MaxBarcodeCounter = 99999
)

// BarcodePrefix is the DDMMYY prefix of identifiers generated on t's calendar day.
func BarcodePrefix(t time.Time) string {
	return t.Format("020106")
}

func FormatBarcode(prefix string, counter int) (string, error) {
	if len(prefix) != barcodePrefixLen {
		return "", fmt.Errorf("%w: bad prefix %q", ErrGenerationFailed, prefix)
	}
	if counter < 1 || counter > MaxBarcodeCounter {
		return "", fmt.Errorf("%w: counter %d out of range", ErrGenerationFailed, counter)
	}
	return fmt.Sprintf("%s%0*d", prefix, barcodeCounterLen, counter), nil
}

// BarcodeCounter extracts the numeric suffix of a generated identifier.
func BarcodeCounter(barcode string) (int, error) {
	if len(barcode) != barcodePrefixLen+barcodeCounterLen {
		return 0, fmt.Errorf("%w: malformed barcode %q", ErrGenerationFailed, barcode)
	}
	n, err := strconv.Atoi(barcode[barcodePrefixLen:])
	if err != nil {
		return 0, fmt.Errorf("%w: malformed barcode %q", ErrGenerationFailed, barcode)
	}
	return n, nil
}
