package invoices

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coopledger/coopledger/internal/shared"
)

// ErrSequenceExhausted is returned once a period already holds sequence 9999.
// It matches shared.ErrConflict.
var ErrSequenceExhausted = fmt.Errorf("invoices: monthly invoice sequence exhausted: %w", shared.ErrConflict)

const (
	numberPrefix   = "INV-"
	sequenceDigits = 4
	maxSequence    = 9999
)

// NumberPrefix returns INV-YYYYMM for the period.
func NumberPrefix(p shared.Period) string {
	return fmt.Sprintf("%s%04d%02d", numberPrefix, p.Year, int(p.Month))
}

// FormatNumber renders the invoice number for a sequence within the period.
func FormatNumber(p shared.Period, seq int) string {
	return fmt.Sprintf("%s%0*d", NumberPrefix(p), sequenceDigits, seq)
}

// ParseSequence extracts the running counter of an invoice number belonging
// to period p.
func ParseSequence(number string, p shared.Period) (int, error) {
	prefix := NumberPrefix(p)
	if !strings.HasPrefix(number, prefix) {
		return 0, fmt.Errorf("invoices: %q is not in period %s", number, p)
	}
	suffix := number[len(prefix):]
	if len(suffix) != sequenceDigits {
		return 0, fmt.Errorf("invoices: %q has a malformed sequence", number)
	}
	seq, err := strconv.Atoi(suffix)
	if err != nil || seq <= 0 {
		return 0, fmt.Errorf("invoices: %q has a malformed sequence", number)
	}
	return seq, nil
}

// NextNumber derives the number following latest, the highest number issued
// for p so far. An empty latest starts the period at 0001.
func NextNumber(latest string, p shared.Period) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	seq := 0
	if latest != "" {
		parsed, err := ParseSequence(latest, p)
		if err != nil {
			return "", shared.Consistency("invoices: numbering", "latest number unusable: %v", err)
		}
		seq = parsed
	}
	if seq >= maxSequence {
		return "", fmt.Errorf("%w for %s", ErrSequenceExhausted, p)
	}
	return FormatNumber(p, seq+1), nil
}
