// Package phone normalises South African cellphone numbers.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const region = "ZA"

var ErrInvalid = errors.New("cellphone number must look like 0XXXXXXXXX or 27XXXXXXXXX")

// Normalize accepts a local (0821234567) or international (27821234567,
// +27 82 123 4567) cellphone number and returns it as 27XXXXXXXXX. Spaces,
// dashes and brackets are ignored. Landlines are rejected.
func Normalize(s string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '(', r == ')':
		case r == '+' && i == 0:
			b.WriteRune(r)
		default:
			return "", ErrInvalid
		}
	}
	if b.Len() == 0 {
		return "", ErrInvalid
	}

	num, err := phonenumbers.Parse(b.String(), region)
	if err != nil || !phonenumbers.IsValidNumberForRegion(num, region) {
		return "", ErrInvalid
	}
	switch phonenumbers.GetNumberType(num) {
	case phonenumbers.MOBILE, phonenumbers.FIXED_LINE_OR_MOBILE:
	default:
		return "", ErrInvalid
	}

	return strings.TrimPrefix(phonenumbers.Format(num, phonenumbers.E164), "+"), nil
}
