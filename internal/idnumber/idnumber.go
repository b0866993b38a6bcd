// Package idnumber validates South African national identity numbers.
//
// Layout of the 13 digits:
//
//	YYMMDD SSSS C A Z
//	|      |    | | └ Luhn check digit over the first 12 digits
//	|      |    | └── historically race, now always 8 or 9 (not checked)
//	|      |    └──── 0 citizen, 1 permanent resident, 2 refugee
//	|      └───────── sequence: 0000-4999 female, 5000-9999 male
//	└──────────────── date of birth
package idnumber

import (
	"errors"
	"fmt"
	"time"
)

const Length = 13

var (
	ErrLength      = errors.New("ID number must be 13 digits")
	ErrNonDigit    = errors.New("ID number must contain only digits")
	ErrDate        = errors.New("ID number has an invalid date of birth")
	ErrCitizenship = errors.New("ID number has an invalid citizenship digit")
	ErrChecksum    = errors.New("ID number checksum is invalid")
)

const (
	GenderFemale = "female"
	GenderMale   = "male"
)

const (
	Citizen           = "citizen"
	PermanentResident = "permanent_resident"
	Refugee           = "refugee"
)

// Info is what can be read out of a valid ID number.
type Info struct {
	DateOfBirth time.Time
	Gender      string
	Citizenship string
}

// Age returns the completed years between the date of birth and now.
func (i Info) Age(now time.Time) int {
	years := now.Year() - i.DateOfBirth.Year()
	if now.Month() < i.DateOfBirth.Month() ||
		(now.Month() == i.DateOfBirth.Month() && now.Day() < i.DateOfBirth.Day()) {
		years--
	}
	return years
}

// Validate checks id and decodes it, using the current time to resolve the
// two-digit birth year.
func Validate(id string) (Info, error) {
	return ValidateAt(id, time.Now())
}

// ValidateAt is Validate with an explicit reference time. A two-digit year
// resolves to 20YY unless that date lies after now, in which case it is 19YY.
func ValidateAt(id string, now time.Time) (Info, error) {
	if len(id) != Length {
		return Info{}, fmt.Errorf("%w (got %d)", ErrLength, len(id))
	}

	digits := make([]int, Length)
	for i, r := range id {
		if r < '0' || r > '9' {
			return Info{}, ErrNonDigit
		}
		digits[i] = int(r - '0')
	}

	yy := digits[0]*10 + digits[1]
	mm := digits[2]*10 + digits[3]
	dd := digits[4]*10 + digits[5]

	dob, ok := birthDate(yy, mm, dd, now)
	if !ok {
		return Info{}, ErrDate
	}

	var citizenship string
	switch digits[10] {
	case 0:
		citizenship = Citizen
	case 1:
		citizenship = PermanentResident
	case 2:
		citizenship = Refugee
	default:
		return Info{}, ErrCitizenship
	}

	if CheckDigit(id[:12]) != digits[12] {
		return Info{}, ErrChecksum
	}

	seq := digits[6]*1000 + digits[7]*100 + digits[8]*10 + digits[9]
	gender := GenderMale
	if seq < 5000 {
		gender = GenderFemale
	}

	return Info{DateOfBirth: dob, Gender: gender, Citizenship: citizenship}, nil
}

func birthDate(yy, mm, dd int, now time.Time) (time.Time, bool) {
	if mm < 1 || mm > 12 || dd < 1 {
		return time.Time{}, false
	}

	year := 2000 + yy
	d := time.Date(year, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
	if d.After(now) {
		year = 1900 + yy
		d = time.Date(year, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
	}

	// time.Date normalises 31 February into March; reject that.
	if d.Month() != time.Month(mm) || d.Day() != dd {
		return time.Time{}, false
	}
	return d, true
}

// CheckDigit computes the Luhn check digit for a string of digits. It
// panics if digits contains anything other than '0'-'9'; callers validate
// first.
func CheckDigit(digits string) int {
	sum := 0
	double := true // the rightmost payload digit is doubled
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if d < 0 || d > 9 {
			panic("idnumber.CheckDigit: non-digit input")
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10
}
