package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "0821234567", want: "27821234567"},
		{in: "27821234567", want: "27821234567"},
		{in: "+27 82 123 4567", want: "27821234567"},
		{in: "(082) 123-4567", want: "27821234567"},
		{in: "082123456", wantErr: true},
		{in: "0021234567", wantErr: true},
		{in: "44821234567", wantErr: true},
		{in: "08212345x7", wantErr: true},
		{in: "0+821234567", wantErr: true},
		{in: "0111234567", wantErr: true},
		{in: "+44 7911 123456", wantErr: true},
		{in: "072 555 0199", want: "27725550199"},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalid, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
