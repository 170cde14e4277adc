package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatValueFactorScalesBySIPrefix(t *testing.T) {
	assert.Equal(t, "2.700 kg/s", FormatValueFactor(2.7, "kg/s"))
	assert.Equal(t, "2.100 mkg/s", FormatValueFactor(0.0021, "kg/s"))
	assert.Equal(t, "-167.000 mkg/s", FormatValueFactor(-0.167, "kg/s"))
}

func TestFormatValueFactorHandlesVerySmallMagnitudes(t *testing.T) {
	assert.Equal(t, "1.000e-15 kPa", FormatValueFactor(1e-15, "kPa"))
}
