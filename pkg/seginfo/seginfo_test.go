package seginfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNameParseSegmentIDRoundTrip(t *testing.T) {
	name := GenerateName(42, "idx")
	id, err := ParseSegmentID(name, "idx")

	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
}

func TestParseSegmentIDRejectsWrongPrefix(t *testing.T) {
	name := GenerateName(1, "idx")
	_, err := ParseSegmentID(name, "val")
	assert.Error(t, err)
}

func TestParseSegmentIDRejectsMalformedName(t *testing.T) {
	_, err := ParseSegmentID("idx_notanid_123.seg", "idx")
	assert.Error(t, err)
}

func TestGenerateNameHandlesEmptyPrefix(t *testing.T) {
	name := GenerateName(1, "")
	assert.Contains(t, name, "INVALID_PREFIX")
}
