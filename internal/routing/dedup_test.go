package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/contact-center/internal/domain"
)

func TestAlreadyProcessed(t *testing.T) {
	lk := newFakeLookup()
	lk.addMessage("t1", "seen@city.gov", domain.MessageTypeCitizen)
	d := NewDeduplicator(lk)

	seen, err := d.AlreadyProcessed(context.Background(), "<seen@city.gov>")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = d.AlreadyProcessed(context.Background(), "new@city.gov")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = d.AlreadyProcessed(context.Background(), "  ")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestAlreadyProcessedSurfacesErrors(t *testing.T) {
	lk := newFakeLookup()
	lk.err = errLookupDown
	_, err := NewDeduplicator(lk).AlreadyProcessed(context.Background(), "x")
	assert.ErrorIs(t, err, errLookupDown)
}

func TestNormalizeHeaderID(t *testing.T) {
	assert.Equal(t, "abc@host", NormalizeHeaderID(" <abc@host> "))
	assert.Equal(t, "abc@host", NormalizeHeaderID(`"abc@host"`))
	assert.Equal(t, "", NormalizeHeaderID("<>"))
}
