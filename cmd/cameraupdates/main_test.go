package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CameraUpdates/internal/domain"
	"CameraUpdates/internal/ports"
)

func TestParseFlags(t *testing.T) {
	t.Parallel()

	opts, err := parseFlags([]string{"-list", "-brand", "Nikon", "-type", "lens", "-q", "50mm", "-sort", "priority", "-limit", "5"})
	require.NoError(t, err)
	assert.True(t, opts.list)
	assert.Equal(t, ports.UpdateFilter{
		Brand:  "Nikon",
		Type:   domain.TypeLens,
		Search: "50mm",
		SortBy: ports.SortByPriority,
		Limit:  5,
	}, opts.filter())

	_, err = parseFlags([]string{"-type", "tripod"})
	assert.Error(t, err)

	_, err = parseFlags([]string{"-sort", "random"})
	assert.Error(t, err)
}

func TestPrintUpdates(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printUpdates(&buf, nil)
	assert.Equal(t, "no stored updates\n", buf.String())

	buf.Reset()
	printUpdates(&buf, []domain.CameraUpdate{{
		Brand:       "Canon",
		Type:        domain.TypeFirmware,
		Title:       "Canon EOS R5 Firmware Update",
		Version:     "1.2.0",
		Date:        time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Priority:    domain.PriorityHigh,
		Description: "Improves autofocus tracking.",
	}})
	out := buf.String()
	assert.Contains(t, out, "2025-03-14")
	assert.Contains(t, out, "Canon EOS R5 Firmware Update v1.2.0")
	assert.Contains(t, out, "    Improves autofocus tracking.")
}
