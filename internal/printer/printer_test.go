package printer

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestPrinter(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var out, errOut bytes.Buffer
	p := NewWithWriters(&out, &errOut)

	p.Success("loaded %d events", 2)
	p.Warning("record %d rejected", 1)
	p.Info("plain")

	assert.Equal(t, "✓ loaded 2 events\n! record 1 rejected\nplain\n", out.String())

	err := p.Error("Catalog invalid", "2 records failed validation")
	assert.EqualError(t, err, "Catalog invalid")
	assert.Contains(t, errOut.String(), "Catalog invalid")
	assert.Contains(t, errOut.String(), "2 records failed validation")
}
