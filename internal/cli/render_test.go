package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"cabconnect/internal/client/domain"
)

func TestPrintQuote(t *testing.T) {
	var buf bytes.Buffer
	printQuote(&buf, domain.Quote{
		Pickup: "Downtown", Destination: "Airport",
		DistanceKm: 12, Fare: 194, EstimatedMinutes: 24,
	}, []domain.Driver{{Username: "dave"}})

	assert.Equal(t, "Route:     Downtown → Airport\n"+
		"Distance:  12 km\n"+
		"Fare:      194.00\n"+
		"Duration:  ~24 min\n"+
		"Cabs near pickup: 1\n", buf.String())
}
