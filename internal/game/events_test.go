package game

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMarketEventTypeValid(t *testing.T) {
	for _, et := range []MarketEventType{
		EventShortage, EventSurplus, EventDisaster, EventFestival,
		EventWar, EventDiscovery, EventEmbargo, EventTaxChange,
	} {
		if !et.Valid() {
			t.Fatalf("%q should be valid", et)
		}
	}
	if MarketEventType("plague").Valid() {
		t.Fatalf("unknown type should not be valid")
	}
}

func TestCreateMarketEventInputValidate(t *testing.T) {
	good := CreateMarketEventInput{
		EventType:     EventShortage,
		Severity:      3,
		Duration:      12 * time.Hour,
		PriceModifier: decimal.RequireFromString("1.4"),
	}
	if err := good.validate(); err != nil {
		t.Fatalf("expected valid input: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*CreateMarketEventInput)
	}{
		{name: "unknown type", mutate: func(in *CreateMarketEventInput) { in.EventType = "plague" }},
		{name: "severity too low", mutate: func(in *CreateMarketEventInput) { in.Severity = 0 }},
		{name: "severity too high", mutate: func(in *CreateMarketEventInput) { in.Severity = 6 }},
		{name: "zero modifier", mutate: func(in *CreateMarketEventInput) { in.PriceModifier = decimal.Zero }},
		{name: "negative duration", mutate: func(in *CreateMarketEventInput) { in.Duration = -time.Hour }},
	}
	for _, tc := range tests {
		in := good
		tc.mutate(&in)
		if err := in.validate(); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: got %v want ErrInvalidInput", tc.name, err)
		}
	}
}
