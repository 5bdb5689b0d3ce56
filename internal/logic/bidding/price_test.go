package bidding

import (
	"math"
	"testing"
)

func TestUniformPriceGenerator_Range(t *testing.T) {
	gen := NewUniformPriceGenerator(1)

	for i := 0; i < 10000; i++ {
		price := gen.Price()
		if price < 0 || price > MaxBidAmount {
			t.Fatalf("price %f out of [0, %f]", price, MaxBidAmount)
		}
		// Two decimal places
		scaled := price * 100
		if math.Abs(scaled-math.Round(scaled)) > 1e-6 {
			t.Fatalf("price %f not rounded to two decimals", price)
		}
	}
}

func TestUniformPriceGenerator_Deterministic(t *testing.T) {
	a := NewUniformPriceGenerator(42)
	b := NewUniformPriceGenerator(42)

	for i := 0; i < 100; i++ {
		if pa, pb := a.Price(), b.Price(); pa != pb {
			t.Fatalf("same seed diverged at draw %d: %f vs %f", i, pa, pb)
		}
	}
}

func TestRoundHalfUp(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.0, 0.0},
		{1.004, 1.0},
		{1.006, 1.01},
		{3.14159, 3.14},
		{4.567, 4.57},
		{2.3449, 2.34},
		{9.999, 10.0},
	}
	for _, tc := range cases {
		if got := roundHalfUp(tc.in); got != tc.want {
			t.Errorf("roundHalfUp(%f) = %f, want %f", tc.in, got, tc.want)
		}
	}
}
