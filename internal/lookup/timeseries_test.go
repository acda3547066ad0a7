package lookup

import (
	"math"
	"testing"
	"time"

	"solana-price-tracker/internal/domain"
)

var base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func at(sec float64) time.Time {
	return base.Add(time.Duration(sec * float64(time.Second)))
}

func series() []domain.PricePoint {
	return []domain.PricePoint{
		{Time: at(0), Price: 1.0},
		{Time: at(10), Price: 2.0},
		{Time: at(20), Price: 4.0},
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestInterpolate_EmptySlice(t *testing.T) {
	_, err := Interpolate(base, nil)
	if err != ErrNoPriceData {
		t.Errorf("expected ErrNoPriceData, got %v", err)
	}

	_, err = Interpolate(base, []domain.PricePoint{})
	if err != ErrNoPriceData {
		t.Errorf("expected ErrNoPriceData, got %v", err)
	}
}

func TestInterpolate_BeforeFirst(t *testing.T) {
	price, err := Interpolate(at(-5), series())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 1.0 {
		t.Errorf("expected 1.0, got %f", price)
	}
}

func TestInterpolate_AtFirst(t *testing.T) {
	price, err := Interpolate(at(0), series())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 1.0 {
		t.Errorf("expected 1.0, got %f", price)
	}
}

func TestInterpolate_AfterLast(t *testing.T) {
	price, err := Interpolate(at(100), series())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 4.0 {
		t.Errorf("expected 4.0, got %f", price)
	}
}

func TestInterpolate_Midpoint(t *testing.T) {
	price, err := Interpolate(at(5), series())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approx(price, 1.5) {
		t.Errorf("expected 1.5, got %f", price)
	}

	price, err = Interpolate(at(17.5), series())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approx(price, 3.5) {
		t.Errorf("expected 3.5, got %f", price)
	}
}

func TestInterpolate_ExactInteriorMatch(t *testing.T) {
	// Prices chosen so that prev + 1.0*(next-prev) does not round back to next.
	points := []domain.PricePoint{
		{Time: at(0), Price: 0.7},
		{Time: at(3), Price: 0.1},
		{Time: at(7), Price: 0.2},
	}

	for _, p := range points {
		price, err := Interpolate(p.Time, points)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if price != p.Price {
			t.Errorf("at %s: expected exactly %v, got %v", p.Time.Format(time.RFC3339), p.Price, price)
		}
	}
}

func TestInterpolate_DuplicateTimestamps(t *testing.T) {
	points := []domain.PricePoint{
		{Time: at(0), Price: 1.0},
		{Time: at(10), Price: 2.0},
		{Time: at(10), Price: 3.0},
		{Time: at(20), Price: 5.0},
	}

	// Bracketing pair is (10, 3.0) and (20, 5.0).
	price, err := Interpolate(at(15), points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approx(price, 4.0) {
		t.Errorf("expected 4.0, got %f", price)
	}
}

func TestInterpolate_SinglePoint(t *testing.T) {
	points := []domain.PricePoint{{Time: at(0), Price: 7.0}}

	for _, sec := range []float64{-1, 0, 1} {
		price, err := Interpolate(at(sec), points)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if price != 7.0 {
			t.Errorf("target %v: expected 7.0, got %f", sec, price)
		}
	}
}

func TestInterpolate_WithinBounds(t *testing.T) {
	points := series()
	for sec := -5.0; sec <= 25; sec += 0.25 {
		price, err := Interpolate(at(sec), points)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if price < 1.0 || price > 4.0 {
			t.Errorf("target %v: price %f outside [1, 4]", sec, price)
		}
	}
}
