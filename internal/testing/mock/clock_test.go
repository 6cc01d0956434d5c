package mock

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}

	before := time.Now()
	clockTime := clock.Now()
	after := time.Now()

	if clockTime.Before(before) || clockTime.After(after) {
		t.Errorf("RealClock.Now() returned time outside expected range")
	}
}

func TestMockClock_Now(t *testing.T) {
	fixedTime := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	clock := NewMockClock(fixedTime)

	if !clock.Now().Equal(fixedTime) {
		t.Errorf("Expected time %v, got %v", fixedTime, clock.Now())
	}

	// Calling Now multiple times should return the same time
	if !clock.Now().Equal(fixedTime) {
		t.Errorf("Expected time to remain stable at %v, got %v", fixedTime, clock.Now())
	}
}

func TestMockClock_Advance(t *testing.T) {
	startTime := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	clock := NewMockClock(startTime)

	clock.Advance(1 * time.Hour)

	expectedTime := startTime.Add(1 * time.Hour)
	if !clock.Now().Equal(expectedTime) {
		t.Errorf("Expected time %v after advance, got %v", expectedTime, clock.Now())
	}

	clock.Advance(30 * time.Minute)

	expectedTime = startTime.Add(90 * time.Minute)
	if !clock.Now().Equal(expectedTime) {
		t.Errorf("Expected time %v after second advance, got %v", expectedTime, clock.Now())
	}
}

func TestMockClock_Set(t *testing.T) {
	clock := NewMockClock(time.Time{})

	newTime := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	clock.Set(newTime)

	if !clock.Now().Equal(newTime) {
		t.Errorf("Expected time %v after Set, got %v", newTime, clock.Now())
	}
}

func TestMockClock_ZeroTime(t *testing.T) {
	// When initialized with zero time, should use current time
	before := time.Now()
	clock := NewMockClock(time.Time{})
	after := time.Now()

	clockTime := clock.Now()
	if clockTime.Before(before) || clockTime.After(after) {
		t.Errorf("MockClock with zero time should initialize to current time")
	}
}

func TestMockClock_CallSpacingScenario(t *testing.T) {
	// Simulate the oracle client's spacing check: a call is allowed once
	// MinCallInterval has elapsed since the previous one.
	lastCall := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	minInterval := 4 * time.Second

	clock := NewMockClock(lastCall)

	// One second later the interval has not elapsed yet
	clock.Advance(1 * time.Second)
	if elapsed := clock.Now().Sub(lastCall); elapsed >= minInterval {
		t.Errorf("Expected %v elapsed to be below the interval", elapsed)
	}

	// Three more seconds and the next call may go out
	clock.Advance(3 * time.Second)
	if elapsed := clock.Now().Sub(lastCall); elapsed < minInterval {
		t.Errorf("Expected %v elapsed to reach the interval", elapsed)
	}
}
