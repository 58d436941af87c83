package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

func GenerateDrawID(drawType DrawType) string {
	return fmt.Sprintf("draw_%s_%s_%d",
		drawType,
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateTicketID() string {
	return fmt.Sprintf("ticket_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateRequestID() string {
	return fmt.Sprintf("rnd_%s", uuid.New().String())
}

func GenerateTransactionID() string {
	return fmt.Sprintf("tx_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateBatchID(drawID string) string {
	return fmt.Sprintf("batch_%s_%d", drawID, uuid.New().ID())
}

// SortedNumbers returns a sorted copy, leaving the input untouched.
func SortedNumbers(numbers []int) []int {
	out := make([]int, len(numbers))
	copy(out, numbers)
	sort.Ints(out)
	return out
}

// ValidateWinningNumbers checks cardinality, range and uniqueness.
func ValidateWinningNumbers(numbers []int, rules DrawRules) error {
	if len(numbers) != rules.NumbersRequired {
		return fmt.Errorf("expected %d winning numbers, got %d",
			rules.NumbersRequired, len(numbers))
	}
	seen := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		if n < 1 || n > rules.MaxNumberValue {
			return fmt.Errorf("winning number %d out of range 1-%d", n, rules.MaxNumberValue)
		}
		if seen[n] {
			return fmt.Errorf("duplicate winning number %d", n)
		}
		seen[n] = true
	}
	return nil
}
