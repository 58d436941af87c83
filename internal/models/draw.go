package models

import "time"

type DrawType string

const (
	DrawTypeDaily  DrawType = "daily"
	DrawTypeWeekly DrawType = "weekly"
)

type DrawStatus string

const (
	DrawStatusScheduled    DrawStatus = "scheduled"
	DrawStatusRandomness   DrawStatus = "randomness_requested"
	DrawStatusNumbersDrawn DrawStatus = "numbers_drawn"
	DrawStatusResolved     DrawStatus = "resolved"
)

// DrawRules fixes the number format per draw type. These never change at
// runtime: daily picks 5 of 1-45, weekly picks 6 of 1-49.
type DrawRules struct {
	NumbersRequired int `json:"numbers_required"`
	MaxNumberValue  int `json:"max_number_value"`
}

var drawRules = map[DrawType]DrawRules{
	DrawTypeDaily:  {NumbersRequired: 5, MaxNumberValue: 45},
	DrawTypeWeekly: {NumbersRequired: 6, MaxNumberValue: 49},
}

func RulesFor(drawType DrawType) (DrawRules, bool) {
	rules, ok := drawRules[drawType]
	return rules, ok
}

type Draw struct {
	ID             string     `json:"id" redis:"id"`
	DrawType       DrawType   `json:"draw_type" redis:"draw_type"`
	Status         DrawStatus `json:"status" redis:"status"`
	JackpotAmount  string     `json:"jackpot_amount" redis:"jackpot_amount"`
	WinningNumbers []int      `json:"winning_numbers,omitempty" redis:"winning_numbers"`
	ScheduledAt    time.Time  `json:"scheduled_at" redis:"scheduled_at"`
	CreatedAt      time.Time  `json:"created_at" redis:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" redis:"updated_at"`
}

func (d *Draw) Rules() (DrawRules, bool) {
	return RulesFor(d.DrawType)
}

type CreateDrawRequest struct {
	DrawType      DrawType  `json:"draw_type" binding:"required"`
	JackpotAmount string    `json:"jackpot_amount" binding:"required"`
	ScheduledAt   time.Time `json:"scheduled_at"`
}

// DrawSummary aggregates the outcome of resolving one draw.
type DrawSummary struct {
	DrawID               string      `json:"draw_id"`
	TotalWinners         int         `json:"total_winners"`
	TotalPrizeAmount     string      `json:"total_prize_amount"`
	WinnersByMatchCount  map[int]int `json:"winners_by_match_count"`
	ProcessedTicketCount int         `json:"processed_ticket_count"`
}
