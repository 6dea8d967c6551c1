// Package analytics derives engagement metrics from a ledger snapshot.
// Every function is pure in (events, now); a calendar day is a date in
// now's location, never a rolling 24 hour window.
package analytics

import (
	"math"
	"time"

	"github.com/rajasatyajit/EcoScan/internal/models"
)

const (
	// PointsPerEvent is what one event contributes to a day
	PointsPerEvent = 10
	// DailyGoalPoints is the fixed per-day target
	DailyGoalPoints = 100
	// TrendDays is the width of the trend window, today inclusive
	TrendDays = 7
)

// DayPoints is one trend bucket
type DayPoints struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
	Points  int    `json:"points"`
}

// Badge is a point milestone
type Badge struct {
	Title     string `json:"title"`
	Threshold int    `json:"threshold"`
	Unlocked  bool   `json:"unlocked"`
}

var badgeLevels = []Badge{
	{Title: "Beginner", Threshold: 0},
	{Title: "Eco Saver", Threshold: 500},
	{Title: "Planet Hero", Threshold: 1000},
}

// Summary bundles every metric for one observation time
type Summary struct {
	Points           int         `json:"points"`
	Scans            int         `json:"scans"`
	Streak           int         `json:"streak"`
	DailyGoalPercent int         `json:"daily_goal_percent"`
	Trend            []DayPoints `json:"trend"`
	Badges           []Badge     `json:"badges"`
}

// civilDate is a calendar date with no time or zone
type civilDate struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time, loc *time.Location) civilDate {
	y, m, d := t.In(loc).Date()
	return civilDate{year: y, month: m, day: d}
}

// addDays steps through calendar days; time.Date normalizes overflow
func (c civilDate) addDays(n int) civilDate {
	y, m, d := time.Date(c.year, c.month, c.day+n, 12, 0, 0, 0, time.UTC).Date()
	return civilDate{year: y, month: m, day: d}
}

func (c civilDate) before(o civilDate) bool {
	if c.year != o.year {
		return c.year < o.year
	}
	if c.month != o.month {
		return c.month < o.month
	}
	return c.day < o.day
}

func (c civilDate) midnight(loc *time.Location) time.Time {
	return time.Date(c.year, c.month, c.day, 0, 0, 0, 0, loc)
}

func countByDate(events []models.ScanEvent, loc *time.Location) map[civilDate]int {
	counts := make(map[civilDate]int, len(events))
	for _, e := range events {
		counts[dateOf(e.Timestamp, loc)]++
	}
	return counts
}

// Trend returns the points earned on each of the seven days ending today,
// oldest first.
func Trend(events []models.ScanEvent, now time.Time) []DayPoints {
	loc := now.Location()
	counts := countByDate(events, loc)
	today := dateOf(now, loc)

	buckets := make([]DayPoints, 0, TrendDays)
	for i := TrendDays - 1; i >= 0; i-- {
		day := today.addDays(-i)
		start := day.midnight(loc)
		buckets = append(buckets, DayPoints{
			Date:    start.Format(time.DateOnly),
			Weekday: start.Weekday().String()[:3],
			Points:  PointsPerEvent * counts[day],
		})
	}
	return buckets
}

// Streak counts consecutive active days ending at the most recent active
// day, which must be today or yesterday. Anything else, including a date
// after today, means no streak.
func Streak(events []models.ScanEvent, now time.Time) int {
	if len(events) == 0 {
		return 0
	}
	loc := now.Location()
	counts := countByDate(events, loc)
	today := dateOf(now, loc)

	var latest civilDate
	for day := range counts {
		if latest.before(day) {
			latest = day
		}
	}
	if latest != today && latest != today.addDays(-1) {
		return 0
	}

	day := latest
	streak := 0
	for counts[day] > 0 {
		streak++
		day = day.addDays(-1)
	}
	return streak
}

// DailyGoalPercent is today's points as a percentage of the daily goal,
// rounded and capped at 100.
func DailyGoalPercent(events []models.ScanEvent, now time.Time) int {
	loc := now.Location()
	today := dateOf(now, loc)

	todayCount := 0
	for _, e := range events {
		if dateOf(e.Timestamp, loc) == today {
			todayCount++
		}
	}

	percent := math.Round(float64(PointsPerEvent*todayCount) / DailyGoalPoints * 100)
	return int(math.Min(100, percent))
}

// Badges returns every milestone with its unlocked state for points
func Badges(points int) []Badge {
	out := make([]Badge, len(badgeLevels))
	for i, b := range badgeLevels {
		b.Unlocked = points >= b.Threshold
		out[i] = b
	}
	return out
}

// Summarize computes all metrics at once
func Summarize(events []models.ScanEvent, points int, now time.Time) Summary {
	return Summary{
		Points:           points,
		Scans:            len(events),
		Streak:           Streak(events, now),
		DailyGoalPercent: DailyGoalPercent(events, now),
		Trend:            Trend(events, now),
		Badges:           Badges(points),
	}
}
