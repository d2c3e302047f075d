package score

import (
	"fmt"
	"math"

	"monkeysnype/internal/stats"
)

// DefaultScore is reported when no session has been played.
const DefaultScore = 50.0

type Band int

const (
	BandNone Band = iota
	BandLow
	BandMedium
	BandHigh
)

func (b Band) String() string {
	switch b {
	case BandLow:
		return "low"
	case BandMedium:
		return "medium"
	case BandHigh:
		return "high"
	default:
		return "none"
	}
}

func (b Band) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Band) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none":
		*b = BandNone
	case "low":
		*b = BandLow
	case "medium":
		*b = BandMedium
	case "high":
		*b = BandHigh
	default:
		return fmt.Errorf("unknown band %q", text)
	}
	return nil
}

// Indicator is the icon name the summary view shows for a band.
func (b Band) Indicator() string {
	switch b {
	case BandLow:
		return "frown"
	case BandMedium:
		return "meh"
	case BandHigh:
		return "smile"
	default:
		return ""
	}
}

type Summary struct {
	Stats      stats.Snapshot `json:"stats"`
	TargetRate float64        `json:"target_rate"`
	ClickRate  float64        `json:"click_rate"`
	Score      float64        `json:"score"`
	Band       Band           `json:"band"`
	Indicator  string         `json:"indicator"`
}

func rate(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return 100 * float64(num) / float64(den)
}

// TargetRate is the percentage of spawned targets that were downed.
func TargetRate(s stats.Snapshot) float64 {
	return rate(s.TotalTargetsClicked, s.TotalTargets)
}

// ClickRate is the percentage of clicks that landed on a live target.
func ClickRate(s stats.Snapshot) float64 {
	return rate(s.TotalClicksOnTarget, s.TotalClicks)
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Compute averages the target and click rates. A nil snapshot means no
// session was played and yields DefaultScore.
func Compute(s *stats.Snapshot) float64 {
	if s == nil {
		return DefaultScore
	}
	return Round2((TargetRate(*s) + ClickRate(*s)) / 2)
}

// Classify places v in [0,40) low, [40,60) medium, [60,100] high.
func Classify(v float64) Band {
	switch {
	case v >= 60:
		return BandHigh
	case v >= 40:
		return BandMedium
	default:
		return BandLow
	}
}

// Live returns the rate for the stats bar and its band. A zero denominator
// has no data yet and reports BandNone.
func Live(num, den int) (float64, Band) {
	if den == 0 {
		return 0, BandNone
	}
	r := rate(num, den)
	return r, Classify(r)
}

func FormatRate(v float64, b Band) string {
	if b == BandNone {
		return "N/A"
	}
	return fmt.Sprintf("%.3f%%", v)
}

func Summarize(s *stats.Snapshot) Summary {
	sum := Summary{Score: Compute(s)}
	if s != nil {
		sum.Stats = *s
		sum.TargetRate = TargetRate(*s)
		sum.ClickRate = ClickRate(*s)
	}
	sum.Band = Classify(sum.Score)
	sum.Indicator = sum.Band.Indicator()
	return sum
}
