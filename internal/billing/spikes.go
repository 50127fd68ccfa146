package billing

import "fmt"

// Spike thresholds: adjacent months compare directly, the trailing rule
// compares against the mean of up to three preceding months.
const (
	adjacentSpikePct = 50.0
	trailingSpikePct = 80.0
	trailingWindow   = 3
)

// DetectSpikes runs the deterministic spike rules over one consumer's
// chronologically ordered series. Consumers with fewer than two
// observations have nothing to compare and report no spikes.
//
// A zero or negative previous value makes the percentage undefined; the
// comparison is skipped rather than propagating infinities. Upstream
// behavior for that edge was unspecified, so skipping is a deliberate
// choice here.
func DetectSpikes(consumerID string, consumerType Category, bills []MonthlyBill) ConsumerAnalysis {
	analysis := ConsumerAnalysis{Spikes: []Spike{}}
	if len(bills) < 2 {
		analysis.PatternSummary = patternSummary(bills)
		return analysis
	}

	spiked := map[string]bool{}

	for i := 1; i < len(bills); i++ {
		prev := bills[i-1].Amount
		if prev <= 0 {
			continue
		}
		pct := (bills[i].Amount - prev) / prev * 100
		if pct > adjacentSpikePct {
			analysis.Spikes = append(analysis.Spikes, Spike{
				ConsumerID:         consumerID,
				ConsumerType:       string(consumerType),
				Month:              bills[i].Month,
				BillAmount:         bills[i].Amount,
				PreviousBill:       prev,
				IncreasePercentage: pct,
				Reason:             fmt.Sprintf("Sudden %.1f%% increase from previous month", pct),
			})
			spiked[bills[i].Month] = true
		}
	}

	if len(bills) >= trailingWindow {
		for i := 2; i < len(bills); i++ {
			start := i - trailingWindow
			if start < 0 {
				start = 0
			}
			var sum float64
			for _, b := range bills[start:i] {
				sum += b.Amount
			}
			avg := sum / float64(i-start)
			if avg <= 0 {
				continue
			}
			pct := (bills[i].Amount - avg) / avg * 100
			if pct > trailingSpikePct && !spiked[bills[i].Month] {
				analysis.Spikes = append(analysis.Spikes, Spike{
					ConsumerID:         consumerID,
					ConsumerType:       string(consumerType),
					Month:              bills[i].Month,
					BillAmount:         bills[i].Amount,
					PreviousBill:       avg,
					IncreasePercentage: pct,
					Reason:             fmt.Sprintf("%.1f%% above recent average", pct),
				})
				spiked[bills[i].Month] = true
			}
		}
	}

	analysis.HasSpikes = len(analysis.Spikes) > 0
	analysis.PatternSummary = patternSummary(bills)
	return analysis
}

func patternSummary(bills []MonthlyBill) string {
	if len(bills) == 0 {
		return "No billing data"
	}
	var sum float64
	for _, b := range bills {
		sum += b.Amount
	}
	return fmt.Sprintf("Average bill: ₹%.2f", sum/float64(len(bills)))
}
