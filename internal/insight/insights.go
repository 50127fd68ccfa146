package insight

import (
	"context"
	"fmt"
	"log"
	"strings"

	"billing_monitor/internal/billing"
)

// Summary counts the ad-hoc analysis outcome across all consumers.
type Summary struct {
	TotalConsumers      int `json:"total_consumers"`
	ResidentialCount    int `json:"residential_count"`
	CommercialCount     int `json:"commercial_count"`
	SpikeCount          int `json:"spike_count"`
	ConsumersWithSpikes int `json:"consumers_with_spikes"`
}

// OverallInsights produces the batch-level narrative, via the model
// when possible and a deterministic template otherwise.
func (a *Analyzer) OverallInsights(ctx context.Context, spikes []billing.Spike, summary Summary) string {
	if !a.gen.Available() {
		return fallbackInsights(spikes, summary)
	}
	text, err := a.gen.Generate(ctx, insightsPrompt(spikes, summary))
	if err != nil {
		log.Printf("insight: overall insights generation failed: %v (using fallback)", err)
		return fallbackInsights(spikes, summary)
	}
	return text
}

func insightsPrompt(spikes []billing.Spike, summary Summary) string {
	var b strings.Builder
	b.WriteString("Analyze the electricity bill spike detection results across all consumers.\n\n")
	fmt.Fprintf(&b, "Summary:\n- Total Consumers: %d\n- Residential: %d\n- Commercial: %d\n- Consumers with Spikes: %d\n- Total Spikes Detected: %d\n\n",
		summary.TotalConsumers, summary.ResidentialCount, summary.CommercialCount, summary.ConsumersWithSpikes, summary.SpikeCount)
	b.WriteString("Sample Detected Spikes:\n")
	if len(spikes) == 0 {
		b.WriteString("No spikes detected\n")
	}
	sample := spikes
	if len(sample) > 20 {
		sample = sample[:20]
	}
	for _, s := range sample {
		fmt.Fprintf(&b, "- %s (%s): %s - ₹%.2f (+%.1f%%) - %s\n",
			s.ConsumerID, s.ConsumerType, s.Month, s.BillAmount, s.IncreasePercentage, s.Reason)
	}
	b.WriteString(`
Provide a concise, actionable analysis covering spike patterns, frequency and
magnitude, residential versus commercial differences, plausible causes, and
recommendations for the power company.`)
	return b.String()
}

func fallbackInsights(spikes []billing.Spike, summary Summary) string {
	if summary.SpikeCount == 0 {
		return `**Electricity Bill Spike Analysis**

No sudden spikes detected across all consumers.

All consumers show stable, predictable billing patterns with normal month-to-month variations.
`
	}

	resSpikes := 0
	for _, s := range spikes {
		if s.ConsumerType == string(billing.CategoryResidential) {
			resSpikes++
		}
	}
	comSpikes := summary.SpikeCount - resSpikes
	rate := 0.0
	if summary.TotalConsumers > 0 {
		rate = float64(summary.ConsumersWithSpikes) / float64(summary.TotalConsumers) * 100
	}

	return fmt.Sprintf(`**Electricity Bill Spike Analysis**

**Overview:**
Analyzed %d consumers and detected %d billing spikes across %d consumers.

**Key Findings:**
- Residential Spikes: %d detected
- Commercial Spikes: %d detected
- Spike Rate: %.1f%% of consumers affected

**Recommendations:**
1. Investigate all %d consumers with detected spikes
2. Verify meter accuracy for consumers showing unusual patterns
3. Check for seasonal factors or one-time events causing spikes
4. Consider energy audits for consumers with multiple spikes
5. Monitor these consumers closely in upcoming months
`,
		summary.TotalConsumers, summary.SpikeCount, summary.ConsumersWithSpikes,
		resSpikes, comSpikes, rate, summary.ConsumersWithSpikes)
}
