package insight

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"

	"billing_monitor/internal/billing"
)

var consumerRef = regexp.MustCompile(`\b(c\d+|consumer\s*\d+)\b`)

// Answer responds to a follow-up question about an analysis session.
// The model is consulted when configured; otherwise (or on failure) a
// rule-based responder works from the retained session data.
func (a *Analyzer) Answer(ctx context.Context, question string, s *Session) string {
	if !a.gen.Available() {
		return ruleBasedAnswer(question, s)
	}
	text, err := a.gen.Generate(ctx, chatPrompt(question, s))
	if err != nil {
		log.Printf("insight: chat generation failed: %v (using fallback)", err)
		return ruleBasedAnswer(question, s)
	}
	return text
}

func chatPrompt(question string, s *Session) string {
	var b strings.Builder
	b.WriteString("You are an assistant answering questions about an electricity bill spike analysis.\n\n")
	fmt.Fprintf(&b, "Analysis Summary:\n- Total Consumers: %d (%d residential, %d commercial)\n- Spikes Detected: %d across %d consumers\n\n",
		s.Summary.TotalConsumers, s.Summary.ResidentialCount, s.Summary.CommercialCount,
		s.Summary.SpikeCount, s.Summary.ConsumersWithSpikes)
	if len(s.Spikes) > 0 {
		b.WriteString("Detected Spikes:\n")
		for _, sp := range s.Spikes {
			fmt.Fprintf(&b, "- %s (%s): %s - ₹%.2f (+%.1f%%) - %s\n",
				sp.ConsumerID, sp.ConsumerType, sp.Month, sp.BillAmount, sp.IncreasePercentage, sp.Reason)
		}
		b.WriteString("\n")
	}
	if s.Analysis != "" {
		fmt.Fprintf(&b, "Earlier Analysis:\n%s\n\n", s.Analysis)
	}
	fmt.Fprintf(&b, "Question: %s\n\nAnswer concisely using only the data above.", question)
	return b.String()
}

func ruleBasedAnswer(question string, s *Session) string {
	q := strings.ToLower(question)

	if m := consumerRef.FindString(q); m != "" {
		id := strings.TrimSpace(strings.TrimPrefix(m, "consumer"))
		if !strings.HasPrefix(id, "c") {
			id = "c" + id
		}
		return consumerAnswer(id, s)
	}

	switch {
	case strings.Contains(q, "how many") && strings.Contains(q, "spike"):
		return fmt.Sprintf("A total of %d spikes were detected across %d consumers (out of %d analyzed).",
			s.Summary.SpikeCount, s.Summary.ConsumersWithSpikes, s.Summary.TotalConsumers)

	case strings.Contains(q, "highest") || strings.Contains(q, "biggest"):
		if len(s.Spikes) == 0 {
			return "No spikes were detected in this analysis, so there is no highest spike to report."
		}
		top := s.Spikes[0]
		for _, sp := range s.Spikes[1:] {
			if sp.IncreasePercentage > top.IncreasePercentage {
				top = sp
			}
		}
		return fmt.Sprintf("The biggest spike was %s (%s) in %s: ₹%.2f, a %.1f%% increase. %s",
			top.ConsumerID, top.ConsumerType, top.Month, top.BillAmount, top.IncreasePercentage, top.Reason)

	case strings.Contains(q, "recommend") || strings.Contains(q, "what should"):
		if s.Summary.SpikeCount == 0 {
			return "No spikes were detected. No immediate action is needed; continue routine monitoring."
		}
		return fmt.Sprintf("Recommended actions: investigate the %d consumers with detected spikes, verify their meter readings, check for seasonal or one-time usage causes, and monitor them in the coming months.",
			s.Summary.ConsumersWithSpikes)

	case strings.Contains(q, "residential") || strings.Contains(q, "commercial"):
		res, com := 0, 0
		for _, sp := range s.Spikes {
			if sp.ConsumerType == string(billing.CategoryResidential) {
				res++
			} else {
				com++
			}
		}
		return fmt.Sprintf("Of the %d spikes detected, %d were residential and %d were commercial. The analysis covered %d residential and %d commercial consumers.",
			s.Summary.SpikeCount, res, com, s.Summary.ResidentialCount, s.Summary.CommercialCount)
	}

	return fmt.Sprintf("The analysis covered %d consumers (%d residential, %d commercial) and detected %d spikes across %d consumers. Ask about a specific consumer (e.g. \"c101\"), the highest spike, or recommendations.",
		s.Summary.TotalConsumers, s.Summary.ResidentialCount, s.Summary.CommercialCount,
		s.Summary.SpikeCount, s.Summary.ConsumersWithSpikes)
}

func consumerAnswer(id string, s *Session) string {
	var spikes []billing.Spike
	for _, sp := range s.Spikes {
		if strings.EqualFold(sp.ConsumerID, id) {
			spikes = append(spikes, sp)
		}
	}

	var raw *RawConsumer
	for i := range s.RawData {
		if strings.EqualFold(s.RawData[i].ConsumerID, id) {
			raw = &s.RawData[i]
			break
		}
	}
	if raw == nil && len(spikes) == 0 {
		return fmt.Sprintf("Consumer %s was not found in this analysis.", id)
	}

	var b strings.Builder
	if raw != nil {
		fmt.Fprintf(&b, "Consumer %s (%s) has %d months of billing data.",
			raw.ConsumerID, raw.ConsumerType, len(raw.MonthlyBills))
		if len(raw.MonthlyBills) > 0 {
			months := make([]string, 0, len(raw.MonthlyBills))
			for m := range raw.MonthlyBills {
				months = append(months, m)
			}
			sort.Strings(months)
			parts := make([]string, 0, len(months))
			for _, m := range months {
				parts = append(parts, fmt.Sprintf("%s: ₹%.2f", m, raw.MonthlyBills[m]))
			}
			fmt.Fprintf(&b, " Bills: %s.", strings.Join(parts, ", "))
		}
	} else {
		fmt.Fprintf(&b, "Consumer %s appears in the spike list.", id)
	}
	if len(spikes) == 0 {
		b.WriteString(" No spikes were detected for this consumer.")
	} else {
		fmt.Fprintf(&b, " %d spike(s) detected:", len(spikes))
		for _, sp := range spikes {
			fmt.Fprintf(&b, " %s ₹%.2f (+%.1f%%, %s).", sp.Month, sp.BillAmount, sp.IncreasePercentage, sp.Reason)
		}
	}
	return b.String()
}
