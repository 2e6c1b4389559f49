package ml

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rxtech-lab/argo-ml/internal/types"
)

// Metrics are precision, recall, F1 and support for one class or an average.
type Metrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

// ClassMetrics are the metrics of one label.
type ClassMetrics struct {
	Label types.Label `json:"label"`
	Metrics
}

// Report is a per-class classification report over a held-out set.
type Report struct {
	Classes     []ClassMetrics `json:"classes"`
	Accuracy    float64        `json:"accuracy"`
	MacroAvg    Metrics        `json:"macro_avg"`
	WeightedAvg Metrics        `json:"weighted_avg"`
}

// Evaluate compares predicted with true class indices. Precision of a class that was never
// predicted, and recall of a class with no support, are 0.
func Evaluate(yTrue, yPred []int, classes []types.Label) Report {
	k := len(classes)
	truePositive := make([]int, k)
	predicted := make([]int, k)
	support := make([]int, k)
	correct := 0

	for i := range yTrue {
		support[yTrue[i]]++
		predicted[yPred[i]]++

		if yTrue[i] == yPred[i] {
			truePositive[yTrue[i]]++
			correct++
		}
	}

	report := Report{Classes: make([]ClassMetrics, k)}
	total := len(yTrue)

	for c, label := range classes {
		m := Metrics{
			Precision: ratio(truePositive[c], predicted[c]),
			Recall:    ratio(truePositive[c], support[c]),
			Support:   support[c],
		}

		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}

		report.Classes[c] = ClassMetrics{Label: label, Metrics: m}

		report.MacroAvg.Precision += m.Precision / float64(k)
		report.MacroAvg.Recall += m.Recall / float64(k)
		report.MacroAvg.F1 += m.F1 / float64(k)

		if total > 0 {
			w := float64(m.Support) / float64(total)
			report.WeightedAvg.Precision += m.Precision * w
			report.WeightedAvg.Recall += m.Recall * w
			report.WeightedAvg.F1 += m.F1 * w
		}
	}

	report.MacroAvg.Support = total
	report.WeightedAvg.Support = total
	report.Accuracy = ratio(correct, total)

	return report
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}

	return float64(num) / float64(den)
}

// String renders the report as a fixed-width text table.
func (r Report) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%12s %9s %9s %9s %9s\n\n", "", "precision", "recall", "f1-score", "support")

	for _, c := range r.Classes {
		fmt.Fprintf(&b, "%12s %9.2f %9.2f %9.2f %9d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "%12s %9s %9s %9.2f %9d\n", "accuracy", "", "", r.Accuracy, r.MacroAvg.Support)
	fmt.Fprintf(&b, "%12s %9.2f %9.2f %9.2f %9d\n", "macro avg", r.MacroAvg.Precision, r.MacroAvg.Recall, r.MacroAvg.F1, r.MacroAvg.Support)
	fmt.Fprintf(&b, "%12s %9.2f %9.2f %9.2f %9d\n", "weighted avg", r.WeightedAvg.Precision, r.WeightedAvg.Recall, r.WeightedAvg.F1, r.WeightedAvg.Support)

	return b.String()
}

// JSON is the persisted form of the report.
func (r Report) JSON() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// ParseReport reads a report written by JSON. An empty string yields an empty report.
func ParseReport(s string) (Report, error) {
	var r Report
	if s == "" {
		return r, nil
	}

	err := json.Unmarshal([]byte(s), &r)

	return r, err
}
