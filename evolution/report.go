package evolution

import (
	"fmt"
	"time"

	"github.com/signalnine/seasalt/gosim/genome"
)

// ReportSummary is the headline of a training report.
type ReportSummary struct {
	TotalGenerations int       `json:"totalGenerations"`
	BestFitness      float64   `json:"bestFitness"`
	TrainingTime     string    `json:"trainingTime"`
	CompletedAt      time.Time `json:"completedAt"`
	StopReason       string    `json:"stopReason"`
}

// EvolutionSummary compares the first and last generations.
type EvolutionSummary struct {
	FitnessImprovement    float64 `json:"fitnessImprovement"`
	AvgFitnessImprovement float64 `json:"avgFitnessImprovement"`
	FinalDiversity        float64 `json:"finalDiversity"`
}

// ChartData holds one series per history column.
type ChartData struct {
	Generations []int     `json:"generations"`
	MaxFitness  []float64 `json:"maxFitness"`
	AvgFitness  []float64 `json:"avgFitness"`
	Diversity   []float64 `json:"diversity"`
	BestWinRate []float64 `json:"bestWinRate"`
}

// TrainingReport is written as training-report.json at the end of a run.
type TrainingReport struct {
	Summary        ReportSummary    `json:"summary"`
	Config         *EvolutionConfig `json:"config"`
	BestGenome     *genome.Genome   `json:"bestGenome"`
	EvolutionStats EvolutionSummary `json:"evolutionStats"`
	ChartData      ChartData        `json:"chartData"`
}

// Report builds the training report from the current state.
func (e *EvolutionEngine) Report() TrainingReport {
	status := e.Status()
	history := e.History()

	report := TrainingReport{
		Summary: ReportSummary{
			TotalGenerations: status.Generation,
			BestFitness:      status.BestFitness,
			TrainingTime:     status.TrainingTime,
			CompletedAt:      time.Now(),
			StopReason:       status.StopReason,
		},
		Config:         e.Config,
		EvolutionStats: summarizeHistory(history),
		ChartData:      chartData(history),
	}
	if best, ok := e.BestEver(); ok {
		report.BestGenome = &best.Genome
	}
	return report
}

func summarizeHistory(history []GenerationStats) EvolutionSummary {
	if len(history) == 0 {
		return EvolutionSummary{}
	}
	first, last := history[0], history[len(history)-1]
	return EvolutionSummary{
		FitnessImprovement:    last.MaxFitness - first.MaxFitness,
		AvgFitnessImprovement: last.AvgFitness - first.AvgFitness,
		FinalDiversity:        last.Diversity,
	}
}

func chartData(history []GenerationStats) ChartData {
	c := ChartData{
		Generations: make([]int, len(history)),
		MaxFitness:  make([]float64, len(history)),
		AvgFitness:  make([]float64, len(history)),
		Diversity:   make([]float64, len(history)),
		BestWinRate: make([]float64, len(history)),
	}
	for i, h := range history {
		c.Generations[i] = h.Generation
		c.MaxFitness[i] = h.MaxFitness
		c.AvgFitness[i] = h.AvgFitness
		c.Diversity[i] = h.Diversity
		c.BestWinRate[i] = h.BestWinRate
	}
	return c
}

// FormatTrainingTime renders d as "1h 2m 3s", "2m 3s" or "3s".
func FormatTrainingTime(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
