package monitoring

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

const (
	defaultIterations = 10
	bytesToMB         = 1024 * 1024
)

// Scenario is a repeatable store workload, e.g. "recompute after update".
// Setup runs once before the timed iterations.
type Scenario struct {
	Name        string
	Description string
	Rows        int
	Iterations  int
	Setup       func() error
	Run         func() error
}

// ScenarioResult holds the timings of a scenario
type ScenarioResult struct {
	Scenario        Scenario      `json:"-"`
	Name            string        `json:"name"`
	Rows            int           `json:"rows"`
	Iterations      int           `json:"iterations"`
	Duration        time.Duration `json:"duration"`
	AverageDuration time.Duration `json:"average_duration"`
	MinDuration     time.Duration `json:"min_duration"`
	MaxDuration     time.Duration `json:"max_duration"`
	MemoryAllocated int64         `json:"memory_allocated"`
	Success         bool          `json:"success"`
	ErrorMessage    string        `json:"error_message,omitempty"`
}

// BenchmarkSuite runs scenarios and renders a markdown report.
type BenchmarkSuite struct {
	scenarios []Scenario
	results   []ScenarioResult
}

// NewBenchmarkSuite creates an empty suite.
func NewBenchmarkSuite() *BenchmarkSuite {
	return &BenchmarkSuite{}
}

// AddScenario adds a scenario to the suite.
func (bs *BenchmarkSuite) AddScenario(scenario Scenario) {
	bs.scenarios = append(bs.scenarios, scenario)
}

// Run executes all scenarios in order and returns the results.
func (bs *BenchmarkSuite) Run() []ScenarioResult {
	bs.results = make([]ScenarioResult, 0, len(bs.scenarios))
	for _, scenario := range bs.scenarios {
		bs.results = append(bs.results, runScenario(scenario))
	}
	return bs.results
}

func runScenario(scenario Scenario) ScenarioResult {
	if scenario.Iterations <= 0 {
		scenario.Iterations = defaultIterations
	}
	result := ScenarioResult{
		Scenario:   scenario,
		Name:       scenario.Name,
		Rows:       scenario.Rows,
		Iterations: scenario.Iterations,
		Success:    true,
	}

	if scenario.Setup != nil {
		if err := scenario.Setup(); err != nil {
			result.Success = false
			result.ErrorMessage = fmt.Sprintf("setup failed: %v", err)
			return result
		}
	}

	var memBefore, memAfter runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&memBefore)

	completed := 0
	for i := range scenario.Iterations {
		start := time.Now()
		if err := scenario.Run(); err != nil {
			result.Success = false
			result.ErrorMessage = fmt.Sprintf("iteration %d failed: %v", i+1, err)
			break
		}
		d := time.Since(start)
		if completed == 0 || d < result.MinDuration {
			result.MinDuration = d
		}
		if d > result.MaxDuration {
			result.MaxDuration = d
		}
		result.Duration += d
		completed++
	}

	runtime.ReadMemStats(&memAfter)
	result.MemoryAllocated = int64(memAfter.TotalAlloc - memBefore.TotalAlloc) //nolint:gosec // Safe memory calculation
	if completed > 0 {
		result.AverageDuration = result.Duration / time.Duration(completed)
	}
	return result
}

// GetResults returns the results of the last run.
func (bs *BenchmarkSuite) GetResults() []ScenarioResult {
	return bs.results
}

// GenerateReport renders the last run as a markdown table.
func (bs *BenchmarkSuite) GenerateReport() string {
	if len(bs.results) == 0 {
		return "# Store Benchmark\n\nNo results.\n"
	}

	var report strings.Builder
	report.WriteString("# Store Benchmark\n\n")
	report.WriteString("| Scenario | Rows | Iterations | Avg | Min | Max | Memory (MB) | Status |\n")
	report.WriteString("|----------|------|------------|-----|-----|-----|-------------|--------|\n")

	for _, r := range bs.results {
		status := "ok"
		if !r.Success {
			status = "failed: " + r.ErrorMessage
		}
		fmt.Fprintf(&report, "| %s | %d | %d | %v | %v | %v | %.2f | %s |\n",
			r.Name, r.Rows, r.Iterations,
			r.AverageDuration, r.MinDuration, r.MaxDuration,
			float64(r.MemoryAllocated)/bytesToMB, status)
	}

	for _, r := range bs.results {
		if r.Scenario.Description != "" {
			fmt.Fprintf(&report, "\n- **%s**: %s", r.Name, r.Scenario.Description)
		}
	}
	report.WriteString("\n")
	return report.String()
}

// Clear removes all scenarios and results from the suite.
func (bs *BenchmarkSuite) Clear() {
	bs.scenarios = bs.scenarios[:0]
	bs.results = bs.results[:0]
}
