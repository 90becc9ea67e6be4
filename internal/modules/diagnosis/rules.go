package diagnosis

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// Metric names a rule group can test.
const (
	MetricTotalReturn = "total_return"
	MetricMaxDrawdown = "max_drawdown"
	MetricSharpe      = "sharpe"
)

// Rule adds Delta to the score when the metric is above (gt) or below (lt)
// Threshold.
type Rule struct {
	Op        string  `yaml:"op"`
	Threshold float64 `yaml:"threshold"`
	Delta     float64 `yaml:"delta"`
}

func (r Rule) matches(v float64) bool {
	if r.Op == "lt" {
		return v < r.Threshold
	}
	return v > r.Threshold
}

// RuleGroup applies at most one rule, the first that matches.
type RuleGroup struct {
	Metric string `yaml:"metric"`
	Rules  []Rule `yaml:"rules"`
}

// Conclusion is the verdict text for scores at or above MinScore.
type Conclusion struct {
	MinScore float64 `yaml:"min_score"`
	Text     string  `yaml:"text"`
}

// Rules is the complete scoring table.
type Rules struct {
	BaseScore       float64      `yaml:"base_score"`
	MinScore        float64      `yaml:"min_score"`
	MaxScore        float64      `yaml:"max_score"`
	MinObservations int          `yaml:"min_observations"`
	LookbackYears   int          `yaml:"lookback_years"`
	RiskFreeRate    float64      `yaml:"risk_free_rate"`
	Groups          []RuleGroup  `yaml:"groups"`
	Conclusions     []Conclusion `yaml:"conclusions"`
}

// DefaultRules returns the built-in table.
func DefaultRules() Rules {
	r, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded diagnosis rules are invalid: %v", err))
	}
	return r
}

// LoadRules reads a rule table file. An empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a YAML rule table.
func ParseRules(data []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("parse rules yaml: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Rules{}, fmt.Errorf("validate rules: %w", err)
	}
	sort.SliceStable(r.Conclusions, func(i, j int) bool { return r.Conclusions[i].MinScore > r.Conclusions[j].MinScore })
	return r, nil
}

// Validate checks the table is usable.
func (r Rules) Validate() error {
	if r.MinScore >= r.MaxScore {
		return fmt.Errorf("min_score %.2f must be below max_score %.2f", r.MinScore, r.MaxScore)
	}
	if r.BaseScore < r.MinScore || r.BaseScore > r.MaxScore {
		return fmt.Errorf("base_score %.2f outside [%.2f, %.2f]", r.BaseScore, r.MinScore, r.MaxScore)
	}
	if r.MinObservations < 2 {
		return fmt.Errorf("min_observations must be at least 2, got %d", r.MinObservations)
	}
	if r.LookbackYears < 1 {
		return fmt.Errorf("lookback_years must be at least 1, got %d", r.LookbackYears)
	}
	for _, g := range r.Groups {
		switch g.Metric {
		case MetricTotalReturn, MetricMaxDrawdown, MetricSharpe:
		default:
			return fmt.Errorf("unknown metric %q", g.Metric)
		}
		for _, rule := range g.Rules {
			if rule.Op != "gt" && rule.Op != "lt" {
				return fmt.Errorf("metric %s: unknown op %q", g.Metric, rule.Op)
			}
		}
	}
	if len(r.Conclusions) == 0 {
		return fmt.Errorf("at least one conclusion is required")
	}
	return nil
}
