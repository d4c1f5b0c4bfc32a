package engine

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-roi/internal/models"
)

// RuleEngine attaches recommendations to a run based on the insights it produced.
type RuleEngine struct {
	rules  []Rule
	logger *slog.Logger
}

// Rule represents a single recommendation rule.
type Rule struct {
	ID              string    `yaml:"id"`
	Match           RuleMatch `yaml:"match"`
	Recommendations []string  `yaml:"recommendations"`
}

// RuleMatch defines optional attributes for rule matching. All set attributes must hold for one insight.
type RuleMatch struct {
	Workload        string   `yaml:"workload"`
	MinROI          *float64 `yaml:"min_roi"`
	MaxROI          *float64 `yaml:"max_roi"`
	CommentContains []string `yaml:"comment_contains"`
}

// RuleConfigFile is the YAML root structure.
type RuleConfigFile struct {
	Rules []Rule `yaml:"rules"`
}

// NewRuleEngine loads rules from the provided path. If path is empty or missing, returns nil engine.
func NewRuleEngine(path string, logger *slog.Logger) (*RuleEngine, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg RuleConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("loaded recommendation rules", slog.String("path", path), slog.Int("rules", len(cfg.Rules)))
	return &RuleEngine{rules: cfg.Rules, logger: logger}, nil
}

// Recommend returns the de-duplicated recommendations of every rule matched by at least one insight.
func (e *RuleEngine) Recommend(insights []models.CorrelationInsight) []string {
	if e == nil {
		return nil
	}

	matched := make([]string, 0)
	for _, rule := range e.rules {
		for _, insight := range insights {
			if rule.Match.matches(insight) {
				matched = appendUnique(matched, rule.Recommendations...)
				break
			}
		}
	}
	return matched
}

func (m RuleMatch) matches(insight models.CorrelationInsight) bool {
	if m.Workload != "" && !strings.EqualFold(m.Workload, insight.Workload) {
		return false
	}
	if m.MinROI != nil && insight.ROIScore < *m.MinROI {
		return false
	}
	if m.MaxROI != nil && insight.ROIScore > *m.MaxROI {
		return false
	}
	if len(m.CommentContains) > 0 && !commentContains(insight.Comment, m.CommentContains) {
		return false
	}
	return true
}

func commentContains(comment string, keywords []string) bool {
	lower := strings.ToLower(comment)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// DefaultRecommendations is used when no rule pack is loaded or nothing matched.
func DefaultRecommendations(insights []models.CorrelationInsight) []string {
	if len(insights) == 0 {
		return []string{"Collect at least five aligned business and cost samples per metric before drawing ROI conclusions"}
	}
	recs := make([]string, 0, 2)
	for _, insight := range insights {
		if insight.ROIScore < 0 {
			recs = appendUnique(recs, "Review workloads whose KPIs fall as spend rises")
			continue
		}
		recs = appendUnique(recs, "Keep monitoring spend against KPI movement for positive-ROI workloads")
	}
	return recs
}

func appendUnique(existing []string, additions ...string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		seen[rec] = struct{}{}
	}
	for _, item := range additions {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		existing = append(existing, item)
		seen[item] = struct{}{}
	}
	return existing
}
