package parser

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"vehiclepush/internal/config"
	"vehiclepush/internal/logger"
	"vehiclepush/pkg/cel"
	"vehiclepush/pkg/metrics"
)

// Classifier infers a Kind from free text when the sender omitted one.
type Classifier interface {
	Classify(ctx context.Context, vehicleID, text string) Kind
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(ctx context.Context, vehicleID, text string) Kind

func (f ClassifierFunc) Classify(ctx context.Context, vehicleID, text string) Kind {
	return f(ctx, vehicleID, text)
}

// DefaultRules is the keyword rule set used when none is configured.
var DefaultRules = []config.ClassificationRule{
	{
		Name:       "error_keywords",
		Kind:       string(KindError),
		Expression: `text.contains("error") || text.contains("fail") || text.contains("fault")`,
	},
	{
		Name:       "alert_keywords",
		Kind:       string(KindAlert),
		Expression: `text.contains("alert") || text.contains("alarm") || text.contains("warning") || text.contains("theft") || text.contains("intrusion")`,
	},
}

type compiledRule struct {
	name    string
	kind    Kind
	program *cel.Program
}

// RuleClassifier evaluates every rule against the lower-cased text. A single
// matching kind wins; no match or matches of different kinds yield Info.
type RuleClassifier struct {
	evaluator *cel.Evaluator
	rules     atomic.Pointer[[]compiledRule]
	logger    logger.Logger
}

func NewRuleClassifier(rules []config.ClassificationRule, log logger.Logger) (*RuleClassifier, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	c := &RuleClassifier{
		evaluator: evaluator,
		logger:    log,
	}

	if len(rules) == 0 {
		rules = DefaultRules
	}
	if err := c.Reload(rules); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload swaps the rule set atomically. On error the previous rules stay
// in effect.
func (c *RuleClassifier) Reload(rules []config.ClassificationRule) error {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		kind, ok := ParseKind(r.Kind)
		if !ok {
			return fmt.Errorf("rule %q: invalid kind %q", r.Name, r.Kind)
		}
		program, err := c.evaluator.Compile(r.Expression)
		if err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}
		compiled = append(compiled, compiledRule{name: r.Name, kind: kind, program: program})
	}

	c.rules.Store(&compiled)
	metrics.SetClassifierRules(len(compiled))
	return nil
}

func (c *RuleClassifier) RuleCount() int {
	return len(*c.rules.Load())
}

func (c *RuleClassifier) Classify(ctx context.Context, vehicleID, text string) Kind {
	rules := *c.rules.Load()
	lowered := strings.ToLower(text)

	var matched Kind
	for _, r := range rules {
		ok, err := r.program.Eval(ctx, lowered, vehicleID)
		if err != nil {
			c.logger.WarnwCtx(ctx, "Classification rule evaluation failed, skipping rule",
				"rule", r.name,
				"error", err,
			)
			continue
		}
		if !ok {
			continue
		}
		if matched != "" && matched != r.kind {
			metrics.ClassificationsTotal.WithLabelValues("ambiguous").Inc()
			return KindInfo
		}
		matched = r.kind
	}

	if matched == "" {
		metrics.ClassificationsTotal.WithLabelValues("default").Inc()
		return KindInfo
	}
	metrics.ClassificationsTotal.WithLabelValues(matched.Name()).Inc()
	return matched
}
