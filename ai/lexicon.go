package ai

import (
	"context"
	"strings"

	"github.com/vigia/sentinela/core"
)

// LexiconClassifier is a rule-based intent classifier: cheap, local, and
// used as the in-process default when no LLM backend is configured or
// reachable. It never blocks, so the bounded-time contract is trivially
// satisfied.
type LexiconClassifier struct {
	rules []lexiconRule
}

type lexiconRule struct {
	intent   core.IntentType
	keywords []string
	conf     float64
}

func NewLexiconClassifier() *LexiconClassifier {
	return &LexiconClassifier{
		rules: []lexiconRule{
			{core.IntentGreeting, []string{"olá", "ola", "oi", "bom dia", "boa tarde", "boa noite"}, 0.95},
			{core.IntentHelpRequest, []string{"ajuda", "como funciona", "o que você faz", "o que voce faz"}, 0.9},
			{core.IntentInvestigate, []string{"investigar", "investigue", "analise os contratos", "verificar gastos", "apurar"}, 0.85},
			{core.IntentAnalyze, []string{"analisar", "analise", "padrão", "padrao", "anomalia"}, 0.8},
			{core.IntentReportRequest, []string{"relatório", "relatorio", "resumo", "relatar"}, 0.8},
		},
	}
}

func (c *LexiconClassifier) Classify(ctx context.Context, text string) (core.IntentType, float64, error) {
	lower := strings.ToLower(text)
	for _, rule := range c.rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.intent, rule.conf, nil
			}
		}
	}
	return core.IntentUnknown, 0, nil
}

var _ IntentClassifier = (*LexiconClassifier)(nil)
