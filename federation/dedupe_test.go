package federation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vigia/sentinela/sources"
)

func TestDedupe_PrefersHighestPrioritySourceOnTie(t *testing.T) {
	bySource := map[string][]sources.Record{
		"low-priority": {{SourceID: "low-priority", Fields: map[string]interface{}{"contract_id": "C1", "value": 100.0}}},
		"high-priority": {{SourceID: "high-priority", Fields: map[string]interface{}{"contract_id": "C1", "value": 100.0}}},
	}
	priority := map[string]int{"low-priority": 5, "high-priority": 1}

	merged := dedupe(bySource, priority)

	assert.Len(t, merged, 1)
	assert.Equal(t, "high-priority", merged[0].SourceID)
}

func TestDedupe_KeepsContentDistinctRecords(t *testing.T) {
	bySource := map[string][]sources.Record{
		"a": {{SourceID: "a", Fields: map[string]interface{}{"contract_id": "C1"}}},
		"b": {{SourceID: "b", Fields: map[string]interface{}{"contract_id": "C2"}}},
	}
	priority := map[string]int{"a": 1, "b": 1}

	merged := dedupe(bySource, priority)

	assert.Len(t, merged, 2)
}

func TestDedupe_ResultNeverExceedsSumOfPerSource(t *testing.T) {
	bySource := map[string][]sources.Record{
		"a": {
			{SourceID: "a", Fields: map[string]interface{}{"contract_id": "C1"}},
			{SourceID: "a", Fields: map[string]interface{}{"contract_id": "C2"}},
		},
		"b": {
			{SourceID: "b", Fields: map[string]interface{}{"contract_id": "C1"}},
		},
	}
	priority := map[string]int{"a": 1, "b": 2}
	total := 0
	for _, recs := range bySource {
		total += len(recs)
	}

	merged := dedupe(bySource, priority)

	assert.LessOrEqual(t, len(merged), total)
}

func TestContentKey_PrecedenceOrder(t *testing.T) {
	byContract := sources.Record{Fields: map[string]interface{}{"contract_id": "C1", "document_number": "D1"}}
	key, ok := contentKey(byContract)
	assert.True(t, ok)
	assert.Equal(t, "contract:C1", key)

	byDocument := sources.Record{Fields: map[string]interface{}{"document_number": "D1"}}
	key, ok = contentKey(byDocument)
	assert.True(t, ok)
	assert.Equal(t, "document:D1", key)

	byTuple := sources.Record{Fields: map[string]interface{}{"org": "X", "date": "2024-01-01", "value": 1.0}}
	key, ok = contentKey(byTuple)
	assert.True(t, ok)
	assert.Contains(t, key, "tuple:")

	noKey := sources.Record{Fields: map[string]interface{}{"irrelevant": true}}
	_, ok = contentKey(noKey)
	assert.False(t, ok)
}
