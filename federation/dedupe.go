package federation

import (
	"fmt"

	"github.com/vigia/sentinela/sources"
)

// contentKey derives the stable fingerprint a record dedupes on. Precedence,
// formalized here per the spec's open question: contract id, then document
// number, then the tuple (org, date, value). A record matching none of these
// is never deduped against another (its key is unique per record identity).
func contentKey(r sources.Record) (string, bool) {
	if v, ok := r.Fields["contract_id"]; ok {
		return fmt.Sprintf("contract:%v", v), true
	}
	if v, ok := r.Fields["document_number"]; ok {
		return fmt.Sprintf("document:%v", v), true
	}
	org, hasOrg := r.Fields["org"]
	date, hasDate := r.Fields["date"]
	value, hasValue := r.Fields["value"]
	if hasOrg && hasDate && hasValue {
		return fmt.Sprintf("tuple:%v|%v|%v", org, date, value), true
	}
	return "", false
}

// dedupe merges per-source record sets on contentKey. Ties resolve to the
// highest-priority (lowest Priority value) source's record; losing
// records are dropped but their source id is retained nowhere beyond
// provenance already captured in PerSourceOutcome.
func dedupe(bySource map[string][]sources.Record, priority map[string]int) []sources.Record {
	type keyed struct {
		record sources.Record
		key    string
		unique bool
		seq    int
	}

	var all []keyed
	seq := 0
	for sourceID, records := range bySource {
		for _, r := range records {
			k, ok := contentKey(r)
			all = append(all, keyed{record: r, key: k, unique: !ok, seq: seq})
			seq++
			_ = sourceID
		}
	}

	winners := make(map[string]keyed)
	var uniques []keyed
	for _, k := range all {
		if k.unique {
			uniques = append(uniques, k)
			continue
		}
		existing, ok := winners[k.key]
		if !ok {
			winners[k.key] = k
			continue
		}
		if priority[k.record.SourceID] < priority[existing.record.SourceID] {
			winners[k.key] = k
		}
	}

	merged := make([]sources.Record, 0, len(winners)+len(uniques))
	for _, k := range winners {
		merged = append(merged, k.record)
	}
	for _, k := range uniques {
		merged = append(merged, k.record)
	}
	return merged
}
