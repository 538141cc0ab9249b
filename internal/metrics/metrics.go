// Package metrics implements the EXPANSION in-memory counters for pages
// and LLM calls. It keeps the teacher's Prometheus-text Export() shape
// (package-level maps guarded by one mutex, sorted keys for stable
// output) but replaces the teacher's HTTP-request/search counters with
// the ones this module's workflow and LLM facade actually emit.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	mu sync.RWMutex

	pagesByState  = make(map[string]int64)
	llmCalls      = make(map[llmKey]int64)
	llmRetries    = make(map[string]int64)
	qualityBelow  = make(map[string]int64)
	checkpointErr int64
)

type llmKey struct {
	Provider string
	Model    string
	Outcome  string
}

// RecordPageTerminal increments the counter for a page reaching a
// terminal workflow state ("completed", "step1_failed", "step2_failed",
// "skipped").
func RecordPageTerminal(state string) {
	mu.Lock()
	defer mu.Unlock()
	pagesByState[state]++
}

// RecordLLMCall increments the counter for one facade call outcome
// ("ok" or "failed"); retries are counted by RecordLLMRetry.
func RecordLLMCall(provider, model, outcome string) {
	mu.Lock()
	defer mu.Unlock()
	llmCalls[llmKey{Provider: provider, Model: model, Outcome: outcome}]++
}

// RecordLLMRetry increments the retry counter for a provider, recorded
// once per retried attempt (not per call).
func RecordLLMRetry(provider string) {
	mu.Lock()
	defer mu.Unlock()
	llmRetries[provider]++
}

// RecordQualityBelowThreshold increments the counter for an analysis
// step whose quality score failed the minimum-quality gate.
func RecordQualityBelowThreshold(step string) {
	mu.Lock()
	defer mu.Unlock()
	qualityBelow[step]++
}

// RecordCheckpointFailure increments the fatal checkpoint-write-failure
// counter.
func RecordCheckpointFailure() {
	mu.Lock()
	defer mu.Unlock()
	checkpointErr++
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP legacywebanalyzer_pages_total Pages reaching a terminal state\n")
	b.WriteString("# TYPE legacywebanalyzer_pages_total counter\n")
	var states []string
	for s := range pagesByState {
		states = append(states, s)
	}
	sort.Strings(states)
	for _, s := range states {
		fmt.Fprintf(&b, "legacywebanalyzer_pages_total{state=\"%s\"} %d\n", s, pagesByState[s])
	}

	b.WriteString("# HELP legacywebanalyzer_llm_calls_total LLM facade calls by provider, model, and outcome\n")
	b.WriteString("# TYPE legacywebanalyzer_llm_calls_total counter\n")
	var llmKeys []llmKey
	for k := range llmCalls {
		llmKeys = append(llmKeys, k)
	}
	sort.Slice(llmKeys, func(i, j int) bool {
		if llmKeys[i].Provider != llmKeys[j].Provider {
			return llmKeys[i].Provider < llmKeys[j].Provider
		}
		if llmKeys[i].Model != llmKeys[j].Model {
			return llmKeys[i].Model < llmKeys[j].Model
		}
		return llmKeys[i].Outcome < llmKeys[j].Outcome
	})
	for _, k := range llmKeys {
		fmt.Fprintf(&b, "legacywebanalyzer_llm_calls_total{provider=\"%s\",model=\"%s\",outcome=\"%s\"} %d\n",
			k.Provider, k.Model, k.Outcome, llmCalls[k])
	}

	b.WriteString("# HELP legacywebanalyzer_llm_retries_total Retried LLM facade attempts by provider\n")
	b.WriteString("# TYPE legacywebanalyzer_llm_retries_total counter\n")
	var providers []string
	for p := range llmRetries {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	for _, p := range providers {
		fmt.Fprintf(&b, "legacywebanalyzer_llm_retries_total{provider=\"%s\"} %d\n", p, llmRetries[p])
	}

	b.WriteString("# HELP legacywebanalyzer_quality_below_threshold_total Analysis steps rejected for low quality\n")
	b.WriteString("# TYPE legacywebanalyzer_quality_below_threshold_total counter\n")
	var steps []string
	for s := range qualityBelow {
		steps = append(steps, s)
	}
	sort.Strings(steps)
	for _, s := range steps {
		fmt.Fprintf(&b, "legacywebanalyzer_quality_below_threshold_total{step=\"%s\"} %d\n", s, qualityBelow[s])
	}

	b.WriteString("# HELP legacywebanalyzer_checkpoint_failures_total Fatal checkpoint write failures\n")
	b.WriteString("# TYPE legacywebanalyzer_checkpoint_failures_total counter\n")
	fmt.Fprintf(&b, "legacywebanalyzer_checkpoint_failures_total %d\n", checkpointErr)

	return b.String()
}
