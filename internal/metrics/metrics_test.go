package metrics

import (
	"strings"
	"testing"
)

func TestRecordPageTerminalAndExport(t *testing.T) {
	RecordPageTerminal("completed")
	RecordPageTerminal("completed")
	RecordPageTerminal("step1_failed")

	out := Export()
	if !strings.Contains(out, `legacywebanalyzer_pages_total{state="completed"} 2`) {
		t.Fatalf("expected 2 completed pages in export, got:\n%s", out)
	}
	if !strings.Contains(out, `legacywebanalyzer_pages_total{state="step1_failed"} 1`) {
		t.Fatalf("expected 1 step1_failed page in export, got:\n%s", out)
	}
}

func TestRecordLLMCallAndRetry(t *testing.T) {
	RecordLLMCall("openai", "gpt-test", "ok")
	RecordLLMCall("openai", "gpt-test", "failed")
	RecordLLMRetry("openai")

	out := Export()
	if !strings.Contains(out, `legacywebanalyzer_llm_calls_total{provider="openai",model="gpt-test",outcome="ok"}`) {
		t.Fatalf("expected ok outcome counter, got:\n%s", out)
	}
	if !strings.Contains(out, `legacywebanalyzer_llm_calls_total{provider="openai",model="gpt-test",outcome="failed"}`) {
		t.Fatalf("expected failed outcome counter, got:\n%s", out)
	}
	if !strings.Contains(out, `legacywebanalyzer_llm_retries_total{provider="openai"} 1`) {
		t.Fatalf("expected 1 retry for openai, got:\n%s", out)
	}
}

func TestRecordQualityBelowThreshold(t *testing.T) {
	RecordQualityBelowThreshold("step1")
	out := Export()
	if !strings.Contains(out, `legacywebanalyzer_quality_below_threshold_total{step="step1"} 1`) {
		t.Fatalf("expected 1 below-threshold step1 rejection, got:\n%s", out)
	}
}

func TestRecordCheckpointFailure(t *testing.T) {
	RecordCheckpointFailure()
	out := Export()
	if !strings.Contains(out, "legacywebanalyzer_checkpoint_failures_total 1") {
		t.Fatalf("expected 1 checkpoint failure, got:\n%s", out)
	}
}
