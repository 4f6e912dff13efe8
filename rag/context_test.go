package rag

import (
	"strings"
	"testing"
)

func TestContextBudget(t *testing.T) {
	tests := []struct {
		name            string
		tokenLimit      int
		queryLen        int
		systemPromptLen int
		want            int
	}{
		{"typical", 6000, 50, 450, 23000},
		{"tiny_limit_floors_at_zero", 100, 500, 500, 0},
		{"zero_limit", 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ContextBudget(tt.tokenLimit, tt.queryLen, tt.systemPromptLen)
			if got != tt.want {
				t.Errorf("ContextBudget(%d, %d, %d) = %d, want %d",
					tt.tokenLimit, tt.queryLen, tt.systemPromptLen, got, tt.want)
			}
		})
	}
}

func TestAssembleOrdering(t *testing.T) {
	ret := Retrieval{
		Allergies:    "=== Riwayat Alergi ===\n- Penisilin (Tingkat: berat)",
		Calculations: "=== Data Perhitungan Kesehatan ===\n[1 Januari] BMI: 24",
		Metrics:      "=== Riwayat Metrik Kesehatan ===\nweight: 70 kg",
		Evidence: []EvidenceChunk{
			{SourceID: "doc-1", Text: "hasil lab lengkap", Score: 0.9},
			{SourceID: "record_abc", Text: "rekam medis", Score: 0.5, Metadata: map[string]string{
				"visit_date":    "12 Maret 2025",
				"doctor_name":   "dr. Sari",
				"facility_name": "RS Medika",
			}},
		},
	}

	got := Assemble(ret, 100000)
	if got.Empty() {
		t.Fatal("Assemble() returned empty context")
	}
	if got.Truncated {
		t.Error("Assemble() truncated under a generous budget")
	}

	wantSources := []string{"patient_allergies", "health_calculations", "health_metrics", "doc-1", "record_abc"}
	if len(got.Sources) != len(wantSources) {
		t.Fatalf("Sources = %v, want %v", got.Sources, wantSources)
	}
	for i, src := range wantSources {
		if got.Sources[i] != src {
			t.Errorf("Sources[%d] = %q, want %q", i, got.Sources[i], src)
		}
	}

	last := got.Blocks[len(got.Blocks)-1]
	for _, annotation := range []string{"[Tanggal: 12 Maret 2025]", "[Dokter: dr. Sari]", "[Fasilitas: RS Medika]"} {
		if !strings.Contains(last, annotation) {
			t.Errorf("evidence block missing annotation %q:\n%s", annotation, last)
		}
	}
}

func TestAssembleTruncatesWholeBlocks(t *testing.T) {
	ret := Retrieval{
		Allergies: "=== Riwayat Alergi ===\n- Penisilin (Tingkat: berat)",
		Evidence: []EvidenceChunk{
			{SourceID: "doc-1", Text: strings.Repeat("a", 200), Score: 0.9},
			{SourceID: "doc-2", Text: strings.Repeat("b", 200), Score: 0.8},
		},
	}

	budget := len(ret.Allergies) + len(BlockSeparator) + 200
	got := Assemble(ret, budget)

	if !got.Truncated {
		t.Fatal("Assemble() should report truncation")
	}
	if len(got.Blocks) != 2 {
		t.Fatalf("kept %d blocks, want 2", len(got.Blocks))
	}
	if got.Sources[0] != "patient_allergies" || got.Sources[1] != "doc-1" {
		t.Errorf("Sources = %v, want allergies then doc-1", got.Sources)
	}

	serialized := got.Serialize()
	if !strings.HasSuffix(serialized, TruncationNotice) {
		t.Error("Serialize() missing truncation notice")
	}
	if strings.Contains(serialized, "bbbb") {
		t.Error("dropped block leaked into serialized context")
	}
}

func TestAssembleEmpty(t *testing.T) {
	got := Assemble(Retrieval{}, 10000)
	if !got.Empty() {
		t.Errorf("Assemble(empty retrieval) = %+v, want empty sentinel", got)
	}
}

func TestSerializeJoinsWithSeparator(t *testing.T) {
	c := Context{Blocks: []string{"satu", "dua"}}
	want := "satu" + BlockSeparator + "dua"
	if got := c.Serialize(); got != want {
		t.Errorf("Serialize() = %q, want %q", got, want)
	}
}
