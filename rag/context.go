package rag

import "strings"

// BlockSeparator joins context blocks in the serialized prompt.
const BlockSeparator = "\n\n---\n\n"

// TruncationNotice is appended once when older blocks were dropped to fit
// the budget.
const TruncationNotice = "\n\n[Catatan: Beberapa informasi lama tidak ditampilkan untuk menghemat ruang]"

const charsPerToken = 4

// Context is the ordered block sequence handed to the generation prompt,
// with a parallel source id per block.
type Context struct {
	Blocks    []string
	Sources   []string
	Truncated bool
}

// Empty reports the no-evidence sentinel; callers must answer the fixed
// no-data message instead of invoking the generation backend.
func (c Context) Empty() bool {
	return len(c.Blocks) == 0
}

// Serialize joins the blocks, appending the omission notice when blocks
// were dropped.
func (c Context) Serialize() string {
	s := strings.Join(c.Blocks, BlockSeparator)
	if c.Truncated {
		s += TruncationNotice
	}
	return s
}

// ContextBudget derives the character budget for the assembled context
// from the backend token limit, reserving room for the query, the system
// prompt and a fixed margin.
func ContextBudget(tokenLimit, queryLen, systemPromptLen int) int {
	budget := tokenLimit*charsPerToken - queryLen - systemPromptLen - 500
	if budget < 0 {
		budget = 0
	}
	return budget
}

// Assemble orders the always-include blocks (allergies, calculations,
// metrics) ahead of the ranked evidence, annotates evidence blocks with
// their visit metadata, and truncates whole blocks from the tail until the
// serialized context fits the budget. Truncation never splits a block.
func Assemble(ret Retrieval, budget int) Context {
	var blocks, sources []string

	if ret.Allergies != "" {
		blocks = append(blocks, ret.Allergies)
		sources = append(sources, "patient_allergies")
	}
	if ret.Calculations != "" {
		blocks = append(blocks, ret.Calculations)
		sources = append(sources, "health_calculations")
	}
	if ret.Metrics != "" {
		blocks = append(blocks, ret.Metrics)
		sources = append(sources, "health_metrics")
	}

	for _, chunk := range ret.Evidence {
		block := chunk.Text
		var annotation string
		if v := chunk.Metadata["visit_date"]; v != "" {
			annotation = "\n[Tanggal: " + v + "]"
		}
		if v := chunk.Metadata["doctor_name"]; v != "" {
			annotation += " [Dokter: " + v + "]"
		}
		if v := chunk.Metadata["facility_name"]; v != "" {
			annotation += " [Fasilitas: " + v + "]"
		}
		blocks = append(blocks, block+annotation)
		sources = append(sources, chunk.SourceID)
	}

	if len(blocks) == 0 {
		return Context{}
	}

	kept := 0
	used := 0
	for i, block := range blocks {
		cost := len(block)
		if i > 0 {
			cost += len(BlockSeparator)
		}
		if used+cost > budget {
			break
		}
		used += cost
		kept++
	}

	if kept == len(blocks) {
		return Context{Blocks: blocks, Sources: sources}
	}
	return Context{Blocks: blocks[:kept], Sources: sources[:kept], Truncated: true}
}
