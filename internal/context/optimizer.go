package context

import (
	"github.com/embedchat/embedchat/internal/chat"
)

// Message is re-exported for callers that only deal with optimization.
type Message = chat.Message

// OptimizerOptions configures the history optimizer.
type OptimizerOptions struct {
	// MaxHistoryTokens is the soft token budget for the optimized view.
	MaxHistoryTokens int `json:"maxHistoryTokens"`
	// AlwaysKeepRecentMessages is the size of the verbatim recency window.
	AlwaysKeepRecentMessages int `json:"alwaysKeepRecentMessages"`
}

// DefaultOptimizerOptions returns the optimizer defaults used by the widget.
func DefaultOptimizerOptions() OptimizerOptions {
	return OptimizerOptions{
		MaxHistoryTokens:         1200,
		AlwaysKeepRecentMessages: 4,
	}
}

// HistoryOptimizer produces a budget-constrained view of a conversation
// before each outbound request. The most recent messages are always included
// verbatim; older messages are compressed and admitted newest-first until the
// token budget runs out.
type HistoryOptimizer struct {
	estimator  *TokenEstimator
	compressor *MessageCompressor
	opts       OptimizerOptions
}

// NewHistoryOptimizer creates a history optimizer with the given options.
func NewHistoryOptimizer(opts OptimizerOptions) *HistoryOptimizer {
	if opts.MaxHistoryTokens <= 0 {
		opts.MaxHistoryTokens = DefaultOptimizerOptions().MaxHistoryTokens
	}
	if opts.AlwaysKeepRecentMessages <= 0 {
		opts.AlwaysKeepRecentMessages = DefaultOptimizerOptions().AlwaysKeepRecentMessages
	}
	return &HistoryOptimizer{
		estimator:  NewTokenEstimator(),
		compressor: NewMessageCompressor(),
		opts:       opts,
	}
}

// Optimize returns the view of history to send upstream. The returned slice
// preserves chronological order: compressed older messages first, then the
// recent window verbatim. The original history is never modified.
//
// The token budget is a soft constraint: if the recent window alone exceeds
// it, the window is still returned uncompressed. Conversational continuity
// for recent turns wins over strict budget compliance.
func (ho *HistoryOptimizer) Optimize(history []Message) []Message {
	if len(history) == 0 {
		return []Message{}
	}

	keep := ho.opts.AlwaysKeepRecentMessages
	if keep > len(history) {
		keep = len(history)
	}
	recent := history[len(history)-keep:]
	older := history[:len(history)-keep]

	tokenCount := ho.estimator.EstimateMessages(recent)

	// Fast path: everything already fits and there is nothing to compress.
	if tokenCount < ho.opts.MaxHistoryTokens && len(older) == 0 {
		out := make([]Message, len(history))
		copy(out, history)
		return out
	}

	result := make([]Message, len(recent))
	copy(result, recent)

	// Walk older messages newest-first; once one no longer fits, everything
	// before it is dropped rather than partially included.
	for i := len(older) - 1; i >= 0; i-- {
		compressed := ho.compressor.Compress(older[i])
		cost := ho.estimator.Estimate(compressed.Content)
		if tokenCount+cost > ho.opts.MaxHistoryTokens {
			break
		}
		result = append([]Message{compressed}, result...)
		tokenCount += cost
	}

	return result
}
