package services

import "unicode/utf8"

const (
	charsPerToken           = 4
	SystemContextTokens     = 800
	BaselineOutputTokens    = 3000
	ProcessingBufferPercent = 20
	MinimumEstimate         = 100
)

// EstimateCost approximates the token cost of a generation request for prompt:
// prompt tokens at 4 characters per token, plus the fixed system context and
// baseline output, plus a 20% buffer, never below MinimumEstimate.
// An empty prompt costs exactly MinimumEstimate.
func EstimateCost(prompt string) int64 {
	chars := int64(utf8.RuneCountInString(prompt))
	if chars == 0 {
		return MinimumEstimate
	}

	promptTokens := ceilDiv(chars, charsPerToken)
	subtotal := promptTokens + SystemContextTokens + BaselineOutputTokens
	buffer := ceilDiv(subtotal*ProcessingBufferPercent, 100)

	if total := subtotal + buffer; total > MinimumEstimate {
		return total
	}
	return MinimumEstimate
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
