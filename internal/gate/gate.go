// Package gate decides whether a review result allows a commit.
package gate

import "github.com/hyperjump/kensa/internal/models"

// Decide returns Block when res is nil (no result) or when any inline finding has a severity in
// blockOn. General remarks never block.
func Decide(res *models.Result, blockOn []string) models.Decision {
	if res == nil {
		return models.Block
	}
	if len(Offending(res, blockOn)) > 0 {
		return models.Block
	}
	return models.Allow
}

// Offending returns the inline findings whose severity is in blockOn, in order.
func Offending(res *models.Result, blockOn []string) []models.Finding {
	if res == nil {
		return nil
	}
	blocking := make(map[models.Severity]bool, len(blockOn))
	for _, s := range blockOn {
		blocking[models.Severity(s)] = true
	}
	var out []models.Finding
	for _, f := range res.Inline {
		if blocking[f.Severity] {
			out = append(out, f)
		}
	}
	return out
}
