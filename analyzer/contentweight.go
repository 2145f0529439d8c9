package analyzer

import (
	"context"
	"strings"

	"github.com/use-agent/webauditor/model"
)

// ContentWeight scores how heavy the page is against the run's budget
// template, using the resource-type byte breakdown the orchestrator
// collected from the page's network log (the orchestrator's request
// interception classifies each response by resource type and sums its
// bytes into ResourceBytes).
type ContentWeight struct{}

func (c *ContentWeight) Name() Id             { return IDContentWeight }
func (c *ContentWeight) DefaultTimeoutMs() int { return 5_000 }

func (c *ContentWeight) Run(_ context.Context, pc PageContext) (Output, error) {
	b := pc.ResourceBytes
	total := b.HTML + b.CSS + b.JavaScript + b.Images + b.Fonts + b.Other

	textBytes := int64(len(strings.TrimSpace(pc.DocumentHTML)))
	codeBytes := b.CSS + b.JavaScript
	var ratio float64
	if codeBytes > 0 {
		ratio = float64(textBytes) / float64(codeBytes)
	} else if textBytes > 0 {
		ratio = 1
	}

	budget := budgetFor(pc.Options.BudgetTemplate)
	section := &model.ContentWeightSection{
		Bytes:           b,
		TotalBytes:      total,
		TextToCodeRatio: ratio,
	}
	section.Score = scoreContentWeight(total, b.Images, b.JavaScript, budget)

	return Output{Section: section}, nil
}

func scoreContentWeight(total, images, js int64, b budget) int {
	score := 100
	if b.MaxTotalBytes > 0 && total > b.MaxTotalBytes {
		over := float64(total-b.MaxTotalBytes) / float64(b.MaxTotalBytes)
		score -= int(over * 40)
	}
	if b.MaxImageBytes > 0 && images > b.MaxImageBytes {
		over := float64(images-b.MaxImageBytes) / float64(b.MaxImageBytes)
		score -= int(over * 30)
	}
	if b.MaxJSBytes > 0 && js > b.MaxJSBytes {
		over := float64(js-b.MaxJSBytes) / float64(b.MaxJSBytes)
		score -= int(over * 30)
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
