// services/cost_service.go
package services

import (
	"sort"
	"strings"
)

const defaultPricingModel = "gpt-4.1"

type costService struct{}

func NewCostService() CostService {
	return &costService{}
}

// Cost per 1M tokens
var costPerToken = map[string]ModelPrice{
	"gpt-5":             {InputPerMillion: 1.25, OutputPerMillion: 10.00},
	"gpt-5-mini":        {InputPerMillion: 0.25, OutputPerMillion: 2.00},
	"gpt-4.1":           {InputPerMillion: 3.00, OutputPerMillion: 12.00},
	"gpt-4.1-mini":      {InputPerMillion: 0.80, OutputPerMillion: 3.20},
	"gpt-4.1-nano":      {InputPerMillion: 0.10, OutputPerMillion: 0.40},
	"gpt-4o":            {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini":       {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"o4-mini":           {InputPerMillion: 1.10, OutputPerMillion: 4.40},
	"claude-sonnet-4":   {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-opus-4":     {InputPerMillion: 15.00, OutputPerMillion: 75.00},
	"claude-3-5-haiku":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
	"claude-3-7-sonnet": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
}

// pricingKeys is sorted longest first so dated ids match their most specific family.
var pricingKeys = func() []string {
	keys := make([]string, 0, len(costPerToken))
	for k := range costPerToken {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

func (s *costService) CalculateCost(model string, inputTokens int, outputTokens int) float64 {
	price := s.GetPrice(model)
	inputCost := (float64(inputTokens) / 1_000_000.0) * price.InputPerMillion
	outputCost := (float64(outputTokens) / 1_000_000.0) * price.OutputPerMillion
	return inputCost + outputCost
}

// GetPrice resolves model by exact id, then by family prefix, then the default entry.
func (s *costService) GetPrice(model string) ModelPrice {
	key := strings.ToLower(strings.TrimSpace(model))
	if price, ok := costPerToken[key]; ok {
		return price
	}
	for _, family := range pricingKeys {
		if strings.HasPrefix(key, family) {
			return costPerToken[family]
		}
	}
	return costPerToken[defaultPricingModel]
}

func (s *costService) PriceTable() map[string]ModelPrice {
	table := make(map[string]ModelPrice, len(costPerToken))
	for k, v := range costPerToken {
		table[k] = v
	}
	return table
}
