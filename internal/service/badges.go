package service

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"pokequest/internal/model"
)

//go:embed badge_rules.json
var badgeRulesRawJSON []byte

type badgeRule struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Rarity      string `json:"rarity"`
	Via         string `json:"via"`
	Target      int    `json:"target"`
	Order       int    `json:"order"`
}

type badgeRuleCatalog struct {
	Badges []badgeRule `json:"badges"`
}

func loadBadgeRules() ([]badgeRule, error) {
	var catalog badgeRuleCatalog
	if err := json.Unmarshal(badgeRulesRawJSON, &catalog); err != nil {
		return nil, fmt.Errorf("parse badge rules: %w", err)
	}
	rules := make([]badgeRule, 0, len(catalog.Badges))
	for _, rule := range catalog.Badges {
		rule.ID = strings.TrimSpace(rule.ID)
		if rule.ID == "" {
			continue
		}
		rule.Category = normalizeBadgeToken(rule.Category)
		if rule.Target <= 0 {
			rule.Target = 1
		}
		rules = append(rules, rule)
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Order < rules[j].Order
	})
	return rules, nil
}

// Badges computes badge progress from the user's collection. Progress counts
// distinct owned items matching the rule.
func (s *Service) Badges(ctx context.Context, userID string) ([]model.Badge, error) {
	owned := s.collection.Load(ctx, NormalizeUserID(userID))

	badges := make([]model.Badge, 0, len(s.badgeRules))
	for _, rule := range s.badgeRules {
		progress := 0
		for _, item := range owned.Items {
			if matchBadgeRule(rule, item) {
				progress++
			}
		}
		badges = append(badges, model.Badge{
			ID:          rule.ID,
			Name:        rule.Name,
			Description: rule.Description,
			Category:    rule.Category,
			Unlocked:    progress >= rule.Target,
			Progress:    min(progress, rule.Target),
			Target:      rule.Target,
		})
	}
	return badges, nil
}

func matchBadgeRule(rule badgeRule, item model.OwnedItem) bool {
	if rule.Category != "" && rule.Category != normalizeBadgeToken(item.Category) {
		return false
	}
	if rule.Rarity != "" && rule.Rarity != string(item.RarityTier) {
		return false
	}
	if rule.Via != "" && rule.Via != string(item.AcquiredVia) {
		return false
	}
	return true
}

func normalizeBadgeToken(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
